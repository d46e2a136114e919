package models

import "spendify/internal/money"

// CardType is the payment network detected from the card number.
type CardType string

const (
	CardTypeVisa       CardType = "visa"
	CardTypeMastercard CardType = "mastercard"
	CardTypeAmex       CardType = "amex"
	CardTypeDiscover   CardType = "discover"
	CardTypeOther      CardType = "other"
)

// Card is a stored-value card with its own balance. Only the last four digits
// of the number are kept; the CVV is never stored.
type Card struct {
	Base
	UserID         string      `gorm:"type:uuid;not null;index" json:"userId"`
	Last4          string      `gorm:"size:4;not null" json:"last4"`
	MaskedNumber   string      `gorm:"size:19;not null" json:"maskedNumber"`
	CardHolderName string      `gorm:"not null" json:"cardHolderName"`
	Expiry         string      `gorm:"size:5;not null" json:"expiry"`
	Balance        money.Cents `gorm:"type:bigint;not null;default:0" json:"balance"`
	CardType       CardType    `gorm:"size:20;not null;default:'other'" json:"cardType"`
	IsActive       bool        `gorm:"not null;default:true" json:"isActive"`
}

// DetectCardType maps the leading digit of a card number to its network.
func DetectCardType(number string) CardType {
	if number == "" {
		return CardTypeOther
	}
	switch number[0] {
	case '4':
		return CardTypeVisa
	case '5':
		return CardTypeMastercard
	case '3':
		return CardTypeAmex
	case '6':
		return CardTypeDiscover
	default:
		return CardTypeOther
	}
}

// MaskCardNumber renders the display form "**** **** **** 1234".
func MaskCardNumber(last4 string) string {
	return "**** **** **** " + last4
}
