package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/uuid"
)

// cardService manages stored-value cards and transfers between them.
type cardService struct {
	db     *gorm.DB
	ledger *Ledger
}

// NewCardService creates a new CardServicer.
func NewCardService(db *gorm.DB, ledger *Ledger) CardServicer {
	return &cardService{db: db, ledger: ledger}
}

// CreateCard stores a card. Only the last four digits of the number are
// kept; the network is detected from the number when not given.
func (s *cardService) CreateCard(userID string, in CardInput) (*models.Card, error) {
	number := strings.ReplaceAll(strings.ReplaceAll(in.Number, " ", ""), "-", "")
	if len(number) < 4 {
		return nil, apperrors.Validation("Please provide a valid 16-digit card number")
	}
	if in.Balance < 0 {
		return nil, apperrors.Validation("Balance cannot be negative")
	}

	cardType := in.CardType
	if cardType == "" {
		cardType = models.DetectCardType(number)
	}
	last4 := number[len(number)-4:]

	card := &models.Card{
		UserID:         userID,
		Last4:          last4,
		MaskedNumber:   models.MaskCardNumber(last4),
		CardHolderName: strings.TrimSpace(in.HolderName),
		Expiry:         in.Expiry,
		Balance:        in.Balance,
		CardType:       cardType,
		IsActive:       true,
	}
	if err := s.db.Create(card).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return card, nil
}

// GetUserCards lists a user's active cards, oldest first.
func (s *cardService) GetUserCards(userID string) ([]models.Card, error) {
	cards := []models.Card{}
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").Order("id ASC").
		Find(&cards).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return cards, nil
}

// GetCardByID retrieves an active card owned by userID.
func (s *cardService) GetCardByID(userID, cardID string) (*models.Card, error) {
	return s.load(s.db, userID, cardID, "access")
}

// load finds an active card and checks ownership; deactivated cards are
// reported as missing.
func (s *cardService) load(tx *gorm.DB, userID, cardID, verb string) (*models.Card, error) {
	if !uuid.IsValid(cardID) {
		return nil, apperrors.ErrCardNotFound
	}
	var card models.Card
	if err := tx.Where("id = ? AND is_active = ?", cardID, true).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if card.UserID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrNotAuthorized, "Not authorized to "+verb+" this card")
	}
	return &card, nil
}

// UpdateCard edits the holder name, expiry or network. Balances only move
// through transfers.
func (s *cardService) UpdateCard(userID, cardID string, patch CardPatch) (*models.Card, error) {
	var result *models.Card
	err := s.db.Transaction(func(tx *gorm.DB) error {
		card, err := s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, cardID, "update")
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if patch.HolderName != nil {
			card.CardHolderName = strings.TrimSpace(*patch.HolderName)
			updates["card_holder_name"] = card.CardHolderName
		}
		if patch.Expiry != nil {
			card.Expiry = *patch.Expiry
			updates["expiry"] = card.Expiry
		}
		if patch.CardType != nil {
			card.CardType = *patch.CardType
			updates["card_type"] = card.CardType
		}
		if len(updates) > 0 {
			if err := tx.Model(card).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		result = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteCard deactivates a card. The row and its balance are kept.
func (s *cardService) DeleteCard(userID, cardID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		card, err := s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, cardID, "delete")
		if err != nil {
			return err
		}
		if err := tx.Model(card).Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// TransferBetweenCards moves amount between two of the user's active cards
// and writes a mirrored expense and income record. The debit runs first and
// the records last; any failure rolls the whole unit back.
func (s *cardService) TransferBetweenCards(userID, fromCardID, toCardID string, amount money.Cents) (*CardTransferResult, error) {
	if fromCardID == "" || toCardID == "" || amount <= 0 {
		return nil, apperrors.Validation("Please provide fromCardId, toCardId, and amount")
	}
	if fromCardID == toCardID {
		return nil, apperrors.ErrSameCardTransfer
	}
	if !uuid.IsValid(fromCardID) || !uuid.IsValid(toCardID) {
		return nil, apperrors.WithMessage(apperrors.ErrCardNotFound, "One or both cards not found")
	}

	var result *CardTransferResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// one ordered locking read keeps two opposite transfers from deadlocking
		var cards []models.Card
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ? AND is_active = ?", []string{fromCardID, toCardID}, true).
			Order("id").
			Find(&cards).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(cards) != 2 {
			return apperrors.WithMessage(apperrors.ErrCardNotFound, "One or both cards not found")
		}
		from, to := &cards[0], &cards[1]
		if from.ID != fromCardID {
			from, to = to, from
		}
		if from.UserID != userID || to.UserID != userID {
			return apperrors.WithMessage(apperrors.ErrNotAuthorized, "Not authorized to perform this transfer")
		}

		if err := s.ledger.DebitCard(tx, from.ID, amount); err != nil {
			return relabelInsufficient(err, "Insufficient balance in source card")
		}
		if err := s.ledger.CreditCard(tx, to.ID, amount); err != nil {
			return err
		}

		now := time.Now().UTC()
		mirror := []models.Transaction{
			{
				UserID:      userID,
				Type:        models.TransactionTypeExpense,
				Amount:      amount,
				Category:    models.TransferCategory,
				Description: "Transfer to card ending in " + to.Last4,
				Date:        now,
				Source:      models.TransactionSourceCardTransfer,
			},
			{
				UserID:      userID,
				Type:        models.TransactionTypeIncome,
				Amount:      amount,
				Category:    models.TransferCategory,
				Description: "Transfer from card ending in " + from.Last4,
				Date:        now,
				Source:      models.TransactionSourceCardTransfer,
			},
		}
		if err := tx.Create(&mirror).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, card := range []*models.Card{from, to} {
			var fresh models.Card
			if err := tx.Select("id", "balance").Where("id = ?", card.ID).Take(&fresh).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			card.Balance = fresh.Balance
		}
		result = &CardTransferResult{FromCard: from, ToCard: to, Amount: amount}
		return nil
	})
	observeLedger("card_transfer", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}
