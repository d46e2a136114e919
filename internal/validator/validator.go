// Package validator holds the input rules of the API: custom tags for gin's
// binding engine and the field validators that produce ordered, human-readable
// error lists. Whitelists live here as constant sets so adding a type or sort
// field is a one-line change.
package validator

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Transaction types accepted by the API.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// TransactionTypes is the whitelist for transaction bodies and filters.
var TransactionTypes = []string{TypeIncome, TypeExpense}

// SortFields is the whitelist of sort tokens for transaction lists.
var SortFields = []string{
	"date", "-date", "amount", "-amount",
	"category", "-category", "type", "-type",
	"createdAt", "-createdAt",
}

// CardTypes lists the networks a card can be tagged with.
var CardTypes = []string{"visa", "mastercard", "amex", "discover", "other"}

var (
	categoryPattern   = regexp.MustCompile(`^[\w\s\-&',().]+$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	cardExpiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	binding.EnableDecoderUseNumber = true
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("card_type", validateCardType)
		_ = v.RegisterValidation("card_number", validateCardNumber)
		_ = v.RegisterValidation("card_expiry", validateCardExpiry)
		_ = v.RegisterValidation("cvv", validateCVV)
		_ = v.RegisterValidation("email_address", validateEmail)
	}
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return contains(TransactionTypes, fl.Field().String())
}

func validateCardType(fl validator.FieldLevel) bool {
	return contains(CardTypes, fl.Field().String())
}

func validateCardNumber(fl validator.FieldLevel) bool {
	return cardNumberPattern.MatchString(NormalizeCardNumber(fl.Field().String()))
}

func validateCardExpiry(fl validator.FieldLevel) bool {
	return cardExpiryPattern.MatchString(fl.Field().String())
}

func validateCVV(fl validator.FieldLevel) bool {
	return cvvPattern.MatchString(fl.Field().String())
}

func validateEmail(fl validator.FieldLevel) bool {
	return IsEmail(fl.Field().String())
}

// NormalizeCardNumber strips the whitespace users type between digit groups.
func NormalizeCardNumber(number string) string {
	return strings.Join(strings.Fields(number), "")
}

// IsEmail reports whether s has the two-part shape local@domain.tld.
func IsEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Translate maps binding errors to messages keyed by "Field.tag" (or "Field"
// for any tag on that field). Errors come back in struct field order. Non
// validation errors (malformed JSON, wrong JSON types) yield fallback.
func Translate(err error, messages map[string]string, fallback string) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{fallback}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		if msg, ok := messages[fe.Field()]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, fe.Field()+" is invalid")
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
