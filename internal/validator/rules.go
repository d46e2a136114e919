package validator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"spendify/internal/money"
)

// Amount bounds applied to every money input.
var (
	MinAmount = money.Cents(1)
	MaxAmount = money.FromUnits(1_000_000)
)

// Field limits.
const (
	MaxCategoryLen    = 50
	MaxDescriptionLen = 200
	MaxSearchLen      = 100
	MaxNameLen        = 50
	MinPasswordLen    = 12
	MaxPage           = 1_000_000
)

// Amount checks a decoded amount and returns "" when it is acceptable.
// Objects and arrays are rejected explicitly.
func Amount(v any) string {
	c, err := money.Parse(v)
	if err != nil {
		return "Amount must be a valid number"
	}
	if c < MinAmount {
		return "Amount must be at least " + MinAmount.Decimal().String()
	}
	if c > MaxAmount {
		return "Amount must not exceed " + MaxAmount.Decimal().String()
	}
	return ""
}

// TransactionInput is a transaction body as decoded from JSON. Fields stay
// untyped so wrong JSON types are reported as rule violations rather than
// decode failures.
type TransactionInput struct {
	Amount      any `json:"amount"`
	Type        any `json:"type"`
	Category    any `json:"category"`
	Description any `json:"description"`
	Date        any `json:"date"`
}

// TransactionBody validates a transaction body. With partial set, absent
// amount, type and category are accepted (used for edits).
func TransactionBody(in TransactionInput, partial bool) []string {
	var errs []string

	if !(partial && in.Amount == nil) {
		if msg := Amount(in.Amount); msg != "" {
			errs = append(errs, msg)
		}
	}

	if !(partial && in.Type == nil) {
		if t, ok := in.Type.(string); !ok || !contains(TransactionTypes, t) {
			errs = append(errs, "Type must be one of: "+strings.Join(TransactionTypes, ", "))
		}
	}

	if !(partial && in.Category == nil) {
		errs = append(errs, category(in.Category)...)
	}

	errs = append(errs, description(in.Description)...)

	if in.Date != nil {
		if _, ok := ParseDate(in.Date); !ok {
			errs = append(errs, "Date is not valid")
		}
	}

	return errs
}

func category(v any) []string {
	s, ok := v.(string)
	trimmed := strings.TrimSpace(s)
	switch {
	case !ok || trimmed == "":
		return []string{"Category is required"}
	case len([]rune(trimmed)) > MaxCategoryLen:
		return []string{fmt.Sprintf("Category must be %d characters or fewer", MaxCategoryLen)}
	case !categoryPattern.MatchString(trimmed):
		return []string{"Category contains invalid characters"}
	}
	return nil
}

func description(v any) []string {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return []string{"Description must be a string"}
	}
	if len([]rune(s)) > MaxDescriptionLen {
		return []string{fmt.Sprintf("Description must be %d characters or fewer", MaxDescriptionLen)}
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts ISO-8601 date or date-time strings and epoch
// milliseconds. Results are normalized to UTC.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	case json.Number:
		if ms, err := x.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	case float64:
		return time.UnixMilli(int64(x)).UTC(), true
	}
	return time.Time{}, false
}

// QueryInput carries raw query parameters; nil pointers mean "not supplied".
type QueryInput struct {
	Type     string
	Category string
	Search   string
	Sort     string
	Month    *string
	Year     *string
	Page     *string
	Limit    *string
}

// Query is a validated transaction list query with defaults applied.
type Query struct {
	Type     string
	Category string
	Search   string
	Sort     string
	Month    int
	Year     int
	Page     int
	Limit    int
}

// TransactionQuery validates list filters. Out-of-range pagination is
// rejected, never clamped.
func TransactionQuery(in QueryInput) (Query, []string) {
	q := Query{Type: in.Type, Category: in.Category, Search: in.Search, Sort: in.Sort, Page: 1, Limit: 10}
	var errs []string

	if in.Type != "" && !contains(TransactionTypes, in.Type) {
		errs = append(errs, "Type filter must be one of: "+strings.Join(TransactionTypes, ", "))
	}
	if len([]rune(in.Category)) > MaxCategoryLen {
		errs = append(errs, fmt.Sprintf("Category filter must be a string up to %d characters", MaxCategoryLen))
	}
	if in.Month != nil {
		m, err := strconv.Atoi(*in.Month)
		if err != nil || m < 1 || m > 12 {
			errs = append(errs, "Month must be an integer between 1 and 12")
		}
		q.Month = m
	}
	if in.Year != nil {
		y, err := strconv.Atoi(*in.Year)
		if err != nil || y < 2000 || y > 2100 {
			errs = append(errs, "Year must be an integer between 2000 and 2100")
		}
		q.Year = y
	}
	if len([]rune(in.Search)) > MaxSearchLen {
		errs = append(errs, fmt.Sprintf("Search term must be %d characters or fewer", MaxSearchLen))
	}
	if in.Page != nil {
		p, err := strconv.Atoi(*in.Page)
		if err != nil || p < 1 || p > MaxPage {
			errs = append(errs, "Page must be a positive integer")
		}
		q.Page = p
	}
	if in.Limit != nil {
		l, err := strconv.Atoi(*in.Limit)
		if err != nil || l < 1 || l > 100 {
			errs = append(errs, "Limit must be an integer between 1 and 100")
		}
		q.Limit = l
	}
	if in.Sort == "" {
		q.Sort = "-date"
	} else if !contains(SortFields, in.Sort) {
		errs = append(errs, "Sort must be one of: "+strings.Join(SortFields, ", "))
	}

	return q, errs
}

// TransferInput is a peer transfer body.
type TransferInput struct {
	RecipientEmail any `json:"recipientEmail"`
	Amount         any `json:"amount"`
	Description    any `json:"description"`
}

// TransferBody validates a peer transfer body.
func TransferBody(in TransferInput) []string {
	var errs []string

	email, ok := in.RecipientEmail.(string)
	switch {
	case !ok || strings.TrimSpace(email) == "":
		errs = append(errs, "Recipient email is required")
	case !IsEmail(email):
		errs = append(errs, "Recipient email is not a valid email address")
	}

	if msg := Amount(in.Amount); msg != "" {
		errs = append(errs, msg)
	}

	return append(errs, description(in.Description)...)
}

// SearchQuery validates the recipient search term. Only presence and length
// are checked; the term is matched as a substring, not as a full address.
func SearchQuery(email string) []string {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return []string{"Email search term is required"}
	}
	if len([]rune(trimmed)) > MaxSearchLen {
		return []string{fmt.Sprintf("Email search term must be %d characters or fewer", MaxSearchLen)}
	}
	return nil
}

// Password lists every unmet strength rule, in a fixed order.
func Password(p string) []string {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}

	var errs []string
	if len([]rune(p)) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLen))
	}
	if !upper {
		errs = append(errs, "Password must contain at least one uppercase letter (A-Z)")
	}
	if !lower {
		errs = append(errs, "Password must contain at least one lowercase letter (a-z)")
	}
	if !digit {
		errs = append(errs, "Password must contain at least one number (0-9)")
	}
	if !special {
		errs = append(errs, "Password must contain at least one special character (e.g. !@#$%^&*)")
	}
	return errs
}

// Registration validates a sign-up request. Field presence is reported alone;
// after that name, email and password rules are checked in that order.
func Registration(name, email, password string) []string {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return []string{"Please provide name, email, and password"}
	}
	if len([]rune(strings.TrimSpace(name))) > MaxNameLen {
		return []string{fmt.Sprintf("Name cannot be more than %d characters", MaxNameLen)}
	}
	if !IsEmail(email) {
		return []string{"Please provide a valid email"}
	}
	return Password(password)
}

// CardBalance parses an optional opening card balance and returns "" with
// the amount when it is acceptable.
func CardBalance(v any) (money.Cents, string) {
	if v == nil {
		return 0, ""
	}
	c, err := money.Parse(v)
	if err != nil {
		return 0, "Balance must be a valid number"
	}
	if c < 0 {
		return 0, "Balance cannot be negative"
	}
	if c > MaxAmount {
		return 0, "Balance must not exceed " + MaxAmount.Decimal().String()
	}
	return c, ""
}
