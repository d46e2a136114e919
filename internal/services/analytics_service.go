package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
)

// Report sizes.
const (
	recentTransactionLimit = 5
	topCategoryLimit       = 5
	DefaultTrendMonths     = 6
	MaxTrendMonths         = 24
)

// Period identifies a reporting window. Month is nil for a whole year.
type Period struct {
	Month *int `json:"month"`
	Year  int  `json:"year"`
}

// Totals is the income and expense sum over some window.
type Totals struct {
	Income  money.Cents `json:"income"`
	Expense money.Cents `json:"expense"`
	Balance money.Cents `json:"balance"`
}

// MonthlyReport compares one month against the previous one.
type MonthlyReport struct {
	Period           Period      `json:"period"`
	Income           money.Cents `json:"income"`
	Expense          money.Cents `json:"expense"`
	Balance          money.Cents `json:"balance"`
	TransactionCount int64       `json:"transactionCount"`
	GrowthPercentage float64     `json:"growthPercentage"`
	Comparison       struct {
		PreviousMonth struct {
			Expense money.Cents `json:"expense"`
		} `json:"previousMonth"`
	} `json:"comparison"`
}

// CategoryTotal is one category's share of a report.
type CategoryTotal struct {
	Category   string                 `json:"category"`
	Amount     money.Cents            `json:"amount"`
	Count      int64                  `json:"count"`
	Type       models.TransactionType `json:"type,omitempty"`
	Percentage *float64               `json:"percentage,omitempty"`
}

// CategoryReport breaks a period down by category, largest first.
type CategoryReport struct {
	Categories []CategoryTotal `json:"categories"`
	Total      money.Cents     `json:"total"`
	Period     Period          `json:"period"`
}

// TrendPoint is one month of a trend series.
type TrendPoint struct {
	Month     int         `json:"month"`
	Year      int         `json:"year"`
	MonthName string      `json:"monthName"`
	Income    money.Cents `json:"income"`
	Expense   money.Cents `json:"expense"`
	Balance   money.Cents `json:"balance"`
}

// DashboardSummary is the landing-page overview for a user.
type DashboardSummary struct {
	Balance            money.Cents          `json:"balance"`
	Monthly            Totals               `json:"monthly"`
	AllTime            AllTimeTotals        `json:"allTime"`
	RecentTransactions []models.Transaction `json:"recentTransactions"`
	TopCategories      []CategoryTotal      `json:"topCategories"`
}

// AllTimeTotals sums every transaction a user has recorded.
type AllTimeTotals struct {
	Income  money.Cents `json:"income"`
	Expense money.Cents `json:"expense"`
}

// analyticsService computes read-only reports over transactions. Month
// boundaries are UTC.
type analyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB) AnalyticsServicer {
	return &analyticsService{db: db}
}

type typeTotal struct {
	Type  models.TransactionType
	Total int64
	Count int64
}

// totals sums income and expense for userID in [from, to). Zero times
// leave that side unbounded.
func (s *analyticsService) totals(userID string, from, to time.Time) (Totals, int64, error) {
	q := s.db.Model(&models.Transaction{}).
		Select("type, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID)
	if !from.IsZero() {
		q = q.Where("date >= ? AND date < ?", from, to)
	}

	var rows []typeTotal
	if err := q.Group("type").Scan(&rows).Error; err != nil {
		return Totals{}, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var t Totals
	var count int64
	for _, r := range rows {
		switch r.Type {
		case models.TransactionTypeIncome:
			t.Income += money.Cents(r.Total)
		case models.TransactionTypeExpense:
			t.Expense += money.Cents(r.Total)
		}
		count += r.Count
	}
	t.Balance = t.Income - t.Expense
	return t, count, nil
}

// Monthly reports a month's totals and the change in spending against the
// month before it.
func (s *analyticsService) Monthly(userID string, year, month int) (*MonthlyReport, error) {
	from, to := monthRange(year, month)
	current, count, err := s.totals(userID, from, to)
	if err != nil {
		return nil, err
	}
	previous, _, err := s.totals(userID, from.AddDate(0, -1, 0), from)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{
		Period:           Period{Month: &month, Year: year},
		Income:           current.Income,
		Expense:          current.Expense,
		Balance:          current.Balance,
		TransactionCount: count,
		GrowthPercentage: percentChange(current.Expense, previous.Expense),
	}
	report.Comparison.PreviousMonth.Expense = previous.Expense
	return report, nil
}

type categoryRow struct {
	Category string
	Type     models.TransactionType
	Total    int64
	Count    int64
}

func (s *analyticsService) categoryTotals(userID string, from, to time.Time, txType models.TransactionType, limit int) ([]categoryRow, error) {
	q := s.db.Model(&models.Transaction{}).
		Select("category, MIN(type) AS type, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total, COUNT(*) AS count").
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to)
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	q = q.Group("category").Order("total DESC").Order("category ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []categoryRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// Categories breaks a month (or a whole year when month is 0) down by
// category, optionally for one transaction type.
func (s *analyticsService) Categories(userID string, year, month int, txType models.TransactionType) (*CategoryReport, error) {
	period := Period{Year: year}
	from, to := yearRange(year)
	if month != 0 {
		from, to = monthRange(year, month)
		period.Month = &month
	}

	rows, err := s.categoryTotals(userID, from, to, txType, 0)
	if err != nil {
		return nil, err
	}

	var total money.Cents
	for _, r := range rows {
		total += money.Cents(r.Total)
	}

	categories := make([]CategoryTotal, 0, len(rows))
	for _, r := range rows {
		pct := share(money.Cents(r.Total), total)
		categories = append(categories, CategoryTotal{
			Category:   r.Category,
			Amount:     money.Cents(r.Total),
			Count:      r.Count,
			Type:       r.Type,
			Percentage: &pct,
		})
	}
	return &CategoryReport{Categories: categories, Total: total, Period: period}, nil
}

// Trends returns income and expense for the last months calendar months,
// ending with the month containing now, oldest first.
func (s *analyticsService) Trends(userID string, months int, now time.Time) ([]TrendPoint, error) {
	if months < 1 || months > MaxTrendMonths {
		return nil, apperrors.Validation("Months must be an integer between 1 and 24")
	}

	now = now.UTC()
	last := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := last.AddDate(0, -(months - 1), 0)

	points := make([]TrendPoint, months)
	for i := range points {
		m := first.AddDate(0, i, 0)
		points[i] = TrendPoint{Month: int(m.Month()), Year: m.Year(), MonthName: m.Month().String()[:3]}
	}

	var rows []models.Transaction
	if err := s.db.Select("type", "amount", "date").
		Where("user_id = ? AND date >= ? AND date < ?", userID, first, last.AddDate(0, 1, 0)).
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, r := range rows {
		d := r.Date.UTC()
		idx := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			continue
		}
		if r.Type == models.TransactionTypeIncome {
			points[idx].Income += r.Amount
		} else {
			points[idx].Expense += r.Amount
		}
	}
	for i := range points {
		points[i].Balance = points[i].Income - points[i].Expense
	}
	return points, nil
}

// Summary assembles the dashboard overview for the month containing now.
func (s *analyticsService) Summary(userID string, now time.Time) (*DashboardSummary, error) {
	var user models.User
	if err := s.db.Select("id", "balance").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now = now.UTC()
	from, to := monthRange(now.Year(), int(now.Month()))
	monthly, _, err := s.totals(userID, from, to)
	if err != nil {
		return nil, err
	}
	allTime, _, err := s.totals(userID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	recent := []models.Transaction{}
	if err := s.db.Where("user_id = ?", userID).
		Scopes(orderBy("-date")).
		Limit(recentTransactionLimit).
		Find(&recent).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rows, err := s.categoryTotals(userID, from, to, models.TransactionTypeExpense, topCategoryLimit)
	if err != nil {
		return nil, err
	}
	top := make([]CategoryTotal, 0, len(rows))
	for _, r := range rows {
		top = append(top, CategoryTotal{Category: r.Category, Amount: money.Cents(r.Total), Count: r.Count})
	}

	return &DashboardSummary{
		Balance:            user.Balance,
		Monthly:            monthly,
		AllTime:            AllTimeTotals{Income: allTime.Income, Expense: allTime.Expense},
		RecentTransactions: recent,
		TopCategories:      top,
	}, nil
}

var hundred = decimal.NewFromInt(100)

// percentChange is (current-previous)/previous as a percentage with two
// decimals; 0 when there is no previous value.
func percentChange(current, previous money.Cents) float64 {
	if previous == 0 {
		return 0
	}
	prev := decimal.NewFromInt(int64(previous))
	return decimal.NewFromInt(int64(current)).Sub(prev).Mul(hundred).Div(prev).Round(2).InexactFloat64()
}

// share is part/total as a percentage with two decimals.
func share(part, total money.Cents) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2).InexactFloat64()
}
