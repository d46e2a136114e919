package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/services"
	"spendify/internal/validator"
)

// AnalyticsHandler serves read-only spending reports.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
	now              func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, now: time.Now}
}

// period validates the year, month and type query parameters.
func period(c *gin.Context) (validator.Query, error) {
	q, errs := validator.TransactionQuery(validator.QueryInput{
		Type:  c.Query("type"),
		Month: queryPtr(c, "month"),
		Year:  queryPtr(c, "year"),
	})
	if len(errs) > 0 {
		return q, apperrors.Validation(errs...)
	}
	return q, nil
}

// Monthly reports one month's totals
// @Summary     Monthly totals
// @Description Income, expense, balance and count for a month, with expense growth against the previous month. Defaults to the current month.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int false "Year (2000-2100)"
// @Param       month query int false "Month (1-12)"
// @Success     200 {object} services.MonthlyReport "Monthly report"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /analytics/monthly [get]
func (h *AnalyticsHandler) Monthly(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	q, err := period(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	now := h.now().UTC()
	if q.Year == 0 {
		q.Year = now.Year()
	}
	if q.Month == 0 {
		q.Month = int(now.Month())
	}

	report, err := h.analyticsService.Monthly(userID, q.Year, q.Month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", report)
}

// Category breaks spending down by category
// @Summary     Category breakdown
// @Description Per-category totals with percentage shares, for a month or a whole year. Defaults to the current year.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       year  query int    false "Year (2000-2100)"
// @Param       month query int    false "Month (1-12); omit for the whole year"
// @Param       type  query string false "income or expense"
// @Success     200 {object} services.CategoryReport "Category report"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /analytics/category [get]
func (h *AnalyticsHandler) Category(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	q, err := period(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if q.Year == 0 {
		q.Year = h.now().UTC().Year()
	}

	report, err := h.analyticsService.Categories(userID, q.Year, q.Month, models.TransactionType(q.Type))
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", report)
}

// Trends reports the last N months
// @Summary     Monthly trends
// @Description Income, expense and balance for each of the last N calendar months, oldest first.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of months (1-24, default 6)"
// @Success     200 {array} services.TrendPoint "Trend series"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /analytics/trends [get]
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months := services.DefaultTrendMonths
	if raw, ok := c.GetQuery("months"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(c, apperrors.Validation("Months must be an integer between 1 and 24"))
			return
		}
		months = n
	}

	trends, err := h.analyticsService.Trends(userID, months, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", trends)
}

// Summary returns the dashboard overview
// @Summary     Dashboard summary
// @Description Wallet balance, current month and all-time totals, five most recent transactions and top five expense categories this month.
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.DashboardSummary "Summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.analyticsService.Summary(userID, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", summary)
}
