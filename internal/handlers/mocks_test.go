package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"spendify/internal/logger"
	"spendify/internal/middleware"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/pagination"
	"spendify/internal/services"
	"spendify/internal/validator"
)

// --- mock services ---

type mockUserService struct {
	registerFn       func(name, email, password string) (*models.User, error)
	attemptLoginFn   func(email, password string) (*models.User, error)
	getUserByIDFn    func(id string) (*models.User, error)
	getUserByEmailFn func(email string) (*models.User, error)
}

func (m *mockUserService) Register(name, email, password string) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(name, email, password)
	}
	return testUser("user-1"), nil
}

func (m *mockUserService) AttemptLogin(email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return testUser("user-1"), nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return testUser(id), nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return testUser("user-1"), nil
}

var _ services.UserServicer = (*mockUserService)(nil)

type mockTokenService struct {
	issuePairFn    func(userID, fingerprint string) (*services.TokenPair, error)
	authenticateFn func(accessToken, fingerprint string) (*models.User, error)
	refreshFn      func(refreshToken, fingerprint string) (*services.TokenPair, error)
	logoutFn       func(userID, accessToken, refreshToken string) error
}

func (m *mockTokenService) Fingerprint(userAgent, ip string) string {
	return "fp:" + userAgent + ":" + ip
}

func (m *mockTokenService) IssuePair(userID, fingerprint string) (*services.TokenPair, error) {
	if m.issuePairFn != nil {
		return m.issuePairFn(userID, fingerprint)
	}
	return &services.TokenPair{AccessToken: "access-" + userID, RefreshToken: "refresh-" + userID}, nil
}

func (m *mockTokenService) Authenticate(accessToken, fingerprint string) (*models.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(accessToken, fingerprint)
	}
	return testUser("user-1"), nil
}

func (m *mockTokenService) Refresh(refreshToken, fingerprint string) (*services.TokenPair, error) {
	if m.refreshFn != nil {
		return m.refreshFn(refreshToken, fingerprint)
	}
	return &services.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func (m *mockTokenService) Logout(userID, accessToken, refreshToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(userID, accessToken, refreshToken)
	}
	return nil
}

func (m *mockTokenService) PurgeExpired() (int64, error) { return 0, nil }

var _ services.TokenServicer = (*mockTokenService)(nil)

type mockTransactionService struct {
	createTransactionFn   func(userID string, txType models.TransactionType, amount money.Cents, category, description string, date time.Time) (*models.Transaction, error)
	getTransactionByIDFn  func(userID, transactionID string) (*models.Transaction, error)
	getUserTransactionsFn func(userID string, filter services.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	updateTransactionFn   func(userID, transactionID string, patch services.TransactionPatch) (*models.Transaction, error)
	deleteTransactionFn   func(userID, transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(userID string, txType models.TransactionType, amount money.Cents, category, description string, date time.Time) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, txType, amount, category, description, date)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, filter services.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, filter, page)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, page, 0)
	return &resp, nil
}

func (m *mockTransactionService) UpdateTransaction(userID, transactionID string, patch services.TransactionPatch) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(userID, transactionID, patch)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

type mockCardService struct {
	createCardFn   func(userID string, in services.CardInput) (*models.Card, error)
	getUserCardsFn func(userID string) ([]models.Card, error)
	getCardByIDFn  func(userID, cardID string) (*models.Card, error)
	updateCardFn   func(userID, cardID string, patch services.CardPatch) (*models.Card, error)
	deleteCardFn   func(userID, cardID string) error
	transferFn     func(userID, fromCardID, toCardID string, amount money.Cents) (*services.CardTransferResult, error)
}

func (m *mockCardService) CreateCard(userID string, in services.CardInput) (*models.Card, error) {
	if m.createCardFn != nil {
		return m.createCardFn(userID, in)
	}
	return &models.Card{}, nil
}

func (m *mockCardService) GetUserCards(userID string) ([]models.Card, error) {
	if m.getUserCardsFn != nil {
		return m.getUserCardsFn(userID)
	}
	return []models.Card{}, nil
}

func (m *mockCardService) GetCardByID(userID, cardID string) (*models.Card, error) {
	if m.getCardByIDFn != nil {
		return m.getCardByIDFn(userID, cardID)
	}
	return &models.Card{}, nil
}

func (m *mockCardService) UpdateCard(userID, cardID string, patch services.CardPatch) (*models.Card, error) {
	if m.updateCardFn != nil {
		return m.updateCardFn(userID, cardID, patch)
	}
	return &models.Card{}, nil
}

func (m *mockCardService) DeleteCard(userID, cardID string) error {
	if m.deleteCardFn != nil {
		return m.deleteCardFn(userID, cardID)
	}
	return nil
}

func (m *mockCardService) TransferBetweenCards(userID, fromCardID, toCardID string, amount money.Cents) (*services.CardTransferResult, error) {
	if m.transferFn != nil {
		return m.transferFn(userID, fromCardID, toCardID, amount)
	}
	return &services.CardTransferResult{FromCard: &models.Card{}, ToCard: &models.Card{}, Amount: amount}, nil
}

var _ services.CardServicer = (*mockCardService)(nil)

type mockTransferService struct {
	sendMoneyFn   func(senderID, recipientEmail string, amount money.Cents, description string) (*services.PeerTransferResult, error)
	historyFn     func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	searchUsersFn func(userID, emailTerm string) ([]services.UserMatch, error)
}

func (m *mockTransferService) SendMoney(senderID, recipientEmail string, amount money.Cents, description string) (*services.PeerTransferResult, error) {
	if m.sendMoneyFn != nil {
		return m.sendMoneyFn(senderID, recipientEmail, amount, description)
	}
	return &services.PeerTransferResult{Sender: &models.User{}, Recipient: &models.User{}, Amount: amount, Transaction: &models.Transaction{}}, nil
}

func (m *mockTransferService) GetTransferHistory(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.historyFn != nil {
		return m.historyFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, page, 0)
	return &resp, nil
}

func (m *mockTransferService) SearchUsers(userID, emailTerm string) ([]services.UserMatch, error) {
	if m.searchUsersFn != nil {
		return m.searchUsersFn(userID, emailTerm)
	}
	return []services.UserMatch{}, nil
}

var _ services.TransferServicer = (*mockTransferService)(nil)

type mockAnalyticsService struct {
	monthlyFn    func(userID string, year, month int) (*services.MonthlyReport, error)
	categoriesFn func(userID string, year, month int, txType models.TransactionType) (*services.CategoryReport, error)
	trendsFn     func(userID string, months int, now time.Time) ([]services.TrendPoint, error)
	summaryFn    func(userID string, now time.Time) (*services.DashboardSummary, error)
}

func (m *mockAnalyticsService) Monthly(userID string, year, month int) (*services.MonthlyReport, error) {
	if m.monthlyFn != nil {
		return m.monthlyFn(userID, year, month)
	}
	return &services.MonthlyReport{}, nil
}

func (m *mockAnalyticsService) Categories(userID string, year, month int, txType models.TransactionType) (*services.CategoryReport, error) {
	if m.categoriesFn != nil {
		return m.categoriesFn(userID, year, month, txType)
	}
	return &services.CategoryReport{}, nil
}

func (m *mockAnalyticsService) Trends(userID string, months int, now time.Time) ([]services.TrendPoint, error) {
	if m.trendsFn != nil {
		return m.trendsFn(userID, months, now)
	}
	return []services.TrendPoint{}, nil
}

func (m *mockAnalyticsService) Summary(userID string, now time.Time) (*services.DashboardSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(userID, now)
	}
	return &services.DashboardSummary{}, nil
}

var _ services.AnalyticsServicer = (*mockAnalyticsService)(nil)

type auditEntry struct {
	userID, action, resourceType, resourceID string
}

type mockAuditService struct {
	entries []auditEntry
}

func (m *mockAuditService) Log(userID, action, resourceType, resourceID, _ string, _ map[string]any) {
	m.entries = append(m.entries, auditEntry{userID, action, resourceType, resourceID})
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

func testUser(id string) *models.User {
	u := &models.User{Name: "Jane Doe", Email: "jane@example.com", Balance: 150000}
	u.ID = id
	return u
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uid)
		c.Set(middleware.AccessTokenKey, "access-token")
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	if result["success"] != false {
		t.Errorf("expected success=false, got %v", result["success"])
	}
	if result["code"] != code {
		t.Errorf("expected error code %q, got %q (message: %v)", code, result["code"], result["message"])
	}
}

func assertMessage(t *testing.T, result map[string]interface{}, message string) {
	t.Helper()
	if result["message"] != message {
		t.Errorf("expected message %q, got %q", message, result["message"])
	}
}
