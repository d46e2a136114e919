package services

import (
	"time"

	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/pagination"
)

// UserServicer defines the contract for registration and credential checks.
type UserServicer interface {
	Register(name, email, password string) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
}

// TokenPair is a short-lived access token and its rotating refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenServicer defines the contract for session tokens.
type TokenServicer interface {
	Fingerprint(userAgent, ip string) string
	IssuePair(userID, fingerprint string) (*TokenPair, error)
	Authenticate(accessToken, fingerprint string) (*models.User, error)
	Refresh(refreshToken, fingerprint string) (*TokenPair, error)
	Logout(userID, accessToken, refreshToken string) error
	PurgeExpired() (int64, error)
}

// TransactionFilter holds the validated list filters for transactions.
// Zero values mean "no filter".
type TransactionFilter struct {
	Type     models.TransactionType
	Category string
	Search   string
	Month    int
	Year     int
	Sort     string
}

// TransactionPatch holds the fields supplied for an edit; nil means unchanged.
type TransactionPatch struct {
	Amount      *money.Cents
	Type        *models.TransactionType
	Category    *string
	Description *string
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction bookkeeping.
type TransactionServicer interface {
	CreateTransaction(userID string, txType models.TransactionType, amount money.Cents, category, description string, date time.Time) (*models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(userID string, filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(userID, transactionID string, patch TransactionPatch) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// CardInput is a validated new card. Number is the full 16-digit number and
// is reduced to its last four digits before storage.
type CardInput struct {
	Number     string
	HolderName string
	Expiry     string
	CardType   models.CardType
	Balance    money.Cents
}

// CardPatch holds the editable card fields; nil means unchanged.
type CardPatch struct {
	HolderName *string
	Expiry     *string
	CardType   *models.CardType
}

// CardTransferResult reports both sides of a card-to-card transfer.
type CardTransferResult struct {
	FromCard *models.Card
	ToCard   *models.Card
	Amount   money.Cents
}

// CardServicer defines the contract for stored-value cards.
type CardServicer interface {
	CreateCard(userID string, in CardInput) (*models.Card, error)
	GetUserCards(userID string) ([]models.Card, error)
	GetCardByID(userID, cardID string) (*models.Card, error)
	UpdateCard(userID, cardID string, patch CardPatch) (*models.Card, error)
	DeleteCard(userID, cardID string) error
	TransferBetweenCards(userID, fromCardID, toCardID string, amount money.Cents) (*CardTransferResult, error)
}

// PeerTransferResult reports a completed wallet-to-wallet transfer.
type PeerTransferResult struct {
	Sender      *models.User
	Recipient   *models.User
	Amount      money.Cents
	Transaction *models.Transaction
}

// UserMatch is the public view of a user returned by recipient search.
type UserMatch struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TransferServicer defines the contract for peer transfers.
type TransferServicer interface {
	SendMoney(senderID, recipientEmail string, amount money.Cents, description string) (*PeerTransferResult, error)
	GetTransferHistory(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	SearchUsers(userID, emailTerm string) ([]UserMatch, error)
}

// AnalyticsServicer defines the contract for read-only spending reports.
type AnalyticsServicer interface {
	Monthly(userID string, year, month int) (*MonthlyReport, error)
	Categories(userID string, year, month int, txType models.TransactionType) (*CategoryReport, error)
	Trends(userID string, months int, now time.Time) ([]TrendPoint, error)
	Summary(userID string, now time.Time) (*DashboardSummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
