// Package server assembles the HTTP router: services, handlers and the
// middleware pipeline.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"spendify/internal/config"
	_ "spendify/internal/docs" // swagger document
	"spendify/internal/handlers"
	"spendify/internal/middleware"
	"spendify/internal/ratelimit"
	"spendify/internal/services"
)

// Services bundles the business services shared by the router and the
// background jobs in cmd/api.
type Services struct {
	Users        services.UserServicer
	Tokens       services.TokenServicer
	Transactions services.TransactionServicer
	Cards        services.CardServicer
	Transfers    services.TransferServicer
	Analytics    services.AnalyticsServicer
	Audit        services.AuditServicer
}

// NewServices wires every service against db.
func NewServices(db *gorm.DB, cfg *config.Config) *Services {
	ledger := services.NewLedger()
	users := services.NewUserService(db)
	return &Services{
		Users:        users,
		Tokens:       services.NewTokenService(db, users, cfg.JWTSecret, cfg.JWTExpirationDur, cfg.RefreshTokenTTL),
		Transactions: services.NewTransactionService(db, ledger),
		Cards:        services.NewCardService(db, ledger),
		Transfers:    services.NewTransferService(db, ledger),
		Analytics:    services.NewAnalyticsService(db),
		Audit:        services.NewAuditService(db),
	}
}

// NewRouter builds the gin engine. All rate limiters share store.
func NewRouter(cfg *config.Config, svc *Services, store ratelimit.Store) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Tokens, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Audit)
	cardHandler := handlers.NewCardHandler(svc.Cards, svc.Audit)
	transferHandler := handlers.NewTransferHandler(svc.Transfers, svc.Audit)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.ClientURL))
	router.Use(middleware.ErrorHandler())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", middleware.APIKeyAuth(cfg.MetricsAPIKey), gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.Sanitize())
	api.Use(middleware.CSRF(cfg.IsProduction()))
	api.Use(middleware.RateLimit(store, middleware.GlobalPolicy(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)))

	api.GET("/health", handlers.Health)
	api.GET("/csrf-token", handlers.CSRFToken)

	protect := middleware.Auth(svc.Tokens)

	// Auth routes
	auth := api.Group("/auth")
	auth.POST("/register", middleware.RateLimit(store, middleware.RegisterPolicy), authHandler.Register)
	auth.POST("/login", middleware.RateLimit(store, middleware.LoginPolicy), authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", protect, authHandler.Logout)
	auth.GET("/me", protect, authHandler.GetMe)

	// Transaction routes
	transactions := api.Group("/transactions", protect)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Card routes
	cards := api.Group("/cards", protect)
	cards.GET("", cardHandler.GetUserCards)
	cards.POST("", cardHandler.CreateCard)
	cards.POST("/transfer", cardHandler.TransferBetweenCards)
	cards.GET("/:id", cardHandler.GetCardByID)
	cards.PUT("/:id", cardHandler.UpdateCard)
	cards.DELETE("/:id", cardHandler.DeleteCard)

	// Peer transfer routes
	transfer := api.Group("/transfer", protect)
	transfer.POST("/send", transferHandler.SendMoney)
	transfer.GET("/history", transferHandler.GetTransferHistory)
	transfer.GET("/search", transferHandler.SearchUsers)

	// Analytics routes
	analytics := api.Group("/analytics", protect)
	analytics.GET("/monthly", analyticsHandler.Monthly)
	analytics.GET("/category", analyticsHandler.Category)
	analytics.GET("/trends", analyticsHandler.Trends)
	analytics.GET("/summary", analyticsHandler.Summary)

	return router
}
