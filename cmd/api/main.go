package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendify/internal/config"
	"spendify/internal/database"
	"spendify/internal/logger"
	"spendify/internal/ratelimit"
	"spendify/internal/redis"
	"spendify/internal/server"
	"spendify/internal/services"
	"spendify/internal/validator"
)

// @title           Spendify API
// @version         1.0
// @description     Spendify is a personal finance API: a wallet balance, income and expense tracking, stored-value cards, peer transfers and spending analytics.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newRateLimitStore(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := server.NewServices(dbManager.DB(), appConfig)
	go purgeTokens(ctx, svc.Tokens, appConfig.TokenPurgeInterval)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           server.NewRouter(appConfig, svc, store),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Spendify server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRateLimitStore picks the shared redis store or the per-process memory
// store. The returned func releases the store's resources.
func newRateLimitStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, func(), error) {
	if cfg.RateLimitStore == "redis" {
		client, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Get().Infow("rate limiting backed by redis", "addr", cfg.RedisAddr)
		return ratelimit.NewRedisStore(client.Client, "spendify:rl:"), func() { _ = client.Close() }, nil
	}

	store := ratelimit.NewMemoryStore()
	go store.Run(ctx, time.Minute)
	return store, func() {}, nil
}

// purgeTokens drops expired blacklist entries and refresh tokens until ctx ends.
func purgeTokens(ctx context.Context, tokens services.TokenServicer, interval time.Duration) {
	log := logger.Get()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tokens.PurgeExpired()
			if err != nil {
				log.Warnw("token purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Infow("purged expired tokens", "count", n)
			}
		}
	}
}
