package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tenantcore/internal/api"
	"tenantcore/internal/auth"
	"tenantcore/internal/cache"
	"tenantcore/internal/config"
	"tenantcore/internal/invitation"
	"tenantcore/internal/logging"
	"tenantcore/internal/membership"
	"tenantcore/internal/messaging"
	"tenantcore/internal/metrics"
	"tenantcore/internal/rls"
	"tenantcore/internal/storage"
	"tenantcore/internal/supplier"
	"tenantcore/internal/tenant"
)

// @title Multi-Tenant Platform API
// @version 1.0
// @description Tenant resolution, isolation and invitation onboarding for the business platform
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// Init Metrics
	metrics.Init()

	// Load Configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded")

	// Init PostgreSQL
	db, err := storage.NewStorage(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("failed to init db", zap.Error(err))
	}
	defer db.DB.Close()
	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatal("failed to migrate db", zap.Error(err))
	}
	logger.Info("postgres connected")

	// Optional resolution cache
	var lookup *cache.TenantLookup
	if cfg.Redis.Addr != "" {
		lookup, err = cache.NewTenantLookup(cfg.Redis.Addr, logger)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer lookup.Close()
		logger.Info("redis connected")
	}

	// Optional invitation notifier
	var notifier *messaging.Notifier
	if cfg.RabbitMQ.URL != "" {
		notifier, err = messaging.NewNotifier(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer notifier.Close()
		logger.Info("rabbitmq connected")

		// Background loop for the notifier queue depth gauge
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				notifier.UpdateQueueDepth()
			}
		}()
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	resolver := tenant.NewResolver(db, lookup, logger)
	bridge := rls.NewBridge(db.DB, logger)

	var invNotifier invitation.Notifier
	if notifier != nil {
		invNotifier = notifier
	}
	invites := invitation.NewService(db, invNotifier, cfg.Invitations.Expiry, logger)
	members := membership.NewService(db, logger)
	suppliers := supplier.NewStore()

	// Init API
	apiHandler := api.NewAPI(db, resolver, bridge, invites, members, suppliers, tokens, logger)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: apiHandler.Router(),
	}

	// Graceful Shutdown Setup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done() // Wait for interrupt signal
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	logger.Info("graceful shutdown complete")
}
