package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sariverse/sariverse/internal/app"
	"github.com/sariverse/sariverse/internal/auth"
	"github.com/sariverse/sariverse/internal/debtors"
	"github.com/sariverse/sariverse/internal/inventory"
	"github.com/sariverse/sariverse/internal/observability"
	"github.com/sariverse/sariverse/internal/orders"
	"github.com/sariverse/sariverse/internal/platform/cache"
	"github.com/sariverse/sariverse/internal/platform/db"
	"github.com/sariverse/sariverse/internal/products"
	"github.com/sariverse/sariverse/internal/profiles"
	"github.com/sariverse/sariverse/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	profilesRepo := profiles.NewRepository(pool)
	profilesService := profiles.NewService(profilesRepo)
	profilesHandler := profiles.NewHandler(logger, profilesService)

	authService := auth.NewService(profilesRepo, cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService)

	debtorsCache := debtors.NewCache(redisClient, cfg.CacheTTL)
	go func() {
		if err := debtorsCache.ListenForInvalidation(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("cache invalidation listener stopped", slog.Any("error", err))
		}
	}()
	debtorsRepo := debtors.NewRepository(pool)
	debtorsService := debtors.NewService(debtorsRepo, debtorsCache, logger)
	debtorsHandler := debtors.NewHandler(logger, debtorsService, debtorsCache, auditLogger, metrics)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, logger)
	productsHandler := products.NewHandler(logger, productsService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo, debtorsService, logger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthService:      authService,
		AuthHandler:      authHandler,
		ProfilesHandler:  profilesHandler,
		DebtorsHandler:   debtorsHandler,
		ProductsHandler:  productsHandler,
		InventoryHandler: inventoryHandler,
		OrdersHandler:    ordersHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
