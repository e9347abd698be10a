package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/propertyhub/propertyhub/internal/admin"
	"github.com/propertyhub/propertyhub/internal/app"
	"github.com/propertyhub/propertyhub/internal/approval"
	"github.com/propertyhub/propertyhub/internal/audit"
	audithttp "github.com/propertyhub/propertyhub/internal/audit/http"
	"github.com/propertyhub/propertyhub/internal/auth"
	"github.com/propertyhub/propertyhub/internal/favorites"
	"github.com/propertyhub/propertyhub/internal/gate"
	"github.com/propertyhub/propertyhub/internal/inquiries"
	"github.com/propertyhub/propertyhub/internal/notifications"
	"github.com/propertyhub/propertyhub/internal/observability"
	"github.com/propertyhub/propertyhub/internal/platform/cache"
	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/stats"
	"github.com/propertyhub/propertyhub/internal/users"
	"github.com/propertyhub/propertyhub/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Logger: logger}
	auditWriter := audit.NewWriter()

	tokens, err := auth.NewTokenService(cfg.TokenConfig())
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}
	accountStore := auth.NewStore(dbpool)
	authService := auth.NewService(accountStore, tokens, auth.NewRedisRevocationStore(redisClient), logger)
	authHandler := auth.NewHandler(logger, authService, cfg.CookieConfig(), rbacMiddleware, cfg.RateLimitAuth)

	notificationService := notifications.NewService(notifications.NewQueries(dbpool), jobClient, logger)
	notificationHandler := notifications.NewHandler(logger, notificationService, rbacMiddleware)

	propertyService := properties.NewService(properties.NewRepository(dbpool, auditWriter), logger)
	propertyHandler := properties.NewHandler(logger, propertyService, rbacMiddleware)

	favoriteService := favorites.NewService(favorites.NewStore(dbpool), propertyService, logger)
	favoriteHandler := favorites.NewHandler(logger, favoriteService, rbacMiddleware)

	inquiryService := inquiries.NewService(inquiries.NewStore(dbpool), propertyService, accountStore, notificationService, logger)
	inquiryHandler := inquiries.NewHandler(logger, inquiryService, rbacMiddleware, cfg.RateLimitInquiry)

	statsService := stats.NewService(stats.NewCounter(dbpool), stats.NewCache(redisClient, cfg.StatsCacheTTL), logger)
	approvalService := approval.NewService(approval.NewStore(dbpool, auditWriter), jobClient, metrics, logger).
		WithInvalidators(statsService)

	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)))
	adminHandler := admin.NewHandler(
		logger,
		users.NewService(users.NewQueries(dbpool)),
		propertyService,
		approvalService,
		rbacMiddleware,
		auditHandler,
		stats.NewHandler(logger, statsService),
	)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Gate:                gate.New(tokens, gate.DefaultRoutes(), logger, metrics),
		Metrics:             metrics,
		AuthHandler:         authHandler,
		PropertyHandler:     propertyHandler,
		InquiryHandler:      inquiryHandler,
		FavoriteHandler:     favoriteHandler,
		NotificationHandler: notificationHandler,
		AdminHandler:        adminHandler,
		JobHandler:          jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
