package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/lyceum-erp/lyceum-erp/internal/app"
	"github.com/lyceum-erp/lyceum-erp/internal/auth"
	"github.com/lyceum-erp/lyceum-erp/internal/authz"
	"github.com/lyceum-erp/lyceum-erp/internal/observability"
	"github.com/lyceum-erp/lyceum-erp/internal/permissions"
	"github.com/lyceum-erp/lyceum-erp/internal/platform/cache"
	"github.com/lyceum-erp/lyceum-erp/internal/platform/db"
	"github.com/lyceum-erp/lyceum-erp/internal/roles"
	"github.com/lyceum-erp/lyceum-erp/internal/users"
	"github.com/lyceum-erp/lyceum-erp/jobs"
)

// denialQueue forwards denial events to the background queue.
type denialQueue struct {
	client *jobs.Client
}

func (q denialQueue) EnqueueAccessDenied(ctx context.Context, event authz.DenialEvent) error {
	_, err := q.client.EnqueueAccessDenied(ctx, jobs.AccessDeniedPayload{
		PrincipalID:         event.PrincipalID,
		RequiredPermissions: event.RequiredPermissions,
		Method:              event.Method,
		Path:                event.Path,
		Reason:              event.Reason,
		OccurredAt:          event.OccurredAt,
	})
	return err
}

func main() {
	_ = godotenv.Load()

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
		logger.Warn("redis unavailable, permission caching disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authzRepo := authz.NewRepository(pool)
	authzCache := authz.NewCache(redisClient, cfg.AuthzCacheTTL)
	if err := authzCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	authzService := authz.NewService(authzRepo, authzCache, logger)
	recorder := authz.NewRecorder(logger, metrics, denialQueue{client: jobsClient})
	gate := authz.Gate{Service: authzService, Logger: logger, Events: recorder}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(logger, authService, authzService, gate)

	permissionsRepo := permissions.NewRepository(pool)
	permissionsService := permissions.NewService(permissionsRepo, authzCache, logger)
	permissionsHandler := permissions.NewHandler(logger, permissionsService, gate)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, authzCache, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, gate)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, authzCache, logger)
	usersHandler := users.NewHandler(logger, usersService, authzService, gate)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Principal:          auth.Principal(authService),
		AuthHandler:        authHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		UsersHandler:       usersHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
