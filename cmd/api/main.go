package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/employee-service/internal/api/http"
	"github.com/spec-kit/employee-service/internal/api/http/handlers"
	"github.com/spec-kit/employee-service/internal/audit"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/config"
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/observability"
	"github.com/spec-kit/employee-service/internal/persistence"
	"github.com/spec-kit/employee-service/internal/repository"
	"github.com/spec-kit/employee-service/internal/service"
	"github.com/spec-kit/employee-service/internal/worker"
)

const poolStatsInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	go reportPoolStats(ctx, metrics, pg)

	store := repository.NewPostgresTransactor(pool, logger)
	gate := auth.NewGate(tokens, auth.NewIdentityResolver(store.Users()), metrics, logger)
	recorder := audit.NewRecorder()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartEmployeeEventWorker(dispatcher, logger, metrics)

	authService := service.NewAuthService(service.AuthDependencies{
		Store:    store,
		Hasher:   auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Tokens:   tokens,
		Recorder: recorder,
		Throttle: persistence.NewLoginAttempts(redis, cfg.Auth.MaxFailedLogins, cfg.Auth.LoginLockout(), logger),
		Logger:   logger,
	})
	employeeService := service.NewEmployeeService(service.EmployeeDependencies{
		Store:      store,
		Gate:       gate,
		Recorder:   recorder,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Employees:      handlers.NewEmployeesHandler(employeeService),
		AuthMiddleware: auth.NewAuthMiddleware(gate),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func reportPoolStats(ctx context.Context, metrics *observability.Metrics, pg *persistence.Postgres) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		metrics.RecordDBPool(pg.PoolHandle())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
