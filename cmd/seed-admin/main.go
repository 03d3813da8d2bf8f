// Command seed-admin creates the initial ADMIN account if it does not exist.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/audit"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/config"
	"github.com/spec-kit/employee-service/internal/observability"
	"github.com/spec-kit/employee-service/internal/persistence"
	"github.com/spec-kit/employee-service/internal/repository"
	"github.com/spec-kit/employee-service/internal/service"
)

func main() {
	email := flag.String("email", "admin@example.com", "admin email")
	password := flag.String("password", "hola123123", "admin password")
	fullName := flag.String("name", "Admin", "admin full name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	svc := service.NewAuthService(service.AuthDependencies{
		Store:    repository.NewPostgresTransactor(pg.PoolHandle(), logger),
		Hasher:   auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Recorder: audit.NewRecorder(),
		Logger:   logger,
	})

	var name *string
	if *fullName != "" {
		name = fullName
	}
	user, created, err := svc.SeedAdmin(ctx, *email, *password, name)
	if err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	if !created {
		logger.Info("user already exists", zap.String("email", user.Email), zap.String("role", string(user.Role)))
		return
	}
	logger.Info("admin created", zap.String("email", user.Email), zap.Int64("id", user.ID))
}
