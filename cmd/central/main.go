// The central service: authentication, session lifecycle, and the
// application registry.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/centralhq/central/apps"
	"github.com/centralhq/central/auth"
	"github.com/centralhq/central/config"
	"github.com/centralhq/central/logging"
	"github.com/centralhq/central/reply"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		println(err.Error())
		os.Exit(1)
	}

	logger := logging.New("central", cfg.Env)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DBDSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenService(&cfg.Auth, logger)
	session := auth.NewSessionManager(repo, tokens, &cfg.Auth).WithLogger(logger)
	guard := auth.NewGuard(tokens, repo.RefreshTokens(), logger)

	app := fiber.New(fiber.Config{
		AppName:      "central",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return reply.OK(c, "Welcome to the centralized application system")
	})

	api := app.Group("/api/v1")

	auth.NewController(session, &cfg.Auth, auth.WithControllerLogger(logger)).
		RegisterRoutes(api, guard)

	registry := apps.NewService(repo).WithLogger(logger)
	apps.NewController(registry).WithLogger(logger).
		RegisterRoutes(api, guard)

	go func() {
		logger.Info("central listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed: %v", err)
	}
}
