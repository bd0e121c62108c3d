// The products service: a product catalog guarded by access tokens issued
// by the central service.
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

	"github.com/centralhq/central/auth"
	"github.com/centralhq/central/config"
	"github.com/centralhq/central/logging"
	"github.com/centralhq/central/products"
	"github.com/centralhq/central/reply"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		println(err.Error())
		os.Exit(1)
	}

	logger := logging.New("products", cfg.Env)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DBDSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	// Token verification and the session liveness check share the central
	// database; products keep their own tables alongside.
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenService(&cfg.Auth, logger)
	guard := auth.NewGuard(tokens, repo.RefreshTokens(), logger)

	catalog := products.NewService(products.NewStore(db)).WithLogger(logger)

	app := fiber.New(fiber.Config{
		AppName:      "products",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return reply.OK(c, "Welcome to the product service")
	})

	api := app.Group("/api/v1")

	products.NewController(catalog).WithLogger(logger).
		RegisterRoutes(api, guard)

	go func() {
		logger.Info("products listening on :%s", cfg.Port)
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
