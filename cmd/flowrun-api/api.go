// Package main provides the flowrun API server implementation.
package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/metrics"
	"github.com/dukex/flowrun/pkg/scheduler"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	logger   *slog.Logger
	runtime  *cmd.Runtime
	validate *validator.Validate

	// nil when the worker owns waking scheduled executions
	poller *scheduler.Poller
}

func NewAPI(logger *slog.Logger, runtime *cmd.Runtime, wakeInterval time.Duration) *API {
	api := &API{
		logger:   logger,
		runtime:  runtime,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	if wakeInterval > 0 {
		api.poller = scheduler.NewPoller(runtime.Manager, logger, scheduler.WithInterval(wakeInterval))
	}

	return api
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		services.NewWorkflow(a.runtime.Persistence),
		a.runtime.Manager,
		a.validate,
		a.runtime.Registry,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowrun API")
	})

	handlers.RegisterRoutes(app)

	return app
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	if a.poller != nil {
		if err := a.poller.Start(ctx); err != nil {
			return err
		}

		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := a.poller.Stop(stopCtx); err != nil {
				a.logger.Error("Failed to stop wake poller", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	err := app.Listen(":" + strconv.Itoa(port))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
