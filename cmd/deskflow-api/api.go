// Package main provides the Deskflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/deskflow/pkg/eventbus"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/dukex/deskflow/pkg/registry"
	"github.com/dukex/deskflow/pkg/services"
	"github.com/dukex/deskflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	executor    web.TriggerExecutor
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
}

// NewAPI builds the HTTP server. publisher may be nil, in which case asynchronous triggers are rejected.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	executor web.TriggerExecutor,
	publisher eventbus.EventPublisher,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		executor:    executor,
		publisher:   publisher,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	playbookService := services.NewPlaybooks(a.persistence, a.registry)

	handlers := web.NewAPIHandlers(playbookService, a.executor, a.publisher, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := playbookService.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Deskflow API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
