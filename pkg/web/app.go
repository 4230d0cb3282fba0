package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowlens/flowlens/pkg/models"
)

// NewApp builds the Fiber application with all routes registered.
func NewApp(defaultCfg models.SimulationConfig) *fiber.App {
	handlers := NewAPIHandlers(validator.New(validator.WithRequiredStructEnabled()), defaultCfg)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowlens API")
	})

	v1 := app.Group("/api/v1")
	v1.Post("/simulate", handlers.Simulate)
	v1.Post("/sensitivity", handlers.Sensitivity)
	v1.Post("/intervene", handlers.Intervene)
	v1.Post("/leverage", handlers.Leverage)
	v1.Post("/workflow/validate", handlers.ValidateWorkflow)
	v1.Post("/workflow/mermaid", handlers.Mermaid)

	app.Get("/health", handlers.HealthCheck)

	return app
}
