// Package main provides the Cadenza API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/cadenzahq/cadenza/pkg/cmd"
	"github.com/cadenzahq/cadenza/pkg/web"
)

type API struct {
	runtime  *cmd.Runtime
	logger   *slog.Logger
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, runtime *cmd.Runtime) *API {
	return &API{
		runtime:  runtime,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.runtime.Engine,
		a.runtime.Scheduler,
		a.runtime.Due,
		a.runtime.Scheduled,
		a.runtime.Missed,
		a.runtime.Persistence,
		a.validate,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadenza API")
	})

	web.Register(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
