package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/cadenzahq/cadenza/pkg/cmd"
	"github.com/cadenzahq/cadenza/pkg/log"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "cadenza-api",
		Usage:                 "Serve the automation and follow-up HTTP API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file path or postgres:// URL)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis address for service hand-off queues",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "links-base-url",
				Usage:   "Base URL for tenant review and booking links",
				Sources: cli.EnvVars("LINKS_BASE_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Cadenza API")

			runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptions{
				DatabaseURL:      command.String("database-url"),
				EventBusProvider: command.String("event-bus"),
				RedisAddr:        command.String("redis-url"),
				LinksBaseURL:     command.String("links-base-url"),
				Tracing:          command.Bool("tracing"),
			})
			if err != nil {
				return err
			}

			defer runtime.Close(ctx)

			if err := runtime.SubscribeReentry(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

				return err
			}

			api := NewAPI(logger, runtime)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("api exited with error", "error", err)
		os.Exit(1)
	}
}
