// Package main provides the Cadenza root CLI: serve the API, run one sweep
// pass, or run the event-bus worker.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/cadenzahq/cadenza/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "cadenza",
		Usage:                 "Tenant automation engine and follow-up scheduler",
		EnableShellCompletion: true,
		Flags:                 runtimeFlags(),
		Commands: []*cli.Command{
			apiCommand(),
			sweepCommand(),
			workerCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("cadenza").Error("command failed", "error", err)
		os.Exit(1)
	}
}

func runtimeFlags() []cli.Flag {
	return []cli.Flag{
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
	}
}
