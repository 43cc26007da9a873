package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/cadenzahq/cadenza/pkg/cmd"
	"github.com/cadenzahq/cadenza/pkg/log"
	"github.com/cadenzahq/cadenza/pkg/web"
)

func newRuntime(ctx context.Context, command *cli.Command) (*cmd.Runtime, error) {
	log.Setup(command.String("log-level"))

	return cmd.NewRuntime(ctx, log.WithModule("cadenza"), cmd.RuntimeOptions{
		DatabaseURL:      command.String("database-url"),
		EventBusProvider: command.String("event-bus"),
		RedisAddr:        command.String("redis-url"),
		LinksBaseURL:     command.String("links-base-url"),
		Tracing:          command.Bool("tracing"),
	})
}

func apiCommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   9090,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			runtime, err := newRuntime(ctx, command)
			if err != nil {
				return err
			}

			defer runtime.Close(ctx)

			if err := runtime.SubscribeReentry(ctx); err != nil {
				return err
			}

			handlers := web.NewAPIHandlers(
				runtime.Engine,
				runtime.Scheduler,
				runtime.Due,
				runtime.Scheduled,
				runtime.Missed,
				runtime.Persistence,
				validator.New(validator.WithRequiredStructEnabled()),
				log.WithModule("cadenza"),
			)

			app := fiber.New()
			app.Use(cors.New())
			app.Use(logger.New(logger.Config{DisableColors: true}))
			web.Register(app, handlers)

			return app.Listen(":" + strconv.Itoa(command.Int("port")))
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:      "sweep",
		Usage:     "Run one sweep pass and exit",
		ArgsUsage: "due|scheduled|missed",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Usage:   "Maximum items the due sweep may act on",
				Sources: cli.EnvVars("DUE_LIMIT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			kind := command.Args().First()

			runtime, err := newRuntime(ctx, command)
			if err != nil {
				return err
			}

			defer runtime.Close(ctx)

			sweepLogger := log.WithModule("cadenza")

			switch kind {
			case "due":
				stats, err := runtime.Due.ProcessDue(ctx, command.Int("limit"))
				if err != nil {
					return err
				}

				sweepLogger.Info("due sweep completed",
					"processed", stats.Processed, "sent", stats.Sent, "skipped", stats.Skipped, "failed", stats.Failed)
			case "scheduled":
				stats, err := runtime.Scheduled.Sweep(ctx)
				if err != nil {
					return err
				}

				sweepLogger.Info("scheduled sweep completed", "fired", stats.Sent, "failed", stats.Failed)
			case "missed":
				stats, err := runtime.Missed.Sweep(ctx)
				if err != nil {
					return err
				}

				sweepLogger.Info("missed sweep completed", "fired", stats.Sent, "failed", stats.Failed)
			default:
				return fmt.Errorf("unknown sweep kind %q, expected due, scheduled or missed", kind)
			}

			return nil
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Consume bus events and run re-entry triggers until interrupted",
		Action: func(ctx context.Context, command *cli.Command) error {
			runtime, err := newRuntime(ctx, command)
			if err != nil {
				return err
			}

			defer runtime.Close(ctx)

			if err := runtime.SubscribeReentry(ctx); err != nil {
				return err
			}

			workerLogger := log.WithModule("cadenza")
			workerLogger.InfoContext(ctx, "Worker started")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-ctx.Done():
			case sig := <-stop:
				workerLogger.Info("received shutdown signal", "signal", sig.String())
			}

			return nil
		},
	}
}
