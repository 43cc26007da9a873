// Package main provides the Cadenza sweeper daemon: cron-driven due-item,
// scheduled-trigger and missed-appointment sweeps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/cadenzahq/cadenza/pkg/cmd"
	"github.com/cadenzahq/cadenza/pkg/log"
)

func main() {
	logger := log.WithModule("sweeper")

	command := &cli.Command{
		Name:                  "cadenza-sweeper",
		Usage:                 "Run the periodic follow-up and trigger sweeps",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
				Name:    "due-cron",
				Usage:   "Cron expression for the due-item sweep",
				Value:   "* * * * *",
				Sources: cli.EnvVars("DUE_CRON"),
			},
			&cli.StringFlag{
				Name:    "scheduled-cron",
				Usage:   "Cron expression for the scheduled-trigger sweep",
				Value:   "* * * * *",
				Sources: cli.EnvVars("SCHEDULED_CRON"),
			},
			&cli.StringFlag{
				Name:    "missed-cron",
				Usage:   "Cron expression for the missed-appointment sweep",
				Value:   "*/5 * * * *",
				Sources: cli.EnvVars("MISSED_CRON"),
			},
			&cli.IntFlag{
				Name:    "due-limit",
				Usage:   "Maximum items one due sweep pass may act on",
				Sources: cli.EnvVars("DUE_LIMIT"),
			},
			&cli.IntFlag{
				Name:    "max-fires-per-tenant",
				Usage:   "Maximum scheduled triggers fired per tenant per pass",
				Sources: cli.EnvVars("MAX_FIRES_PER_TENANT"),
			},
			&cli.IntFlag{
				Name:    "grace-minutes",
				Usage:   "Minutes past booking end before it counts as missed",
				Sources: cli.EnvVars("GRACE_MINUTES"),
			},
			&cli.IntFlag{
				Name:    "lookback-minutes",
				Usage:   "How far back the missed sweep scans",
				Sources: cli.EnvVars("LOOKBACK_MINUTES"),
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
		Action: runDaemon,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("sweeper exited with error", "error", err)
		os.Exit(1)
	}
}

func runDaemon(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("sweeper")
	logger.InfoContext(ctx, "Initializing Cadenza sweeper")

	runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeOptions{
		DatabaseURL:       command.String("database-url"),
		EventBusProvider:  command.String("event-bus"),
		RedisAddr:         command.String("redis-url"),
		Tracing:           command.Bool("tracing"),
		MaxFiresPerTenant: command.Int("max-fires-per-tenant"),
		GraceMinutes:      command.Int("grace-minutes"),
		LookbackMinutes:   command.Int("lookback-minutes"),
	})
	if err != nil {
		return err
	}

	defer runtime.Close(ctx)

	if err := runtime.SubscribeReentry(ctx); err != nil {
		return err
	}

	dueLimit := command.Int("due-limit")

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := scheduler.AddFunc(command.String("due-cron"), func() {
		stats, err := runtime.Due.ProcessDue(ctx, dueLimit)
		if err != nil {
			logger.Error("due sweep failed", "error", err)

			return
		}

		logger.Info("due sweep completed",
			"processed", stats.Processed, "sent", stats.Sent, "skipped", stats.Skipped, "failed", stats.Failed)
	}); err != nil {
		return err
	}

	if _, err := scheduler.AddFunc(command.String("scheduled-cron"), func() {
		stats, err := runtime.Scheduled.Sweep(ctx)
		if err != nil {
			logger.Error("scheduled sweep failed", "error", err)

			return
		}

		logger.Info("scheduled sweep completed", "fired", stats.Sent, "failed", stats.Failed)
	}); err != nil {
		return err
	}

	if _, err := scheduler.AddFunc(command.String("missed-cron"), func() {
		stats, err := runtime.Missed.Sweep(ctx)
		if err != nil {
			logger.Error("missed sweep failed", "error", err)

			return
		}

		logger.Info("missed sweep completed", "fired", stats.Sent, "failed", stats.Failed)
	}); err != nil {
		return err
	}

	scheduler.Start()
	logger.InfoContext(ctx, "Sweeper started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case sig := <-stop:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	logger.Info("Sweeper stopped")

	return nil
}
