package cmd

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/eventbus"
	"github.com/cadenzahq/cadenza/pkg/followup"
	"github.com/cadenzahq/cadenza/pkg/otelhelper"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
	"github.com/cadenzahq/cadenza/pkg/services"
	"github.com/cadenzahq/cadenza/pkg/sweeper"
)

// RuntimeOptions carries the wiring knobs shared by every binary.
type RuntimeOptions struct {
	DatabaseURL      string
	EventBusProvider string
	RedisAddr        string
	LinksBaseURL     string
	Tracing          bool

	MaxFiresPerTenant int
	GraceMinutes      int
	LookbackMinutes   int
}

// Runtime bundles the fully wired application components.
type Runtime struct {
	Persistence persistence.Persistence
	Bus         eventbus.EventBus
	Engine      *engine.Engine
	Scheduler   *followup.Scheduler
	Due         *sweeper.DueSweeper
	Scheduled   *sweeper.ScheduledSweeper
	Missed      *sweeper.MissedSweeper

	redis  *services.RedisQueueService
	logger *slog.Logger
}

// NewRuntime wires persistence, the event bus, the engine and the sweepers.
// When no redis address is configured the trigger_service hand-offs are left
// unwired and the dispatcher skips those actions.
func NewRuntime(ctx context.Context, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	store, err := NewPersistence(ctx, logger, opts.DatabaseURL)
	if err != nil {
		return nil, err
	}

	bus, err := NewEventBus(opts.EventBusProvider, logger)
	if err != nil {
		_ = store.Close(ctx)

		return nil, err
	}

	var tracer trace.Tracer

	if opts.Tracing {
		tracer, err = otelhelper.NewTracer(ctx, "cadenza")
		if err != nil {
			logger.Warn("tracing disabled, failed to initialize tracer", "error", err)
			tracer = nil
		}
	}

	collaborators := engine.Collaborators{
		SMS:      services.NewLogSMSSender(logger),
		Email:    services.NewLogEmailSender(logger),
		Webhooks: services.NewHTTPWebhookSender(0, logger),
		Bookings: services.NewNoopBookingProvider(),
	}

	if opts.LinksBaseURL != "" {
		collaborators.Links = services.NewStaticLinkProvider(opts.LinksBaseURL)
	}

	var redisQueue *services.RedisQueueService

	if opts.RedisAddr != "" {
		redisQueue, err = services.NewRedisQueueService(ctx, services.RedisQueueConfig{Addr: opts.RedisAddr}, logger)
		if err != nil {
			_ = bus.Close()
			_ = store.Close(ctx)

			return nil, err
		}

		collaborators.Calls = redisQueue
		collaborators.Campaigns = redisQueue
	}

	eng := engine.NewEngine(store, collaborators, bus, tracer, logger)

	var bookings protocol.BookingProvider = collaborators.Bookings

	scheduler := followup.NewScheduler(store, bookings, nil, bus, logger)
	due := sweeper.NewDueSweeper(store, collaborators.Email, collaborators.SMS, bus, logger)
	scheduled := sweeper.NewScheduledSweeper(store, eng, opts.MaxFiresPerTenant, bus, logger)
	missed := sweeper.NewMissedSweeper(store, bookings, eng, opts.GraceMinutes, opts.LookbackMinutes, bus, logger)

	return &Runtime{
		Persistence: store,
		Bus:         bus,
		Engine:      eng,
		Scheduler:   scheduler,
		Due:         due,
		Scheduled:   scheduled,
		Missed:      missed,
		redis:       redisQueue,
		logger:      logger,
	}, nil
}

// SubscribeReentry registers the follow_up_sent handler and starts consuming
// bus events until ctx is canceled.
func (r *Runtime) SubscribeReentry(ctx context.Context) error {
	if err := r.Engine.SubscribeFollowUpSent(r.Bus); err != nil {
		return err
	}

	return r.Bus.Subscribe(ctx)
}

// Close shuts down the runtime's connections in reverse wiring order.
func (r *Runtime) Close(ctx context.Context) {
	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			r.logger.Warn("failed to close redis client", "error", err)
		}
	}

	if err := r.Bus.Close(); err != nil {
		r.logger.Warn("failed to close event bus", "error", err)
	}

	if err := r.Persistence.Close(closeCtx); err != nil {
		r.logger.Warn("failed to close persistence", "error", err)
	}
}
