// Package web provides the HTTP surface for event ingestion, follow-up
// scheduling, queue inspection and manual sweep invocation.
package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/followup"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/sweeper"
)

type APIHandlers struct {
	engine      *engine.Engine
	scheduler   *followup.Scheduler
	due         *sweeper.DueSweeper
	scheduled   *sweeper.ScheduledSweeper
	missed      *sweeper.MissedSweeper
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	eng *engine.Engine,
	scheduler *followup.Scheduler,
	due *sweeper.DueSweeper,
	scheduled *sweeper.ScheduledSweeper,
	missed *sweeper.MissedSweeper,
	store persistence.Persistence,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		engine:      eng,
		scheduler:   scheduler,
		due:         due,
		scheduled:   scheduled,
		missed:      missed,
		persistence: store,
		validator:   validate,
		logger:      logger.With("module", "web"),
	}
}

// Register mounts every route on the app.
func Register(app *fiber.App, h *APIHandlers) {
	v1 := app.Group("/v1")

	owners := v1.Group("/owners/:ownerID")
	owners.Post("/events", h.IngestEvent)
	owners.Post("/bookings/:bookingID/followups", h.ScheduleFollowUps)
	owners.Get("/followups", h.GetFollowUps)

	sweeps := v1.Group("/sweeps")
	sweeps.Post("/due", h.SweepDue)
	sweeps.Post("/scheduled", h.SweepScheduled)
	sweeps.Post("/missed", h.SweepMissed)

	app.Get("/health", h.HealthCheck)
}

// IngestEvent runs every automation matching the posted trigger event.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	ownerID := c.Params("ownerID")
	if ownerID == "" {
		return badRequest(c, "owner ID is required")
	}

	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !models.TriggerKind(req.Kind).IsValid() {
		return badRequest(c, "unknown trigger kind: "+req.Kind)
	}

	if err := h.engine.RunAll(c.Context(), ownerID, req.TriggerEvent()); err != nil {
		if persistence.IsInvalidOwnerID(err) {
			return badRequest(c, "invalid owner ID")
		}

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(IngestEventResponse{
		Status: "accepted",
		Kind:   req.Kind,
	})
}

// ScheduleFollowUps reconciles the follow-up queue for one booking.
func (h *APIHandlers) ScheduleFollowUps(c fiber.Ctx) error {
	ownerID := c.Params("ownerID")
	bookingID := c.Params("bookingID")

	if ownerID == "" || bookingID == "" {
		return badRequest(c, "owner ID and booking ID are required")
	}

	result, err := h.scheduler.ScheduleForBooking(c.Context(), ownerID, bookingID)
	if err != nil {
		if persistence.IsInvalidOwnerID(err) {
			return badRequest(c, "invalid owner ID")
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

// GetFollowUps returns the tenant's follow-up queue, optionally filtered by
// status and booking id.
func (h *APIHandlers) GetFollowUps(c fiber.Ctx) error {
	ownerID := c.Params("ownerID")
	if ownerID == "" {
		return badRequest(c, "owner ID is required")
	}

	doc, err := h.persistence.FollowUps(c.Context(), ownerID)
	if err != nil {
		if persistence.IsInvalidOwnerID(err) {
			return badRequest(c, "invalid owner ID")
		}

		return internalError(c, err)
	}

	status := c.Query("status")
	bookingID := c.Query("booking_id")

	items := make([]*models.FollowUpQueueItem, 0, len(doc.Queue))

	for _, item := range doc.Queue {
		if status != "" && string(item.Status) != status {
			continue
		}

		if bookingID != "" && item.BookingID != bookingID {
			continue
		}

		items = append(items, item)
	}

	return c.JSON(FollowUpQueueResponse{
		Enabled: doc.Settings.Enabled,
		Items:   items,
		Total:   len(items),
	})
}

// SweepDue drains due follow-up items. The optional limit query caps the pass.
func (h *APIHandlers) SweepDue(c fiber.Ctx) error {
	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}

		limit = parsed
	}

	stats, err := h.due.ProcessDue(c.Context(), limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(stats)
}

// SweepScheduled fires due scheduled_time triggers across all tenants.
func (h *APIHandlers) SweepScheduled(c fiber.Ctx) error {
	stats, err := h.scheduled.Sweep(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(stats)
}

// SweepMissed fires missed_appointment events across all tenants.
func (h *APIHandlers) SweepMissed(c fiber.Ctx) error {
	stats, err := h.missed.Sweep(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(stats)
}

// HealthCheck reports storage health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := fiber.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = fiber.StatusInternalServerError

		h.logger.Warn("health check failed", "error", err)
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
