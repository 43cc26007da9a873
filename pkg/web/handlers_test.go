package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/followup"
	"github.com/cadenzahq/cadenza/pkg/mocks"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence/file"
	"github.com/cadenzahq/cadenza/pkg/sweeper"
	"github.com/cadenzahq/cadenza/pkg/web"
)

type testFixture struct {
	app      *fiber.App
	store    *file.Persistence
	sms      *mocks.MockSMSSender
	email    *mocks.MockEmailSender
	bookings *mocks.MockBookingProvider
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func setupTestApp(t *testing.T) *testFixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir(), testLogger())
	sms := &mocks.MockSMSSender{}
	email := &mocks.MockEmailSender{}
	bookings := &mocks.MockBookingProvider{}

	eng := engine.NewEngine(store, engine.Collaborators{SMS: sms, Email: email}, nil, nil, testLogger())
	scheduler := followup.NewScheduler(store, bookings, nil, nil, testLogger())
	due := sweeper.NewDueSweeper(store, email, sms, nil, testLogger())
	scheduled := sweeper.NewScheduledSweeper(store, eng, 0, nil, testLogger())
	missed := sweeper.NewMissedSweeper(store, bookings, eng, 0, 0, nil, testLogger())

	handlers := web.NewAPIHandlers(eng, scheduler, due, scheduled, missed, store,
		validator.New(validator.WithRequiredStructEnabled()), testLogger())

	app := fiber.New()
	web.Register(app, handlers)

	return &testFixture{app: app, store: store, sms: sms, email: email, bookings: bookings}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(body, &out))

	return out
}

func TestIngestEvent_RunsMatchingAutomations(t *testing.T) {
	fixture := setupTestApp(t)

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Greeter",
		Nodes: []*models.Node{
			{
				ID:     "t1",
				Type:   models.NodeTypeTrigger,
				Config: models.TriggerConfig{Kind: models.TriggerInboundMessage},
			},
			{
				ID:   "a1",
				Type: models.NodeTypeAction,
				Config: models.ActionConfig{
					Kind:          models.ActionSendSMS,
					RecipientMode: models.RecipientInboundSender,
					Body:          "thanks for reaching out",
				},
			},
		},
		Edges: []*models.Edge{{From: "t1", FromPort: models.PortOut, To: "a1"}},
	}
	require.NoError(t, fixture.store.SaveAutomations(context.Background(), "owner-1",
		[]*models.Automation{automation}))

	fixture.sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "thanks for reaching out").
		Return(nil).Once()

	resp := postJSON(t, fixture.app, "/v1/owners/owner-1/events", web.IngestEventRequest{
		Kind:    "inbound_message",
		Message: &models.Message{From: "+15550001111", Body: "hi"},
	})

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	result := decodeBody[web.IngestEventResponse](t, resp)
	assert.Equal(t, "accepted", result.Status)
	fixture.sms.AssertExpectations(t)
}

func TestIngestEvent_UnknownKindRejected(t *testing.T) {
	fixture := setupTestApp(t)

	resp := postJSON(t, fixture.app, "/v1/owners/owner-1/events", web.IngestEventRequest{
		Kind: "made_up_kind",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestEvent_MissingKindRejected(t *testing.T) {
	fixture := setupTestApp(t)

	resp := postJSON(t, fixture.app, "/v1/owners/owner-1/events", map[string]any{
		"message": map[string]string{"body": "hi"},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScheduleFollowUps_CreatesItems(t *testing.T) {
	fixture := setupTestApp(t)

	end := time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC)
	require.NoError(t, fixture.store.SaveFollowUps(context.Background(), "owner-1", &models.FollowUpDocument{
		Settings: models.FollowUpSettings{
			Enabled: true,
			DefaultSteps: []*models.FollowUpStep{{
				ID:           "step-1",
				Name:         "Thanks",
				Enabled:      true,
				DelayMinutes: 60,
				Audience:     models.AudienceContact,
				Channels:     models.StepChannels{Email: true},
				EmailSubject: "Thanks",
				EmailBody:    "See you again",
			}},
		},
	}))

	fixture.bookings.On("BookingByID", mock.Anything, "owner-1", "booking-1").
		Return(&models.Booking{
			ID:           "booking-1",
			ContactEmail: "ana@example.com",
			StartAt:      end.Add(-time.Hour),
			EndAt:        end,
			Status:       models.BookingStatusScheduled,
		}, nil)

	resp := postJSON(t, fixture.app, "/v1/owners/owner-1/bookings/booking-1/followups", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[followup.ScheduleResult](t, resp)
	assert.Equal(t, 1, result.Scheduled)
}

func TestScheduleFollowUps_DisabledIsZeroNoOp(t *testing.T) {
	fixture := setupTestApp(t)

	require.NoError(t, fixture.store.SaveFollowUps(context.Background(), "owner-1",
		&models.FollowUpDocument{Settings: models.FollowUpSettings{Enabled: false}}))

	resp := postJSON(t, fixture.app, "/v1/owners/owner-1/bookings/booking-1/followups", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[followup.ScheduleResult](t, resp)
	assert.Zero(t, result.Scheduled)
	assert.Equal(t, followup.ReasonDisabled, result.Reason)
}

func TestGetFollowUps_FiltersByStatus(t *testing.T) {
	fixture := setupTestApp(t)

	now := time.Now().UTC()
	require.NoError(t, fixture.store.SaveFollowUps(context.Background(), "owner-1", &models.FollowUpDocument{
		Settings: models.FollowUpSettings{Enabled: true},
		Queue: []*models.FollowUpQueueItem{
			{ID: "q-1", BookingID: "b-1", Status: models.QueueStatusPending, SendAt: now, CreatedAt: now},
			{ID: "q-2", BookingID: "b-1", Status: models.QueueStatusSent, SendAt: now, CreatedAt: now},
			{ID: "q-3", BookingID: "b-2", Status: models.QueueStatusPending, SendAt: now, CreatedAt: now},
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/owners/owner-1/followups?status=PENDING&booking_id=b-1", nil)
	resp, err := fixture.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[web.FollowUpQueueResponse](t, resp)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "q-1", result.Items[0].ID)
}

func TestSweepDue_SendsDueItems(t *testing.T) {
	fixture := setupTestApp(t)

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, fixture.store.SaveFollowUps(context.Background(), "owner-1", &models.FollowUpDocument{
		Settings: models.FollowUpSettings{Enabled: true},
		Queue: []*models.FollowUpQueueItem{{
			ID:        "q-1",
			BookingID: "b-1",
			OwnerID:   "owner-1",
			StepID:    "step-1",
			Channel:   models.ChannelEmail,
			To:        "ana@example.com",
			Subject:   "Thanks",
			Body:      "See you again",
			SendAt:    past,
			Status:    models.QueueStatusPending,
			CreatedAt: past,
		}},
	}))

	fixture.email.On("SendEmail", mock.Anything, "owner-1", "ana@example.com", "Thanks", "See you again", "").
		Return(nil).Once()

	resp := postJSON(t, fixture.app, "/v1/sweeps/due", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stats := decodeBody[sweeper.SweepStats](t, resp)
	assert.Equal(t, 1, stats.Sent)
	fixture.email.AssertExpectations(t)
}

func TestSweepDue_RejectsBadLimit(t *testing.T) {
	fixture := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/sweeps/due?limit=abc", nil)
	resp, err := fixture.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	fixture := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := fixture.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
