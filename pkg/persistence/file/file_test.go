package file

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestPersistence_AutomationsRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Welcome flow",
		Nodes: []*models.Node{
			{
				ID:     "t1",
				Type:   models.NodeTypeTrigger,
				Config: models.TriggerConfig{Kind: models.TriggerNewLead},
			},
			{
				ID:   "a1",
				Type: models.NodeTypeAction,
				Config: models.ActionConfig{
					Kind: models.ActionSendSMS,
					Body: "Welcome {contact.firstName}!",
				},
			},
		},
		Edges: []*models.Edge{
			{From: "t1", FromPort: models.PortOut, To: "a1"},
		},
	}

	require.NoError(t, p.SaveAutomations(ctx, "owner-1", []*models.Automation{automation}))

	loaded, err := p.Automations(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "auto-1", loaded[0].ID)
	require.Len(t, loaded[0].Nodes, 2)

	trigger, ok := loaded[0].Nodes[0].TriggerConfigOf()
	require.True(t, ok)
	assert.Equal(t, models.TriggerNewLead, trigger.Kind)

	action, ok := loaded[0].Nodes[1].ActionConfigOf()
	require.True(t, ok)
	assert.Equal(t, models.ActionSendSMS, action.Kind)
	assert.Equal(t, "Welcome {contact.firstName}!", action.Body)
}

func TestPersistence_AbsentOwnerReturnsEmpty(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	automations, err := p.Automations(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, automations)

	followUps, err := p.FollowUps(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, followUps.Settings.Enabled)
	assert.Empty(t, followUps.Queue)

	schedule, err := p.ScheduleState(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, schedule.State.LastFired)
}

func TestPersistence_Owners(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.SaveFollowUps(ctx, "owner-a", &models.FollowUpDocument{}))
	require.NoError(t, p.SaveScheduleState(ctx, "owner-b", &models.ScheduleDocument{}))

	owners, err := p.Owners(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"owner-a", "owner-b"}, owners)
}

func TestPersistence_OwnersEmptyRoot(t *testing.T) {
	p := NewPersistence(filepath.Join(t.TempDir(), "missing"), slog.New(slog.NewTextHandler(os.Stderr, nil)))

	owners, err := p.Owners(context.Background())
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func TestPersistence_RejectsInvalidOwnerID(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	for _, ownerID := range []string{"", "..", "a/b", `a\b`} {
		_, err := p.Automations(ctx, ownerID)
		assert.True(t, persistence.IsInvalidOwnerID(err), "read %q", ownerID)

		err = p.SaveFollowUps(ctx, ownerID, &models.FollowUpDocument{})
		assert.True(t, persistence.IsInvalidOwnerID(err), "write %q", ownerID)
	}
}

func TestPersistence_FollowUpsRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	sendAt := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	doc := &models.FollowUpDocument{
		Settings: models.FollowUpSettings{
			Enabled: true,
			DefaultSteps: []*models.FollowUpStep{
				{
					ID:           "step-1",
					Name:         "Thanks",
					Enabled:      true,
					DelayMinutes: 60,
					Audience:     models.AudienceContact,
					Channels:     models.StepChannels{Email: true},
					EmailSubject: "Thanks for visiting",
					EmailBody:    "See you soon",
				},
			},
		},
		Queue: []*models.FollowUpQueueItem{
			{
				ID:        "q-1",
				BookingID: "booking-1",
				OwnerID:   "owner-1",
				StepID:    "step-1",
				Channel:   models.ChannelEmail,
				To:        "ana@example.com",
				SendAt:    sendAt,
				Status:    models.QueueStatusPending,
			},
		},
	}

	require.NoError(t, p.SaveFollowUps(ctx, "owner-1", doc))

	loaded, err := p.FollowUps(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, loaded.Settings.Enabled)
	require.Len(t, loaded.Queue, 1)
	assert.Equal(t, models.QueueStatusPending, loaded.Queue[0].Status)
	assert.True(t, loaded.Queue[0].SendAt.Equal(sendAt))
}

func TestPersistence_DropsMalformedAutomationEntries(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence(dir, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	raw := `{
		"version": 2,
		"automations": [
			{"id": "good", "name": "Good", "nodes": [], "edges": []},
			{"name": "missing id"},
			"not even an object"
		]
	}`

	ownerDir := filepath.Join(dir, "owner-1")
	require.NoError(t, os.MkdirAll(ownerDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ownerDir, "automations.json"), []byte(raw), 0o644))

	loaded, err := p.Automations(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "good", loaded[0].ID)
}

func TestPersistence_ScheduleStateRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	fired := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	doc := &models.ScheduleDocument{
		State: models.ScheduleState{
			LastFired:     map[string]time.Time{models.ScheduleKey("auto-1", "t1"): fired},
			FiredBookings: []string{"booking-1"},
		},
	}

	require.NoError(t, p.SaveScheduleState(ctx, "owner-1", doc))

	loaded, err := p.ScheduleState(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, loaded.State.LastFired[models.ScheduleKey("auto-1", "t1")].Equal(fired))
	assert.Equal(t, []string{"booking-1"}, loaded.State.FiredBookings)
}
