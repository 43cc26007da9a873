package sweeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/engine"
	"github.com/cadenzahq/cadenza/pkg/events"
	"github.com/cadenzahq/cadenza/pkg/mocks"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence/file"
)

func missedAutomation() *models.Automation {
	return &models.Automation{
		ID:   "auto-1",
		Name: "Missed appointment outreach",
		Nodes: []*models.Node{
			{
				ID:     "t1",
				Type:   models.NodeTypeTrigger,
				Config: models.TriggerConfig{Kind: models.TriggerMissedAppointment},
			},
			{
				ID:   "a1",
				Type: models.NodeTypeAction,
				Config: models.ActionConfig{
					Kind:          models.ActionSendSMS,
					RecipientMode: models.RecipientEventContact,
					Body:          "Sorry we missed you, {contact.firstName}",
				},
			},
		},
		Edges: []*models.Edge{{From: "t1", FromPort: models.PortOut, To: "a1"}},
	}
}

func missedBooking(id string) *models.Booking {
	return &models.Booking{
		ID:           id,
		CalendarID:   "cal-1",
		ContactID:    "c-1",
		ContactName:  "Ana Silva",
		ContactPhone: "+15550001111",
		StartAt:      sweepNow.Add(-2 * time.Hour),
		EndAt:        sweepNow.Add(-time.Hour),
		Status:       models.BookingStatusScheduled,
	}
}

func newMissedFixture(t *testing.T, bookings *mocks.MockBookingProvider) (*MissedSweeper, *file.Persistence, *mocks.MockSMSSender) {
	t.Helper()

	store := file.NewPersistence(t.TempDir(), testLogger())
	require.NoError(t, store.SaveAutomations(context.Background(), "owner-1",
		[]*models.Automation{missedAutomation()}))

	contacts := &mocks.MockContactStore{}
	contacts.On("ByID", mock.Anything, "owner-1", "c-1").
		Return(&models.Contact{ID: "c-1", Name: "Ana Silva", Phone: "+15550001111"}, nil).Maybe()

	sms := &mocks.MockSMSSender{}

	eng := engine.NewEngine(store, engine.Collaborators{SMS: sms, Contacts: contacts}, nil, nil, testLogger())

	s := NewMissedSweeper(store, bookings, eng, 0, 0, nil, testLogger())
	s.now = func() time.Time { return sweepNow }

	return s, store, sms
}

func TestMissedSweep_FiresForScheduledPastBooking(t *testing.T) {
	bookings := &mocks.MockBookingProvider{}
	bookings.On("ScheduledBookingsEndedBetween", mock.Anything, "owner-1",
		sweepNow.Add(-time.Duration(DefaultLookbackMinutes)*time.Minute),
		sweepNow.Add(-time.Duration(DefaultGraceMinutes)*time.Minute)).
		Return([]*models.Booking{missedBooking("booking-1")}, nil)

	s, store, sms := newMissedFixture(t, bookings)
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "Sorry we missed you, Ana").Return(nil).Once()

	stats, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	doc, err := store.ScheduleState(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.True(t, doc.State.BookingFired("booking-1"))
	sms.AssertExpectations(t)
	bookings.AssertExpectations(t)
}

func TestMissedSweep_DebouncesFiredBooking(t *testing.T) {
	bookings := &mocks.MockBookingProvider{}
	bookings.On("ScheduledBookingsEndedBetween", mock.Anything, "owner-1", mock.Anything, mock.Anything).
		Return([]*models.Booking{missedBooking("booking-1")}, nil)

	s, store, sms := newMissedFixture(t, bookings)
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "Sorry we missed you, Ana").Return(nil).Once()

	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	// The provider still reports the booking; the fired set suppresses it.
	stats, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Sent)

	doc, err := store.ScheduleState(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Len(t, doc.State.FiredBookings, 1)
	sms.AssertExpectations(t)
}

func TestMissedSweep_NoMissedBookingsIsNoOp(t *testing.T) {
	bookings := &mocks.MockBookingProvider{}
	bookings.On("ScheduledBookingsEndedBetween", mock.Anything, "owner-1", mock.Anything, mock.Anything).
		Return([]*models.Booking{}, nil)

	s, store, sms := newMissedFixture(t, bookings)

	stats, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)

	doc, err := store.ScheduleState(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, doc.State.FiredBookings)
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMissedSweep_ProviderErrorCountsFailedTenant(t *testing.T) {
	bookings := &mocks.MockBookingProvider{}
	bookings.On("ScheduledBookingsEndedBetween", mock.Anything, "owner-1", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	s, _, _ := newMissedFixture(t, bookings)

	stats, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
}

func TestMissedSweep_PublishesSweepCompleted(t *testing.T) {
	bookings := &mocks.MockBookingProvider{}
	bookings.On("ScheduledBookingsEndedBetween", mock.Anything, "owner-1", mock.Anything, mock.Anything).
		Return([]*models.Booking{missedBooking("booking-1")}, nil)

	s, _, sms := newMissedFixture(t, bookings)
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "Sorry we missed you, Ana").Return(nil)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "missed", mock.MatchedBy(func(event any) bool {
		completed, ok := event.(events.SweepCompleted)

		return ok && completed.Sweep == "missed" && completed.Sent == 1
	})).Return(nil)
	s.publisher = bus

	_, err := s.Sweep(context.Background())
	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestMissedSweep_FiredSetStaysBounded(t *testing.T) {
	state := models.ScheduleState{}
	for i := 0; i < models.MaxFiredBookings+25; i++ {
		state.RecordBookingFired(fmt.Sprintf("b-%d", i))
	}

	assert.Len(t, state.FiredBookings, models.MaxFiredBookings)
	assert.False(t, state.BookingFired("b-0"))
	assert.True(t, state.BookingFired(fmt.Sprintf("b-%d", models.MaxFiredBookings+24)))
}
