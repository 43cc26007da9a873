package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampedDelay(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int
		expected int
	}{
		{"negative clamps to zero", -10, 0},
		{"zero", 0, 0},
		{"normal", 60, 60},
		{"ten year cap", MaxStepDelayMinutes + 1, MaxStepDelayMinutes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := &FollowUpStep{DelayMinutes: tt.minutes}
			assert.Equal(t, tt.expected, step.ClampedDelay())
		})
	}
}

func TestQueueIdentityKey(t *testing.T) {
	assert.Equal(t,
		QueueIdentityKey("b1", "s1", ChannelEmail, "Ada@Example.com "),
		QueueIdentityKey("b1", "s1", ChannelEmail, "ada@example.com"))

	assert.Equal(t,
		QueueIdentityKey("b1", "s1", ChannelSMS, "+1 (555) 000-1234"),
		QueueIdentityKey("b1", "s1", ChannelSMS, "+15550001234"))

	assert.NotEqual(t,
		QueueIdentityKey("b1", "s1", ChannelEmail, "a@b.c"),
		QueueIdentityKey("b1", "s2", ChannelEmail, "a@b.c"))

	assert.NotEqual(t,
		QueueIdentityKey("b1", "s1", ChannelEmail, "a@b.c"),
		QueueIdentityKey("b1", "s1", ChannelSMS, "a@b.c"))
}

func TestStepsForCalendar(t *testing.T) {
	defaultChain := []*FollowUpStep{{ID: "d1"}}
	calendarChain := []*FollowUpStep{{ID: "c1"}}

	settings := &FollowUpSettings{
		Enabled:       true,
		DefaultSteps:  defaultChain,
		CalendarSteps: map[string][]*FollowUpStep{"cal-1": calendarChain},
	}

	assert.Equal(t, calendarChain, settings.StepsForCalendar("cal-1"))
	assert.Equal(t, defaultChain, settings.StepsForCalendar("cal-2"))
	assert.Equal(t, defaultChain, settings.StepsForCalendar(""))
}

func TestScheduleStateTriggerDue(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	state := &ScheduleState{}

	key := ScheduleKey("auto-1", "t1")

	// Never fired: due.
	assert.True(t, state.TriggerDue(key, 60, now))

	state.RecordFired(key, now)

	// Five minutes later: not due yet.
	assert.False(t, state.TriggerDue(key, 60, now.Add(5*time.Minute)))

	// Exactly one interval later: due again.
	assert.True(t, state.TriggerDue(key, 60, now.Add(60*time.Minute)))

	// Non-positive intervals never fire.
	assert.False(t, state.TriggerDue(key, 0, now.Add(time.Hour)))
}

func TestRecordBookingFiredBounded(t *testing.T) {
	state := &ScheduleState{}

	for i := 0; i < MaxFiredBookings+25; i++ {
		state.RecordBookingFired(time.Now().Format("b-") + string(rune('a'+i%26)) + "-" + time.Duration(i).String())
	}

	assert.Len(t, state.FiredBookings, MaxFiredBookings)
}
