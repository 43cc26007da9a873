package models

import (
	"time"
)

// MaxFiredBookings bounds the per-tenant set of booking ids already fired as
// missed appointments. Oldest entries roll off first.
const MaxFiredBookings = 500

// ScheduleKey builds the debounce key for one scheduled_time trigger node.
func ScheduleKey(automationID, nodeID string) string {
	return automationID + ":" + nodeID
}

// ScheduleState debounces interval triggers and missed-appointment firings for
// one tenant. It is owned by the sweepers; the synchronous engine never touches it.
type ScheduleState struct {
	// LastFired maps "{automationId}:{nodeId}" to the last firing time.
	LastFired map[string]time.Time `json:"last_fired,omitempty"`

	// FiredBookings lists booking ids already fired as missed appointments,
	// oldest first.
	FiredBookings []string `json:"fired_bookings,omitempty"`
}

// TriggerDue reports whether the scheduled trigger behind key should fire:
// never fired before, or fired at least intervalMinutes ago.
func (s *ScheduleState) TriggerDue(key string, intervalMinutes int, now time.Time) bool {
	if intervalMinutes <= 0 {
		return false
	}

	last, ok := s.LastFired[key]
	if !ok {
		return true
	}

	return now.Sub(last) >= time.Duration(intervalMinutes)*time.Minute
}

// RecordFired stores the firing time for key.
func (s *ScheduleState) RecordFired(key string, now time.Time) {
	if s.LastFired == nil {
		s.LastFired = make(map[string]time.Time)
	}

	s.LastFired[key] = now
}

// BookingFired reports whether a missed-appointment event was already fired
// for the booking.
func (s *ScheduleState) BookingFired(bookingID string) bool {
	for _, id := range s.FiredBookings {
		if id == bookingID {
			return true
		}
	}

	return false
}

// RecordBookingFired appends the booking to the fired set, dropping the oldest
// entries beyond MaxFiredBookings.
func (s *ScheduleState) RecordBookingFired(bookingID string) {
	s.FiredBookings = append(s.FiredBookings, bookingID)

	if excess := len(s.FiredBookings) - MaxFiredBookings; excess > 0 {
		s.FiredBookings = s.FiredBookings[excess:]
	}
}
