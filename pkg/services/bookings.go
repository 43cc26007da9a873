package services

import (
	"context"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// NoopBookingProvider stands in when no booking integration is configured.
// Lookups report the missing site; sweeps see no bookings.
type NoopBookingProvider struct{}

func NewNoopBookingProvider() *NoopBookingProvider {
	return &NoopBookingProvider{}
}

func (*NoopBookingProvider) BookingByID(_ context.Context, _, _ string) (*models.Booking, error) {
	return nil, protocol.ErrBookingSiteNotFound
}

func (*NoopBookingProvider) CalendarByID(_ context.Context, _, _ string) (*models.Calendar, error) {
	return nil, protocol.ErrBookingSiteNotFound
}

func (*NoopBookingProvider) ScheduledBookingsEndedBetween(_ context.Context, _ string, _, _ time.Time) ([]*models.Booking, error) {
	return nil, nil
}
