package protocol

import (
	"context"
	"errors"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
)

var (
	// ErrBookingNotFound indicates the booking id does not exist for the tenant.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingSiteNotFound indicates the tenant has no booking site configured.
	ErrBookingSiteNotFound = errors.New("booking site not found")
)

// BookingProvider exposes the appointment data the follow-up scheduler and the
// missed-appointment sweeper read.
type BookingProvider interface {
	// BookingByID returns the booking, ErrBookingNotFound when the id is
	// unknown, or ErrBookingSiteNotFound when the tenant has no site at all.
	BookingByID(ctx context.Context, ownerID, bookingID string) (*models.Booking, error)

	CalendarByID(ctx context.Context, ownerID, calendarID string) (*models.Calendar, error)

	// ScheduledBookingsEndedBetween returns bookings still in SCHEDULED status
	// whose end time falls inside (after, before].
	ScheduledBookingsEndedBetween(ctx context.Context, ownerID string, after, before time.Time) ([]*models.Booking, error)
}
