package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// MockBookingProvider is a mock implementation of protocol.BookingProvider.
type MockBookingProvider struct {
	mock.Mock
}

func (m *MockBookingProvider) BookingByID(ctx context.Context, ownerID, bookingID string) (*models.Booking, error) {
	args := m.Called(ctx, ownerID, bookingID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingProvider) CalendarByID(ctx context.Context, ownerID, calendarID string) (*models.Calendar, error) {
	args := m.Called(ctx, ownerID, calendarID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Calendar), args.Error(1)
}

func (m *MockBookingProvider) ScheduledBookingsEndedBetween(ctx context.Context, ownerID string, after, before time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, ownerID, after, before)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Booking), args.Error(1)
}
