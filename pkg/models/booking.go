package models

import "time"

// BookingStatus is the lifecycle state of an appointment booking.
type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "SCHEDULED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCanceled  BookingStatus = "CANCELED"
)

// Booking is an appointment as reported by the booking provider. The engine
// and follow-up scheduler only read bookings; the provider owns them.
type Booking struct {
	ID           string        `json:"id"`
	CalendarID   string        `json:"calendar_id,omitempty"`
	ContactID    string        `json:"contact_id,omitempty"`
	ContactName  string        `json:"contact_name,omitempty"`
	ContactEmail string        `json:"contact_email,omitempty"`
	ContactPhone string        `json:"contact_phone,omitempty"`
	StartAt      time.Time     `json:"start_at"`
	EndAt        time.Time     `json:"end_at"`
	Status       BookingStatus `json:"status"`
}

// Calendar is the booking-provider calendar configuration the scheduler reads
// for titles and internal notification targets.
type Calendar struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title,omitempty"`
	NotificationEmails []string `json:"notification_emails,omitempty"`
}
