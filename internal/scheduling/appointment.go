// Package scheduling implements the availability and booking engine:
// slot-grid generation over the weekly schedule, the durable appointment
// ledger, and the service operations (book, cancel, reschedule, lookup).
package scheduling

import (
	"time"

	"github.com/carewell/scheduling-agent/internal/schedule"
)

// Patient is the contact triple attached to a booking.
type Patient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Appointment is one ledger record. StartTime/EndTime serialize as "HH:MM";
// Date serializes as "YYYY-MM-DD".
type Appointment struct {
	BookingID        string         `json:"booking_id"`
	ConfirmationCode string         `json:"confirmation_code"`
	AppointmentType  string         `json:"appointment_type"`
	TypeName         string         `json:"type_name"`
	Date             string         `json:"date"`
	StartTime        schedule.Clock `json:"start_time"`
	EndTime          schedule.Clock `json:"end_time"`
	Patient          Patient        `json:"patient"`
	Reason           string         `json:"reason,omitempty"`
	Status           Status         `json:"status"`
	Source           string         `json:"source"`
	RemoteURI        string         `json:"remote_uri,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	PreviousDate  string     `json:"previous_date,omitempty"`
	PreviousTime  string     `json:"previous_time,omitempty"`
	RescheduledAt *time.Time `json:"rescheduled_at,omitempty"`
}

// Status is the appointment lifecycle state.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking source tags. Real-provider bookings carry a distinct ID prefix so
// provenance survives in the ledger without an extra lookup.
const (
	SourceMock     = "mock"
	SourceCalendly = "calendly"
)

// Active reports whether the appointment still occupies its slot.
func (a *Appointment) Active() bool { return a.Status != StatusCancelled }

// TimeSlot is one bookable candidate returned by availability queries.
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// MaxSampleSlots caps the per-day slot samples in multi-day scans. The full
// count survives in TotalSlots; callers wanting every slot query the single
// date directly.
const MaxSampleSlots = 3

// DayAvailability groups a date's open slots for multi-day lookups. Slots
// holds at most MaxSampleSlots entries.
type DayAvailability struct {
	Date       string     `json:"date"`
	DayName    string     `json:"day_name"`
	Slots      []TimeSlot `json:"available_slots"`
	TotalSlots int        `json:"total_slots"`
}

// BookingRequest carries everything needed to create an appointment.
type BookingRequest struct {
	AppointmentType string  `json:"appointment_type"`
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	Patient         Patient `json:"patient"`
	Reason          string  `json:"reason,omitempty"`
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	Date            string
	Status          Status
	AppointmentType string
	PatientEmail    string
	PatientPhone    string
}

// Stats summarizes the ledger.
type Stats struct {
	Total     int            `json:"total"`
	Confirmed int            `json:"confirmed"`
	Cancelled int            `json:"cancelled"`
	Upcoming  int            `json:"upcoming"`
	ByType    map[string]int `json:"by_type"`
}
