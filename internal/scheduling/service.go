package scheduling

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/carewell/scheduling-agent/internal/observability/metrics"
	"github.com/carewell/scheduling-agent/internal/schedule"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

// Service exposes the booking operations over a schedule config and ledger.
type Service struct {
	cfg     *schedule.Config
	ledger  *Ledger
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	tracer  trace.Tracer
	now     func() time.Time

	// bookMu serializes check-then-mutate sequences so two concurrent
	// bookings cannot both pass the availability check for the same slot.
	bookMu sync.Mutex
}

// NewService creates a scheduling service. metrics may be nil.
func NewService(cfg *schedule.Config, ledger *Ledger, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if cfg == nil {
		panic("scheduling: config cannot be nil")
	}
	if ledger == nil {
		panic("scheduling: ledger cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		cfg:     cfg,
		ledger:  ledger,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("scheduling"),
		now:     time.Now,
	}
}

// Config returns the schedule configuration the service was built with.
func (s *Service) Config() *schedule.Config { return s.cfg }

func parseDate(date string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidRequest, date)
	}
	return t, nil
}

// AvailableSlots returns the open slots for one date and appointment type.
// A past date returns an empty list; an unknown type returns
// ErrInvalidAppointmentType.
func (s *Service) AvailableSlots(ctx context.Context, date, typeKey string) ([]TimeSlot, error) {
	_, span := s.tracer.Start(ctx, "scheduling.AvailableSlots")
	defer span.End()
	s.metrics.ObserveAvailabilityQuery()

	at, ok := s.cfg.Type(typeKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAppointmentType, typeKey)
	}
	parsed, err := parseDate(date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.slotsForDate(parsed, parsed.Format("2006-01-02"), at, ""), nil
}

// NextAvailableDates scans forward from today and returns up to numDays
// days that have at least one open slot for the type. numDays defaults to 7
// and the scan is capped at 60 calendar days. Each day carries at most
// MaxSampleSlots sample slots plus the total count.
func (s *Service) NextAvailableDates(ctx context.Context, typeKey string, numDays int) ([]DayAvailability, error) {
	_, span := s.tracer.Start(ctx, "scheduling.NextAvailableDates")
	defer span.End()

	at, ok := s.cfg.Type(typeKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAppointmentType, typeKey)
	}
	if numDays <= 0 {
		numDays = 7
	}

	out := make([]DayAvailability, 0, numDays)
	day := s.now()
	for i := 0; i < 60 && len(out) < numDays; i++ {
		dateStr := day.Format("2006-01-02")
		slots := s.slotsForDate(day, dateStr, at, "")
		if len(slots) > 0 {
			total := len(slots)
			if total > MaxSampleSlots {
				slots = slots[:MaxSampleSlots]
			}
			out = append(out, DayAvailability{
				Date:       dateStr,
				DayName:    day.Weekday().String(),
				Slots:      slots,
				TotalSlots: total,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}

func validateBooking(req BookingRequest) error {
	if strings.TrimSpace(req.Patient.Name) == "" {
		return fmt.Errorf("%w: patient name is required", ErrInvalidRequest)
	}
	email := strings.TrimSpace(req.Patient.Email)
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return fmt.Errorf("%w: invalid patient email %q", ErrInvalidRequest, req.Patient.Email)
	}
	if strings.TrimSpace(req.Patient.Phone) == "" {
		return fmt.Errorf("%w: patient phone is required", ErrInvalidRequest)
	}
	return nil
}

// Book validates the request, re-checks availability under the booking
// mutex, and appends a confirmed appointment to the ledger.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	return s.book(ctx, req, SourceMock, "APPT", "")
}

// BookExternal records a booking that was also placed with the real
// scheduling provider. The CAL id prefix and remote URI preserve provenance
// in the ledger.
func (s *Service) BookExternal(ctx context.Context, req BookingRequest, remoteURI string) (*Appointment, error) {
	return s.book(ctx, req, SourceCalendly, "CAL", remoteURI)
}

func (s *Service) book(ctx context.Context, req BookingRequest, source, idPrefix, remoteURI string) (*Appointment, error) {
	_, span := s.tracer.Start(ctx, "scheduling.Book")
	defer span.End()

	at, ok := s.cfg.Type(req.AppointmentType)
	if !ok {
		s.metrics.ObserveBooking(req.AppointmentType, "invalid_type")
		return nil, fmt.Errorf("%w: %q", ErrInvalidAppointmentType, req.AppointmentType)
	}
	if err := validateBooking(req); err != nil {
		s.metrics.ObserveBooking(req.AppointmentType, "invalid_request")
		return nil, err
	}
	parsed, err := parseDate(req.Date)
	if err != nil {
		s.metrics.ObserveBooking(req.AppointmentType, "invalid_request")
		return nil, err
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		s.metrics.ObserveBooking(req.AppointmentType, "invalid_request")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dateStr := parsed.Format("2006-01-02")

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	if !s.slotOffered(parsed, dateStr, at, start) || !s.available(dateStr, start, at, "") {
		s.metrics.ObserveBooking(req.AppointmentType, "slot_unavailable")
		return nil, fmt.Errorf("%w: %s %s", ErrSlotUnavailable, dateStr, start)
	}

	now := s.now()
	appt := Appointment{
		BookingID:        s.ledger.NextBookingID(idPrefix, now),
		ConfirmationCode: NewConfirmationCode(),
		AppointmentType:  strings.ToLower(strings.TrimSpace(req.AppointmentType)),
		TypeName:         at.Name,
		Date:             dateStr,
		StartTime:        start,
		EndTime:          start.Add(at.DurationMinutes),
		Patient:          req.Patient,
		Reason:           req.Reason,
		Status:           StatusConfirmed,
		Source:           source,
		RemoteURI:        remoteURI,
		CreatedAt:        now.UTC(),
	}
	if err := s.ledger.Append(appt); err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking(appt.AppointmentType, "error")
		return nil, err
	}

	s.metrics.ObserveBooking(appt.AppointmentType, "ok")
	s.logger.Info("appointment booked",
		"booking_id", appt.BookingID,
		"type", appt.AppointmentType,
		"date", appt.Date,
		"start", appt.StartTime.String())
	return &appt, nil
}

// CheckBookable validates a booking request and confirms the slot is
// currently open, without writing to the ledger. Callers that must spend an
// external side effect before booking use it to reject bad requests first;
// Book re-checks under the same mutex when it commits.
func (s *Service) CheckBookable(ctx context.Context, req BookingRequest) error {
	_, span := s.tracer.Start(ctx, "scheduling.CheckBookable")
	defer span.End()

	at, ok := s.cfg.Type(req.AppointmentType)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAppointmentType, req.AppointmentType)
	}
	if err := validateBooking(req); err != nil {
		return err
	}
	parsed, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dateStr := parsed.Format("2006-01-02")

	s.bookMu.Lock()
	defer s.bookMu.Unlock()
	if !s.slotOffered(parsed, dateStr, at, start) || !s.available(dateStr, start, at, "") {
		return fmt.Errorf("%w: %s %s", ErrSlotUnavailable, dateStr, start)
	}
	return nil
}

// slotOffered reports whether start is one of the grid candidates for the
// date, so bookings cannot land off-grid or inside lunch.
func (s *Service) slotOffered(date time.Time, dateStr string, at schedule.AppointmentType, start schedule.Clock) bool {
	today := s.now().Format("2006-01-02")
	if dateStr < today {
		return false
	}
	day := s.cfg.Day(date)
	if day == nil {
		return false
	}
	for _, c := range Grid(day, s.cfg.SlotMinutes) {
		if c == start {
			return true
		}
	}
	return false
}

// Cancel flips an appointment to cancelled. Cancelling an appointment that
// is already cancelled is a benign no-op returning the unchanged record; the
// original cancellation timestamp is preserved.
func (s *Service) Cancel(ctx context.Context, bookingID, reason string) (*Appointment, error) {
	_, span := s.tracer.Start(ctx, "scheduling.Cancel")
	defer span.End()

	appt, err := s.ledger.Update(bookingID, func(a *Appointment) error {
		if a.Status == StatusCancelled {
			return nil
		}
		now := s.now().UTC()
		a.Status = StatusCancelled
		a.CancelledAt = &now
		a.CancellationReason = strings.TrimSpace(reason)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveCancellation("error")
		return nil, err
	}
	s.metrics.ObserveCancellation("ok")
	s.logger.Info("appointment cancelled", "booking_id", bookingID)
	return appt, nil
}

// Delete permanently removes a record from the ledger.
func (s *Service) Delete(ctx context.Context, bookingID string) error {
	_, span := s.tracer.Start(ctx, "scheduling.Delete")
	defer span.End()

	if err := s.ledger.Remove(bookingID); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("appointment deleted", "booking_id", bookingID)
	return nil
}

// Reschedule moves an active appointment to a new date and time, recording
// the previous values. The record being moved is excluded from its own
// conflict check.
func (s *Service) Reschedule(ctx context.Context, bookingID, newDate, newTime string) (*Appointment, error) {
	_, span := s.tracer.Start(ctx, "scheduling.Reschedule")
	defer span.End()

	current, ok := s.ledger.Get(bookingID)
	if !ok {
		s.metrics.ObserveReschedule("not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, bookingID)
	}
	if current.Status == StatusCancelled {
		s.metrics.ObserveReschedule("cancelled")
		return nil, fmt.Errorf("%w: %s", ErrCannotRescheduleCancelled, bookingID)
	}
	at, ok := s.cfg.Type(current.AppointmentType)
	if !ok {
		s.metrics.ObserveReschedule("invalid_type")
		return nil, fmt.Errorf("%w: %q", ErrInvalidAppointmentType, current.AppointmentType)
	}
	parsed, err := parseDate(newDate)
	if err != nil {
		s.metrics.ObserveReschedule("invalid_request")
		return nil, err
	}
	start, err := schedule.ParseClock(newTime)
	if err != nil {
		s.metrics.ObserveReschedule("invalid_request")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dateStr := parsed.Format("2006-01-02")

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	if !s.slotOffered(parsed, dateStr, at, start) || !s.available(dateStr, start, at, bookingID) {
		s.metrics.ObserveReschedule("slot_unavailable")
		return nil, fmt.Errorf("%w: %s %s", ErrSlotUnavailable, dateStr, start)
	}

	appt, err := s.ledger.Update(bookingID, func(a *Appointment) error {
		if a.Status == StatusCancelled {
			return fmt.Errorf("%w: %s", ErrCannotRescheduleCancelled, bookingID)
		}
		now := s.now().UTC()
		a.PreviousDate = a.Date
		a.PreviousTime = a.StartTime.String()
		a.RescheduledAt = &now
		a.Date = dateStr
		a.StartTime = start
		a.EndTime = start.Add(at.DurationMinutes)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveReschedule("error")
		return nil, err
	}
	s.metrics.ObserveReschedule("ok")
	s.logger.Info("appointment rescheduled",
		"booking_id", bookingID,
		"date", dateStr,
		"start", start.String())
	return appt, nil
}

// Get returns an appointment by booking id.
func (s *Service) Get(ctx context.Context, bookingID string) (*Appointment, error) {
	appt, ok := s.ledger.Get(bookingID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, bookingID)
	}
	return appt, nil
}

// GetByConfirmation returns an appointment by confirmation code,
// case-insensitively.
func (s *Service) GetByConfirmation(ctx context.Context, code string) (*Appointment, error) {
	appt, ok := s.ledger.GetByConfirmation(code)
	if !ok {
		return nil, fmt.Errorf("%w: confirmation %s", ErrNotFound, code)
	}
	return appt, nil
}

// List returns appointments matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) []Appointment {
	return s.ledger.List(f)
}

// Stats summarizes the ledger.
func (s *Service) Stats(ctx context.Context) Stats {
	return s.ledger.Stats(s.now().Format("2006-01-02"))
}
