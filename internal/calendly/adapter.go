package calendly

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carewell/scheduling-agent/internal/notify"
	"github.com/carewell/scheduling-agent/internal/observability/metrics"
	"github.com/carewell/scheduling-agent/internal/schedule"
	"github.com/carewell/scheduling-agent/internal/scheduling"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

// Mode is the adapter's operating state.
type Mode string

const (
	// ModeReal means the remote provider is reachable and mapped.
	ModeReal Mode = "real"
	// ModeMock means no credentials were configured or the initial probe
	// failed; all operations run against the local engine.
	ModeMock Mode = "mock"
	// ModeFallback means a real session failed mid-operation. It is a
	// one-way latch: the adapter stays degraded for the process lifetime.
	ModeFallback Mode = "fallback"
)

// Provider is the remote API surface the adapter depends on.
type Provider interface {
	Probe(ctx context.Context) error
	EventTypes(ctx context.Context) ([]EventType, error)
	AvailableTimes(ctx context.Context, eventTypeURI, date string) ([]time.Time, error)
	CreateSchedulingLink(ctx context.Context, eventTypeURI string) (string, error)
	CancelEvent(ctx context.Context, eventURI, reason string) error
}

// Adapter fronts the booking engine. With a provider configured it probes
// once, runs in real mode, and degrades to the local engine on the first
// mid-operation provider failure. Without one it is a pure mock.
type Adapter struct {
	svc     *scheduling.Service
	remote  Provider
	emailer notify.EmailSender
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics

	mu         sync.Mutex
	mode       Mode
	probed     bool
	eventTypes map[string]EventType

	realOps   int
	mockOps   int
	fallbacks int
}

// NewAdapter creates an adapter. remote and emailer may be nil.
func NewAdapter(svc *scheduling.Service, remote Provider, emailer notify.EmailSender, logger *logging.Logger, m *metrics.SchedulingMetrics) *Adapter {
	if svc == nil {
		panic("calendly: scheduling service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Adapter{
		svc:     svc,
		remote:  remote,
		emailer: emailer,
		logger:  logger,
		metrics: m,
		mode:    ModeMock,
	}
	return a
}

// Mode returns the current operating mode, probing on first use.
func (a *Adapter) Mode(ctx context.Context) Mode {
	a.ensureMode(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// ForceProbe discards the cached mode so the next operation re-probes.
func (a *Adapter) ForceProbe() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.probed = false
}

// ensureMode runs the one-time connectivity probe and event-type mapping.
// A probe failure lands in mock mode, not fallback; fallback is reserved
// for a real session that breaks later.
func (a *Adapter) ensureMode(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.probed {
		return
	}
	a.probed = true

	if a.remote == nil {
		a.mode = ModeMock
		a.metrics.SetAdapterMode(string(a.mode))
		return
	}

	if err := a.remote.Probe(ctx); err != nil {
		a.logger.Warn("calendly probe failed, running in mock mode", "error", err)
		a.mode = ModeMock
		a.metrics.SetAdapterMode(string(a.mode))
		return
	}
	types, err := a.remote.EventTypes(ctx)
	if err != nil {
		a.logger.Warn("calendly event type mapping failed, running in mock mode", "error", err)
		a.mode = ModeMock
		a.metrics.SetAdapterMode(string(a.mode))
		return
	}
	a.eventTypes = mapEventTypes(a.svc.Config().AppointmentTypes, types)
	a.mode = ModeReal
	a.metrics.SetAdapterMode(string(a.mode))
	a.logger.Info("calendly connected", "event_types", len(a.eventTypes))
}

// mapEventTypes pairs catalog type keys with remote event types by slug or
// name. Unmapped keys silently use the local engine.
func mapEventTypes(catalog map[string]schedule.AppointmentType, types []EventType) map[string]EventType {
	out := make(map[string]EventType, len(catalog))
	for key, at := range catalog {
		for _, et := range types {
			if strings.EqualFold(et.Slug, key) ||
				strings.EqualFold(et.Name, at.Name) ||
				strings.Contains(strings.ToLower(et.Name), key) {
				out[key] = et
				break
			}
		}
	}
	return out
}

// degrade flips the one-way fallback latch.
func (a *Adapter) degrade(op string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != ModeReal {
		return
	}
	a.mode = ModeFallback
	a.fallbacks++
	a.metrics.SetAdapterMode(string(a.mode))
	a.metrics.ObserveAdapterFallback()
	a.logger.Error("calendly provider failed, degrading to fallback mode", "op", op, "error", err)
}

func (a *Adapter) isReal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode == ModeReal
}

func (a *Adapter) eventTypeFor(typeKey string) (EventType, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	et, ok := a.eventTypes[strings.ToLower(strings.TrimSpace(typeKey))]
	return et, ok
}

func (a *Adapter) countReal() {
	a.mu.Lock()
	a.realOps++
	a.mu.Unlock()
}

func (a *Adapter) countMock() {
	a.mu.Lock()
	a.mockOps++
	a.mu.Unlock()
}

// GetAvailability returns the open slots for a date and type. In real mode
// the remote calendar is consulted; a provider failure degrades the adapter
// and the same request is answered by the local engine.
func (a *Adapter) GetAvailability(ctx context.Context, date, typeKey string) ([]scheduling.TimeSlot, error) {
	a.ensureMode(ctx)

	if a.isReal() {
		if et, ok := a.eventTypeFor(typeKey); ok {
			slots, err := a.remoteAvailability(ctx, et, date, typeKey)
			if err == nil {
				a.countReal()
				return slots, nil
			}
			var pErr *ProviderError
			if !errors.As(err, &pErr) {
				return nil, err
			}
			a.degrade("get_availability", err)
		}
	}

	a.countMock()
	return a.svc.AvailableSlots(ctx, date, typeKey)
}

func (a *Adapter) remoteAvailability(ctx context.Context, et EventType, date, typeKey string) ([]scheduling.TimeSlot, error) {
	at, ok := a.svc.Config().Type(typeKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", scheduling.ErrInvalidAppointmentType, typeKey)
	}
	times, err := a.remote.AvailableTimes(ctx, et.URI, date)
	if err != nil {
		return nil, err
	}
	slots := make([]scheduling.TimeSlot, 0, len(times))
	for _, t := range times {
		local := t.Local()
		end := local.Add(time.Duration(at.DurationMinutes) * time.Minute)
		slots = append(slots, scheduling.TimeSlot{
			StartTime: local.Format("15:04"),
			EndTime:   end.Format("15:04"),
		})
	}
	return slots, nil
}

// NextAvailableDates scans forward for days with open slots.
func (a *Adapter) NextAvailableDates(ctx context.Context, typeKey string, numDays int) ([]scheduling.DayAvailability, error) {
	a.ensureMode(ctx)

	if a.isReal() {
		if et, ok := a.eventTypeFor(typeKey); ok {
			days, err := a.remoteNextDates(ctx, et, typeKey, numDays)
			if err == nil {
				a.countReal()
				return days, nil
			}
			var pErr *ProviderError
			if !errors.As(err, &pErr) {
				return nil, err
			}
			a.degrade("get_next_available_dates", err)
		}
	}

	a.countMock()
	return a.svc.NextAvailableDates(ctx, typeKey, numDays)
}

func (a *Adapter) remoteNextDates(ctx context.Context, et EventType, typeKey string, numDays int) ([]scheduling.DayAvailability, error) {
	if numDays <= 0 {
		numDays = 7
	}
	out := make([]scheduling.DayAvailability, 0, numDays)
	day := time.Now()
	for i := 0; i < 30 && len(out) < numDays; i++ {
		dateStr := day.Format("2006-01-02")
		slots, err := a.remoteAvailability(ctx, et, dateStr, typeKey)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			total := len(slots)
			if total > scheduling.MaxSampleSlots {
				slots = slots[:scheduling.MaxSampleSlots]
			}
			out = append(out, scheduling.DayAvailability{
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

// Book places a booking. In real mode a single-use scheduling link is
// created with the provider and recorded on the ledger entry; a provider
// failure degrades the adapter and the same booking is completed locally,
// so the caller never sees the provider error.
func (a *Adapter) Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Appointment, error) {
	a.ensureMode(ctx)

	if a.isReal() {
		if et, ok := a.eventTypeFor(req.AppointmentType); ok {
			// Reject locally before spending a single-use link with the
			// provider; a rejected request must not leave a live link behind.
			if err := a.svc.CheckBookable(ctx, req); err != nil {
				return nil, err
			}
			remoteURI, err := a.remote.CreateSchedulingLink(ctx, et.URI)
			if err == nil {
				a.countReal()
				appt, bookErr := a.svc.BookExternal(ctx, req, remoteURI)
				if bookErr != nil {
					return nil, bookErr
				}
				a.sendConfirmation(ctx, appt)
				return appt, nil
			}
			a.degrade("book", err)
		}
	}

	a.countMock()
	appt, err := a.svc.Book(ctx, req)
	if err != nil {
		return nil, err
	}
	a.sendConfirmation(ctx, appt)
	return appt, nil
}

// sendConfirmation emails the patient. Failures are logged, never surfaced;
// the booking already happened.
func (a *Adapter) sendConfirmation(ctx context.Context, appt *scheduling.Appointment) {
	if a.emailer == nil {
		return
	}
	msg := notify.ConfirmationEmail(notify.Confirmation{
		PatientName:  appt.Patient.Name,
		PatientEmail: appt.Patient.Email,
		TypeName:     appt.TypeName,
		Date:         appt.Date,
		StartTime:    appt.StartTime.String(),
		BookingID:    appt.BookingID,
		Code:         appt.ConfirmationCode,
	})
	if err := a.emailer.Send(ctx, msg); err != nil {
		a.logger.Error("booking confirmation email failed", "booking_id", appt.BookingID, "error", err)
	}
}

// Cancel cancels a booking. Real-provider bookings are cancelled remotely
// first; a remote failure degrades the adapter but the local cancellation
// still proceeds.
func (a *Adapter) Cancel(ctx context.Context, bookingID, reason string) (*scheduling.Appointment, error) {
	a.ensureMode(ctx)

	if a.isReal() {
		if current, err := a.svc.Get(ctx, bookingID); err == nil &&
			current.Source == scheduling.SourceCalendly && current.RemoteURI != "" {
			if err := a.remote.CancelEvent(ctx, current.RemoteURI, reason); err != nil {
				a.degrade("cancel", err)
			} else {
				a.countReal()
			}
		}
	}

	a.countMock()
	return a.svc.Cancel(ctx, bookingID, reason)
}

// Reschedule moves a booking on the local ledger.
func (a *Adapter) Reschedule(ctx context.Context, bookingID, newDate, newTime string) (*scheduling.Appointment, error) {
	a.ensureMode(ctx)
	return a.svc.Reschedule(ctx, bookingID, newDate, newTime)
}

// Get returns a booking by id.
func (a *Adapter) Get(ctx context.Context, bookingID string) (*scheduling.Appointment, error) {
	return a.svc.Get(ctx, bookingID)
}

// GetByConfirmation returns a booking by confirmation code.
func (a *Adapter) GetByConfirmation(ctx context.Context, code string) (*scheduling.Appointment, error) {
	return a.svc.GetByConfirmation(ctx, code)
}

// Delete permanently removes a booking from the ledger.
func (a *Adapter) Delete(ctx context.Context, bookingID string) error {
	return a.svc.Delete(ctx, bookingID)
}

// List returns bookings matching the filter.
func (a *Adapter) List(ctx context.Context, f scheduling.ListFilter) []scheduling.Appointment {
	return a.svc.List(ctx, f)
}

// Stats summarizes the ledger.
func (a *Adapter) Stats(ctx context.Context) scheduling.Stats {
	return a.svc.Stats(ctx)
}

// StatusReport describes the adapter for the /status endpoint.
type StatusReport struct {
	Mode             Mode `json:"mode"`
	RemoteConfigured bool `json:"remote_configured"`
	MappedEventTypes int  `json:"mapped_event_types"`
	RealOperations   int  `json:"real_operations"`
	MockOperations   int  `json:"mock_operations"`
	Fallbacks        int  `json:"fallbacks"`
}

// Status reports the current mode and operation counters.
func (a *Adapter) Status(ctx context.Context) StatusReport {
	a.ensureMode(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	return StatusReport{
		Mode:             a.mode,
		RemoteConfigured: a.remote != nil,
		MappedEventTypes: len(a.eventTypes),
		RealOperations:   a.realOps,
		MockOperations:   a.mockOps,
		Fallbacks:        a.fallbacks,
	}
}
