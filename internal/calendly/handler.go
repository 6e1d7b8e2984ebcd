package calendly

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carewell/scheduling-agent/internal/scheduling"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

// Handler wires the scheduling REST surface to the adapter.
type Handler struct {
	adapter *Adapter
	logger  *logging.Logger
}

// NewHandler creates a scheduling handler.
func NewHandler(adapter *Adapter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{adapter: adapter, logger: logger}
}

// Availability handles GET /availability?date=YYYY-MM-DD&appointment_type=key.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	typeKey := r.URL.Query().Get("appointment_type")
	if date == "" || typeKey == "" {
		http.Error(w, "date and appointment_type are required", http.StatusBadRequest)
		return
	}

	slots, err := h.adapter.GetAvailability(r.Context(), date, typeKey)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"date":             date,
		"appointment_type": typeKey,
		"available_slots":  slots,
		"total_available":  len(slots),
	})
}

// NextAvailable handles GET /availability/next-dates?appointment_type=key&days=N.
func (h *Handler) NextAvailable(w http.ResponseWriter, r *http.Request) {
	typeKey := r.URL.Query().Get("appointment_type")
	if typeKey == "" {
		http.Error(w, "appointment_type is required", http.StatusBadRequest)
		return
	}
	numDays, _ := strconv.Atoi(r.URL.Query().Get("days"))

	days, err := h.adapter.NextAvailableDates(r.Context(), typeKey, numDays)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"appointment_type": typeKey,
		"days":             days,
	})
}

// Book handles POST /book.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req scheduling.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode booking request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.adapter.Book(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"booking_id":        appt.BookingID,
		"status":            appt.Status,
		"confirmation_code": appt.ConfirmationCode,
		"details":           appt,
	})
}

// Cancel handles DELETE /cancel/{bookingID}?reason=.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	appt, err := h.adapter.Cancel(r.Context(), bookingID, r.URL.Query().Get("reason"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Reschedule handles POST /reschedule/{bookingID}?new_date=&new_time=.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	newDate := r.URL.Query().Get("new_date")
	newTime := r.URL.Query().Get("new_time")
	if newDate == "" || newTime == "" {
		http.Error(w, "new_date and new_time are required", http.StatusBadRequest)
		return
	}

	appt, err := h.adapter.Reschedule(r.Context(), bookingID, newDate, newTime)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Get handles GET /appointment/{bookingID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.adapter.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// GetByConfirmation handles GET /appointment/confirmation/{code}.
func (h *Handler) GetByConfirmation(w http.ResponseWriter, r *http.Request) {
	appt, err := h.adapter.GetByConfirmation(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Delete handles DELETE /appointments/{bookingID}?permanent=&reason=.
// The default is a soft cancel that keeps the record; the ledger entry is
// removed only with permanent=true.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	permanent, _ := strconv.ParseBool(r.URL.Query().Get("permanent"))
	if !permanent {
		appt, err := h.adapter.Cancel(r.Context(), bookingID, r.URL.Query().Get("reason"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, appt)
		return
	}
	if err := h.adapter.Delete(r.Context(), bookingID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /appointments?date=&status=&appointment_type=&patient_email=&patient_phone=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appts := h.adapter.List(r.Context(), scheduling.ListFilter{
		Date:            q.Get("date"),
		Status:          scheduling.Status(q.Get("status")),
		AppointmentType: q.Get("appointment_type"),
		PatientEmail:    q.Get("patient_email"),
		PatientPhone:    q.Get("patient_phone"),
	})
	h.writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appts,
		"total":        len(appts),
	})
}

// Types handles GET /types.
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"appointment_types": h.adapter.svc.Config().AppointmentTypes,
	})
}

// StatsEndpoint handles GET /appointments/stats/summary.
func (h *Handler) StatsEndpoint(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.adapter.Stats(r.Context()))
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.adapter.Status(r.Context()))
}

// writeError maps domain errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scheduling.ErrInvalidAppointmentType),
		errors.Is(err, scheduling.ErrInvalidRequest),
		errors.Is(err, scheduling.ErrCannotRescheduleCancelled):
		status = http.StatusBadRequest
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		status = http.StatusConflict
	default:
		h.logger.Error("scheduling request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
