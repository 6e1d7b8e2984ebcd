package tools

import (
	"context"

	"github.com/carewell/scheduling-agent/internal/calendly"
	"github.com/carewell/scheduling-agent/internal/observability/metrics"
	"github.com/carewell/scheduling-agent/internal/scheduling"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

func apptPayload(a *scheduling.Appointment) map[string]any {
	return map[string]any{
		"booking_id":        a.BookingID,
		"confirmation_code": a.ConfirmationCode,
		"appointment_type":  a.AppointmentType,
		"type_name":         a.TypeName,
		"date":              a.Date,
		"start_time":        a.StartTime.String(),
		"end_time":          a.EndTime.String(),
		"status":            string(a.Status),
		"patient_name":      a.Patient.Name,
	}
}

// NewSchedulingRegistry wires the six scheduling tools against the adapter.
func NewSchedulingRegistry(adapter *calendly.Adapter, logger *logging.Logger, m *metrics.ConversationMetrics) *Registry {
	r := NewRegistry(logger, m)

	r.Register(Definition{
		Name:        "check_availability",
		Description: "Check available appointment slots for a specific date and appointment type.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Date to check, in YYYY-MM-DD format",
				},
				"appointment_type": map[string]any{
					"type":        "string",
					"description": "Appointment type key, e.g. consultation, checkup, physical, followup, specialist",
				},
			},
			"required": []string{"date", "appointment_type"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		date, err := stringArg(args, "date")
		if err != nil {
			return nil, err
		}
		typeKey, err := stringArg(args, "appointment_type")
		if err != nil {
			return nil, err
		}
		slots, err := adapter.GetAvailability(ctx, date, typeKey)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"date":             date,
			"appointment_type": typeKey,
			"available_slots":  slots,
			"total_available":  len(slots),
		}, nil
	})

	r.Register(Definition{
		Name:        "get_next_available_slots",
		Description: "Find the next days with open slots for an appointment type.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"appointment_type": map[string]any{
					"type":        "string",
					"description": "Appointment type key",
				},
				"num_days": map[string]any{
					"type":        "integer",
					"description": "How many days with availability to return (default 7)",
				},
			},
			"required": []string{"appointment_type"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		typeKey, err := stringArg(args, "appointment_type")
		if err != nil {
			return nil, err
		}
		days, err := adapter.NextAvailableDates(ctx, typeKey, intArg(args, "num_days", 7))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"appointment_type": typeKey,
			"days":             days,
		}, nil
	})

	r.Register(Definition{
		Name:        "book_appointment",
		Description: "Book an appointment. All patient fields are required; confirm them with the patient before booking.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"appointment_type": map[string]any{"type": "string", "description": "Appointment type key"},
				"date":             map[string]any{"type": "string", "description": "Date in YYYY-MM-DD format"},
				"start_time":       map[string]any{"type": "string", "description": "Start time in HH:MM 24-hour format"},
				"patient_name":     map[string]any{"type": "string", "description": "Patient full name"},
				"patient_email":    map[string]any{"type": "string", "description": "Patient email address"},
				"patient_phone":    map[string]any{"type": "string", "description": "Patient phone number"},
				"reason":           map[string]any{"type": "string", "description": "Reason for the visit"},
			},
			"required": []string{"appointment_type", "date", "start_time", "patient_name", "patient_email", "patient_phone"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		var req scheduling.BookingRequest
		var err error
		if req.AppointmentType, err = stringArg(args, "appointment_type"); err != nil {
			return nil, err
		}
		if req.Date, err = stringArg(args, "date"); err != nil {
			return nil, err
		}
		if req.StartTime, err = stringArg(args, "start_time"); err != nil {
			return nil, err
		}
		if req.Patient.Name, err = stringArg(args, "patient_name"); err != nil {
			return nil, err
		}
		if req.Patient.Email, err = stringArg(args, "patient_email"); err != nil {
			return nil, err
		}
		if req.Patient.Phone, err = stringArg(args, "patient_phone"); err != nil {
			return nil, err
		}
		if reason, ok := args["reason"].(string); ok {
			req.Reason = reason
		}
		appt, err := adapter.Book(ctx, req)
		if err != nil {
			return nil, err
		}
		payload := apptPayload(appt)
		payload["message"] = "Appointment booked successfully."
		return payload, nil
	})

	r.Register(Definition{
		Name:        "get_appointment_by_confirmation",
		Description: "Look up an appointment by its 6-character confirmation code.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"confirmation_code": map[string]any{
					"type":        "string",
					"description": "6-character confirmation code, case-insensitive",
				},
			},
			"required": []string{"confirmation_code"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		code, err := stringArg(args, "confirmation_code")
		if err != nil {
			return nil, err
		}
		appt, err := adapter.GetByConfirmation(ctx, code)
		if err != nil {
			return nil, err
		}
		return apptPayload(appt), nil
	})

	r.Register(Definition{
		Name:        "cancel_appointment",
		Description: "Cancel an appointment by its booking ID.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"booking_id": map[string]any{"type": "string", "description": "Booking ID, e.g. APPT-202608-0001"},
				"reason":     map[string]any{"type": "string", "description": "Optional cancellation reason"},
			},
			"required": []string{"booking_id"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		bookingID, err := stringArg(args, "booking_id")
		if err != nil {
			return nil, err
		}
		reason, _ := args["reason"].(string)
		appt, err := adapter.Cancel(ctx, bookingID, reason)
		if err != nil {
			return nil, err
		}
		payload := apptPayload(appt)
		payload["message"] = "Appointment cancelled."
		return payload, nil
	})

	r.Register(Definition{
		Name:        "reschedule_appointment",
		Description: "Move an existing appointment to a new date and time.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"booking_id":     map[string]any{"type": "string", "description": "Booking ID of the appointment to move"},
				"new_date":       map[string]any{"type": "string", "description": "New date in YYYY-MM-DD format"},
				"new_start_time": map[string]any{"type": "string", "description": "New start time in HH:MM 24-hour format"},
			},
			"required": []string{"booking_id", "new_date", "new_start_time"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		bookingID, err := stringArg(args, "booking_id")
		if err != nil {
			return nil, err
		}
		newDate, err := stringArg(args, "new_date")
		if err != nil {
			return nil, err
		}
		newTime, err := stringArg(args, "new_start_time")
		if err != nil {
			return nil, err
		}
		appt, err := adapter.Reschedule(ctx, bookingID, newDate, newTime)
		if err != nil {
			return nil, err
		}
		payload := apptPayload(appt)
		payload["previous_date"] = appt.PreviousDate
		payload["previous_time"] = appt.PreviousTime
		payload["message"] = "Appointment rescheduled."
		return payload, nil
	})

	return r
}
