package tools

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewell/scheduling-agent/internal/calendly"
	"github.com/carewell/scheduling-agent/internal/schedule"
	"github.com/carewell/scheduling-agent/internal/scheduling"
)

func newSchedulingRegistry(t *testing.T) *Registry {
	t.Helper()
	ledger, err := scheduling.NewLedger(filepath.Join(t.TempDir(), "appointments.json"), nil)
	require.NoError(t, err)
	svc := scheduling.NewService(schedule.Default(), ledger, nil, nil)
	adapter := calendly.NewAdapter(svc, nil, nil, nil, nil)
	return NewSchedulingRegistry(adapter, nil, nil)
}

func nextMonday() string {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func TestDefinitionsOrderAndNames(t *testing.T) {
	r := newSchedulingRegistry(t)
	defs := r.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"check_availability",
		"get_next_available_slots",
		"book_appointment",
		"get_appointment_by_confirmation",
		"cancel_appointment",
		"reschedule_appointment",
	}, names)
	for _, d := range defs {
		assert.NotEmpty(t, d.Description, d.Name)
		assert.Equal(t, "object", d.Parameters["type"], d.Name)
	}
}

func TestUnknownToolReturnsStructuredError(t *testing.T) {
	r := newSchedulingRegistry(t)
	out := r.Execute(context.Background(), "summon_doctor", nil)
	payload, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "unknown_tool", payload["error_type"])
	assert.Contains(t, payload["error"], "summon_doctor")
}

func TestHandlerErrorReturnsStructuredError(t *testing.T) {
	r := newSchedulingRegistry(t)
	out := r.Execute(context.Background(), "check_availability", map[string]any{
		"date":             nextMonday(),
		"appointment_type": "teleportation",
	})
	payload, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tool_execution_error", payload["error_type"])
	assert.Contains(t, payload["error"], "teleportation")
}

func TestMissingArgumentReturnsStructuredError(t *testing.T) {
	r := newSchedulingRegistry(t)
	out := r.Execute(context.Background(), "check_availability", map[string]any{
		"date": nextMonday(),
	})
	payload := out.(map[string]any)
	assert.Equal(t, "tool_execution_error", payload["error_type"])
	assert.Contains(t, payload["error"], "appointment_type")
}

func TestCheckAvailabilityTool(t *testing.T) {
	r := newSchedulingRegistry(t)
	out := r.Execute(context.Background(), "check_availability", map[string]any{
		"date":             nextMonday(),
		"appointment_type": "consultation",
	})
	payload := out.(map[string]any)
	require.NotContains(t, payload, "error")
	assert.Greater(t, payload["total_available"], 0)
}

func TestBookCancelRescheduleFlow(t *testing.T) {
	r := newSchedulingRegistry(t)
	monday := nextMonday()

	out := r.Execute(context.Background(), "book_appointment", map[string]any{
		"appointment_type": "consultation",
		"date":             monday,
		"start_time":       "09:00",
		"patient_name":     "Ana Ruiz",
		"patient_email":    "ana@example.com",
		"patient_phone":    "555-0101",
		"reason":           "persistent headaches",
	})
	booked := out.(map[string]any)
	require.NotContains(t, booked, "error", "book failed: %v", booked["error"])
	bookingID := booked["booking_id"].(string)
	code := booked["confirmation_code"].(string)

	out = r.Execute(context.Background(), "get_appointment_by_confirmation", map[string]any{
		"confirmation_code": code,
	})
	fetched := out.(map[string]any)
	assert.Equal(t, bookingID, fetched["booking_id"])

	out = r.Execute(context.Background(), "reschedule_appointment", map[string]any{
		"booking_id":     bookingID,
		"new_date":       monday,
		"new_start_time": "10:00",
	})
	moved := out.(map[string]any)
	require.NotContains(t, moved, "error", "reschedule failed: %v", moved["error"])
	assert.Equal(t, "10:00", moved["start_time"])
	assert.Equal(t, "09:00", moved["previous_time"])

	out = r.Execute(context.Background(), "cancel_appointment", map[string]any{
		"booking_id": bookingID,
	})
	cancelled := out.(map[string]any)
	assert.Equal(t, "cancelled", cancelled["status"])
}

func TestNumDaysDefaultsWhenAbsentOrWrongType(t *testing.T) {
	r := newSchedulingRegistry(t)
	out := r.Execute(context.Background(), "get_next_available_slots", map[string]any{
		"appointment_type": "consultation",
		"num_days":         "three",
	})
	payload := out.(map[string]any)
	require.NotContains(t, payload, "error")
}

func TestRegisterGuards(t *testing.T) {
	r := NewRegistry(nil, nil)
	def := Definition{Name: "x", Parameters: map[string]any{"type": "object"}}
	h := func(ctx context.Context, args map[string]any) (any, error) { return nil, errors.New("boom") }

	r.Register(def, h)
	assert.Panics(t, func() { r.Register(def, h) })
	assert.Panics(t, func() { r.Register(Definition{}, h) })
	assert.Panics(t, func() { r.Register(Definition{Name: "y"}, nil) })
}
