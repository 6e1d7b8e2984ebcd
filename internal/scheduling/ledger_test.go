package scheduling

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewell/scheduling-agent/internal/schedule"
)

func mustClock(t *testing.T, s string) schedule.Clock {
	t.Helper()
	c, err := schedule.ParseClock(s)
	require.NoError(t, err)
	return c
}

func testAppointment(t *testing.T, id, date, start, end string) Appointment {
	t.Helper()
	return Appointment{
		BookingID:        id,
		ConfirmationCode: NewConfirmationCode(),
		AppointmentType:  "consultation",
		TypeName:         "General Consultation",
		Date:             date,
		StartTime:        mustClock(t, start),
		EndTime:          mustClock(t, end),
		Patient:          Patient{Name: "Ana Ruiz", Email: "ana@example.com", Phone: "555-0101"},
		Status:           StatusConfirmed,
		Source:           SourceMock,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestLedgerPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	l, err := NewLedger(path, nil)
	require.NoError(t, err)

	appt := testAppointment(t, "APPT-202608-0001", "2026-09-07", "10:00", "10:30")
	require.NoError(t, l.Append(appt))

	reloaded, err := NewLedger(path, nil)
	require.NoError(t, err)
	got, ok := reloaded.Get("APPT-202608-0001")
	require.True(t, ok)
	assert.Equal(t, appt.ConfirmationCode, got.ConfirmationCode)
	assert.Equal(t, "10:00", got.StartTime.String())
}

func TestLedgerSeedsCounterFromMaxSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	records := []Appointment{
		testAppointment(t, "APPT-202605-0002", "2026-09-07", "09:00", "09:30"),
		testAppointment(t, "APPT-202606-0041", "2026-09-08", "09:00", "09:30"),
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	l, err := NewLedger(path, nil)
	require.NoError(t, err)

	now, _ := time.Parse("2006-01-02", "2026-08-28")
	assert.Equal(t, "APPT-202608-0042", l.NextBookingID("APPT", now))
	assert.Equal(t, "CAL-202608-0043", l.NextBookingID("CAL", now))
}

func TestLedgerMissingFileStartsEmpty(t *testing.T) {
	l, err := NewLedger(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.NoError(t, err)
	assert.Empty(t, l.List(ListFilter{}))
}

func TestLedgerOccupiedAtHalfOpen(t *testing.T) {
	l, err := NewLedger(filepath.Join(t.TempDir(), "appointments.json"), nil)
	require.NoError(t, err)
	require.NoError(t, l.Append(testAppointment(t, "APPT-202608-0001", "2026-09-07", "10:00", "10:45")))

	assert.True(t, l.OccupiedAt("2026-09-07", mustClock(t, "10:00"), ""))
	assert.True(t, l.OccupiedAt("2026-09-07", mustClock(t, "10:30"), ""))
	// End boundary is exclusive.
	assert.False(t, l.OccupiedAt("2026-09-07", mustClock(t, "10:45"), ""))
	// Other dates are unaffected.
	assert.False(t, l.OccupiedAt("2026-09-08", mustClock(t, "10:00"), ""))
	// The excluded record does not conflict with itself.
	assert.False(t, l.OccupiedAt("2026-09-07", mustClock(t, "10:00"), "APPT-202608-0001"))
}

func TestLedgerCancelledRecordsDoNotOccupy(t *testing.T) {
	l, err := NewLedger(filepath.Join(t.TempDir(), "appointments.json"), nil)
	require.NoError(t, err)
	appt := testAppointment(t, "APPT-202608-0001", "2026-09-07", "10:00", "10:30")
	appt.Status = StatusCancelled
	require.NoError(t, l.Append(appt))

	assert.False(t, l.OccupiedAt("2026-09-07", mustClock(t, "10:00"), ""))
}

func TestLedgerRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	l, err := NewLedger(path, nil)
	require.NoError(t, err)
	require.NoError(t, l.Append(testAppointment(t, "APPT-202608-0001", "2026-09-07", "10:00", "10:30")))
	require.NoError(t, l.Append(testAppointment(t, "APPT-202608-0002", "2026-09-07", "11:00", "11:30")))

	require.NoError(t, l.Remove("APPT-202608-0001"))
	_, ok := l.Get("APPT-202608-0001")
	assert.False(t, ok)

	reloaded, err := NewLedger(path, nil)
	require.NoError(t, err)
	assert.Len(t, reloaded.List(ListFilter{}), 1)

	assert.ErrorIs(t, l.Remove("APPT-202608-0001"), ErrNotFound)
}

func TestLedgerGetByConfirmationCaseInsensitive(t *testing.T) {
	l, err := NewLedger(filepath.Join(t.TempDir(), "appointments.json"), nil)
	require.NoError(t, err)
	appt := testAppointment(t, "APPT-202608-0001", "2026-09-07", "10:00", "10:30")
	appt.ConfirmationCode = "AB3XK9"
	require.NoError(t, l.Append(appt))

	got, ok := l.GetByConfirmation("ab3xk9")
	require.True(t, ok)
	assert.Equal(t, "APPT-202608-0001", got.BookingID)

	_, ok = l.GetByConfirmation("NOPE99")
	assert.False(t, ok)
}

func TestLedgerListFilters(t *testing.T) {
	l, err := NewLedger(filepath.Join(t.TempDir(), "appointments.json"), nil)
	require.NoError(t, err)
	a := testAppointment(t, "APPT-202608-0001", "2026-09-07", "10:00", "10:30")
	b := testAppointment(t, "APPT-202608-0002", "2026-09-08", "10:00", "10:30")
	b.AppointmentType = "physical"
	b.Status = StatusCancelled
	require.NoError(t, l.Append(a))
	require.NoError(t, l.Append(b))

	assert.Len(t, l.List(ListFilter{Date: "2026-09-07"}), 1)
	assert.Len(t, l.List(ListFilter{Status: StatusCancelled}), 1)
	assert.Len(t, l.List(ListFilter{AppointmentType: "physical"}), 1)
	assert.Len(t, l.List(ListFilter{PatientEmail: "ANA@example.com"}), 2)
	assert.Len(t, l.List(ListFilter{PatientPhone: "555-0101"}), 2)
	assert.Len(t, l.List(ListFilter{PatientPhone: "555-9999"}), 0)
	assert.Len(t, l.List(ListFilter{}), 2)
}

func TestNewConfirmationCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := NewConfirmationCode()
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '2' && r <= '9'), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	// Collisions across 50 draws from a 32^6 space would be remarkable.
	assert.Greater(t, len(seen), 45)
}

func TestLedgerStats(t *testing.T) {
	l, err := NewLedger(filepath.Join(t.TempDir(), "appointments.json"), nil)
	require.NoError(t, err)
	past := testAppointment(t, "APPT-202608-0001", "2026-01-05", "10:00", "10:30")
	future := testAppointment(t, "APPT-202608-0002", "2026-12-07", "10:00", "10:30")
	cancelled := testAppointment(t, "APPT-202608-0003", "2026-12-08", "10:00", "10:30")
	cancelled.Status = StatusCancelled
	require.NoError(t, l.Append(past))
	require.NoError(t, l.Append(future))
	require.NoError(t, l.Append(cancelled))

	s := l.Stats("2026-08-28")
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Confirmed)
	assert.Equal(t, 1, s.Cancelled)
	assert.Equal(t, 1, s.Upcoming)
	assert.Equal(t, 3, s.ByType["consultation"])
}
