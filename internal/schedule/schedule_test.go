package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    Clock
		wantErr bool
	}{
		{"09:00", 540, false},
		{"12:30", 750, false},
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{"25:00", 0, true},
		{"not-a-time", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestClockString(t *testing.T) {
	c, err := ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", c.String())
	assert.Equal(t, "09:35", c.Add(30).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	// Monday is open with lunch.
	mon := cfg.Week["monday"]
	require.NotNil(t, mon)
	assert.True(t, mon.HasLunch())
	assert.Equal(t, "12:00", mon.LunchStart.String())

	// Sunday is closed.
	assert.Nil(t, cfg.Week["sunday"])

	// Physical spans two slots.
	physical, ok := cfg.Type("physical")
	require.True(t, ok)
	assert.Equal(t, 45, physical.DurationMinutes)
	assert.Equal(t, 2, physical.SlotsRequired)

	_, ok = cfg.Type("nonexistent")
	assert.False(t, ok)
}

func TestTypeLookupNormalizes(t *testing.T) {
	cfg := Default()
	_, ok := cfg.Type("  Consultation ")
	assert.True(t, ok)
}

func TestDayClosedAndBlocked(t *testing.T) {
	cfg := Default()
	cfg.BlockedDates = []string{"2026-09-07"}
	cfg.index()

	// 2026-09-06 is a Sunday.
	sunday, _ := time.Parse("2006-01-02", "2026-09-06")
	assert.Nil(t, cfg.Day(sunday))

	// 2026-09-07 is a Monday but blocked.
	blockedMonday, _ := time.Parse("2006-01-02", "2026-09-07")
	assert.Nil(t, cfg.Day(blockedMonday))

	// 2026-09-08 is an open Tuesday.
	tuesday, _ := time.Parse("2006-01-02", "2026-09-08")
	assert.NotNil(t, cfg.Day(tuesday))
}

func TestLoadFromFile(t *testing.T) {
	raw := `{
		"week": {
			"monday": {"start": "08:00", "end": "16:00", "lunch_start": "12:00", "lunch_end": "12:30"},
			"sunday": null
		},
		"appointment_types": {
			"consultation": {"name": "Consultation", "duration_minutes": 30, "slots_required": 1}
		},
		"slot_minutes": 30,
		"blocked_dates": ["2026-12-25"]
	}`
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.SlotMinutes)
	mon := cfg.Week["monday"]
	require.NotNil(t, mon)
	assert.Equal(t, "08:00", mon.Start.String())
	assert.True(t, mon.HasLunch())

	christmas, _ := time.Parse("2006-01-02", "2026-12-25")
	assert.Nil(t, cfg.Day(christmas))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"zero slot minutes", `{"week":{},"appointment_types":{},"slot_minutes":0}`},
		{"end before start", `{"week":{"monday":{"start":"17:00","end":"09:00"}},"appointment_types":{},"slot_minutes":30}`},
		{"half lunch", `{"week":{"monday":{"start":"09:00","end":"17:00","lunch_start":"12:00"}},"appointment_types":{},"slot_minutes":30}`},
		{"bad blocked date", `{"week":{},"appointment_types":{},"slot_minutes":30,"blocked_dates":["25-12-2026"]}`},
		{"zero duration type", `{"week":{},"appointment_types":{"x":{"name":"X","duration_minutes":0,"slots_required":1}},"slot_minutes":30}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "schedule.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.raw), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
