// Package schedule defines the clinic's weekly working-hours configuration
// and appointment-type catalog. The config is immutable after load; all
// slot computation happens in the scheduling package.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Clock is a time of day expressed as minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" into a Clock.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid time %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock advanced by n minutes.
func (c Clock) Add(n int) Clock { return c + Clock(n) }

// MarshalJSON encodes the clock as its "HH:MM" string form.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes "HH:MM" into a Clock.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DaySchedule describes one weekday's working hours. A nil DaySchedule in
// the week map means the clinic is closed that day.
type DaySchedule struct {
	Start      Clock  `json:"start"`
	End        Clock  `json:"end"`
	LunchStart *Clock `json:"lunch_start,omitempty"`
	LunchEnd   *Clock `json:"lunch_end,omitempty"`
}

// HasLunch reports whether a lunch break is configured.
func (d *DaySchedule) HasLunch() bool {
	return d != nil && d.LunchStart != nil && d.LunchEnd != nil
}

// AppointmentType describes one bookable appointment kind.
type AppointmentType struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	SlotsRequired   int    `json:"slots_required"`
	Description     string `json:"description,omitempty"`
}

// Config is the full weekly schedule definition. Weekday keys are lowercase
// English day names ("monday" .. "sunday").
type Config struct {
	Week             map[string]*DaySchedule    `json:"week"`
	AppointmentTypes map[string]AppointmentType `json:"appointment_types"`
	SlotMinutes      int                        `json:"slot_minutes"`
	BlockedDates     []string                   `json:"blocked_dates,omitempty"`

	blocked map[string]struct{}
}

// Load reads a schedule config from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schedule: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("schedule: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.index()
	return &cfg, nil
}

// Default returns the built-in clinic schedule used when no schedule file is
// configured: weekdays 09:00-17:00 with a 12:00-13:00 lunch, Saturday
// 09:00-13:00, closed Sunday, 30-minute slots.
func Default() *Config {
	lunchStart, _ := ParseClock("12:00")
	lunchEnd, _ := ParseClock("13:00")
	weekday := func() *DaySchedule {
		ls, le := lunchStart, lunchEnd
		return &DaySchedule{Start: 9 * 60, End: 17 * 60, LunchStart: &ls, LunchEnd: &le}
	}
	cfg := &Config{
		Week: map[string]*DaySchedule{
			"monday":    weekday(),
			"tuesday":   weekday(),
			"wednesday": weekday(),
			"thursday":  weekday(),
			"friday":    weekday(),
			"saturday":  {Start: 9 * 60, End: 13 * 60},
			"sunday":    nil,
		},
		AppointmentTypes: map[string]AppointmentType{
			"consultation": {Name: "General Consultation", DurationMinutes: 30, SlotsRequired: 1, Description: "Standard visit for new or ongoing concerns"},
			"checkup":      {Name: "Routine Checkup", DurationMinutes: 30, SlotsRequired: 1, Description: "Annual or routine health check"},
			"physical":     {Name: "Physical Examination", DurationMinutes: 45, SlotsRequired: 2, Description: "Comprehensive physical exam"},
			"followup":     {Name: "Follow-up Visit", DurationMinutes: 15, SlotsRequired: 1, Description: "Brief follow-up on a prior visit"},
			"specialist":   {Name: "Specialist Consultation", DurationMinutes: 60, SlotsRequired: 2, Description: "Extended consultation with a specialist"},
		},
		SlotMinutes: 30,
	}
	cfg.index()
	return cfg
}

func (c *Config) validate() error {
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("schedule: slot_minutes must be positive, got %d", c.SlotMinutes)
	}
	for day, d := range c.Week {
		if d == nil {
			continue
		}
		if d.End <= d.Start {
			return fmt.Errorf("schedule: %s end %s not after start %s", day, d.End, d.Start)
		}
		if (d.LunchStart == nil) != (d.LunchEnd == nil) {
			return fmt.Errorf("schedule: %s lunch interval must set both start and end", day)
		}
		if d.HasLunch() && *d.LunchEnd <= *d.LunchStart {
			return fmt.Errorf("schedule: %s lunch end %s not after start %s", day, *d.LunchEnd, *d.LunchStart)
		}
	}
	for key, at := range c.AppointmentTypes {
		if at.DurationMinutes <= 0 {
			return fmt.Errorf("schedule: appointment type %q has non-positive duration", key)
		}
		if at.SlotsRequired <= 0 {
			return fmt.Errorf("schedule: appointment type %q has non-positive slots_required", key)
		}
	}
	for _, d := range c.BlockedDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("schedule: invalid blocked date %q: %w", d, err)
		}
	}
	return nil
}

func (c *Config) index() {
	c.blocked = make(map[string]struct{}, len(c.BlockedDates))
	for _, d := range c.BlockedDates {
		c.blocked[d] = struct{}{}
	}
}

// Day returns the schedule for a calendar date, or nil when the clinic is
// closed (weekday closed or date blocked).
func (c *Config) Day(date time.Time) *DaySchedule {
	if _, ok := c.blocked[date.Format("2006-01-02")]; ok {
		return nil
	}
	return c.Week[strings.ToLower(date.Weekday().String())]
}

// Type looks up an appointment type by key.
func (c *Config) Type(key string) (AppointmentType, bool) {
	at, ok := c.AppointmentTypes[strings.ToLower(strings.TrimSpace(key))]
	return at, ok
}
