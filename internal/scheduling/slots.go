package scheduling

import (
	"time"

	"github.com/carewell/scheduling-agent/internal/schedule"
)

// Grid generates the raw slot-start sequence for one day: fixed-granularity
// steps from opening to closing, skipping over the lunch interval. When a
// candidate's [start, start+granularity) window touches lunch, the cursor
// jumps to lunch end and retries there instead of emitting.
func Grid(day *schedule.DaySchedule, slotMinutes int) []schedule.Clock {
	if day == nil || slotMinutes <= 0 {
		return nil
	}
	var out []schedule.Clock
	cur := day.Start
	for cur.Add(slotMinutes) <= day.End {
		if day.HasLunch() && cur < *day.LunchEnd && cur.Add(slotMinutes) > *day.LunchStart {
			cur = *day.LunchEnd
			continue
		}
		out = append(out, cur)
		cur = cur.Add(slotMinutes)
	}
	return out
}

// checkpoints returns the n consecutive grid-aligned timestamps an
// appointment starting at t occupies.
func checkpoints(t schedule.Clock, n, slotMinutes int) []schedule.Clock {
	pts := make([]schedule.Clock, n)
	for i := range pts {
		pts[i] = t.Add(i * slotMinutes)
	}
	return pts
}

// available reports whether every checkpoint of a booking starting at t is
// free of active appointments. excludeID exempts the record being moved
// during a reschedule from conflicting with itself.
func (s *Service) available(date string, t schedule.Clock, at schedule.AppointmentType, excludeID string) bool {
	for _, pt := range checkpoints(t, at.SlotsRequired, s.cfg.SlotMinutes) {
		if s.ledger.OccupiedAt(date, pt, excludeID) {
			return false
		}
	}
	return true
}

// slotsForDate computes the open slots for one parsed date. Dates strictly
// before today yield an empty list, never an error.
func (s *Service) slotsForDate(date time.Time, dateStr string, at schedule.AppointmentType, excludeID string) []TimeSlot {
	today := s.now().Format("2006-01-02")
	if dateStr < today {
		return []TimeSlot{}
	}
	day := s.cfg.Day(date)
	if day == nil {
		return []TimeSlot{}
	}
	grid := Grid(day, s.cfg.SlotMinutes)
	slots := make([]TimeSlot, 0, len(grid))
	for _, start := range grid {
		if !s.available(dateStr, start, at, excludeID) {
			continue
		}
		slots = append(slots, TimeSlot{
			StartTime: start.String(),
			EndTime:   start.Add(at.DurationMinutes).String(),
		})
	}
	return slots
}
