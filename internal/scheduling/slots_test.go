package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewell/scheduling-agent/internal/schedule"
)

func clockList(slots []schedule.Clock) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func TestGridSkipsLunch(t *testing.T) {
	mon := schedule.Default().Week["monday"]
	grid := clockList(Grid(mon, 30))

	assert.Contains(t, grid, "11:30")
	assert.Contains(t, grid, "13:00")
	assert.NotContains(t, grid, "12:00")
	assert.NotContains(t, grid, "12:30")

	// First and last candidates stay inside working hours.
	require.NotEmpty(t, grid)
	assert.Equal(t, "09:00", grid[0])
	assert.Equal(t, "16:30", grid[len(grid)-1])
}

func TestGridNoLunch(t *testing.T) {
	sat := schedule.Default().Week["saturday"]
	grid := clockList(Grid(sat, 30))
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30"}, grid)
}

func TestGridClosedDay(t *testing.T) {
	assert.Nil(t, Grid(nil, 30))
}

func TestGridLunchBoundarySpan(t *testing.T) {
	// A 45-minute granularity straddles the lunch start at 11:15; the
	// cursor must jump to lunch end rather than emit the straddler.
	ls, _ := schedule.ParseClock("12:00")
	le, _ := schedule.ParseClock("13:00")
	day := &schedule.DaySchedule{Start: 9 * 60, End: 15 * 60, LunchStart: &ls, LunchEnd: &le}
	grid := clockList(Grid(day, 45))
	assert.Equal(t, []string{"09:00", "09:45", "10:30", "13:00", "13:45"}, grid)
}

func TestCheckpoints(t *testing.T) {
	start, _ := schedule.ParseClock("10:00")
	pts := checkpoints(start, 2, 30)
	require.Len(t, pts, 2)
	assert.Equal(t, "10:00", pts[0].String())
	assert.Equal(t, "10:30", pts[1].String())
}
