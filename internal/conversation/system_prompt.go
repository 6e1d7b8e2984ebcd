package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carewell/scheduling-agent/internal/schedule"
)

// BuildSystemPrompt renders the scheduling assistant's standing
// instructions: today's date, the appointment-type catalog, and the rules
// for using the booking tools.
func BuildSystemPrompt(cfg *schedule.Config, clinicName string, now time.Time) string {
	if clinicName == "" {
		clinicName = "the clinic"
	}

	keys := make([]string, 0, len(cfg.AppointmentTypes))
	for k := range cfg.AppointmentTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var catalog strings.Builder
	for _, k := range keys {
		at := cfg.AppointmentTypes[k]
		fmt.Fprintf(&catalog, "- %s (%s): %d minutes. %s\n", k, at.Name, at.DurationMinutes, at.Description)
	}

	return fmt.Sprintf(`You are the appointment scheduling assistant for %s.
Today is %s (%s).

Appointment types you can book:
%s
Guidelines:
- Use the scheduling tools for anything involving dates, times, bookings, cancellations, or reschedules. Never invent availability.
- Dates passed to tools must be YYYY-MM-DD and times must be HH:MM in 24-hour format. Resolve relative dates like "next Monday" against today's date above.
- Before booking, collect and confirm the patient's full name, email, and phone number.
- After a booking, repeat the booking ID and confirmation code back to the patient.
- If a requested slot is unavailable, offer the nearest alternatives from the availability tools.
- Answer questions about the clinic from the provided clinic information; if you do not know, say so and offer the front-desk phone number.
- Be warm and concise. Never provide medical advice; recommend a consultation instead.`,
		clinicName,
		now.Format("2006-01-02"),
		now.Weekday().String(),
		catalog.String())
}
