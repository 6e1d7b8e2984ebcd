package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFAQQuery(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"What are your hours?", true},
		{"where is the clinic located", true},
		{"Do you accept BlueCross insurance?", true},
		{"how much does a consultation cost", true},
		{"Is there parking nearby?", true},
		{"What is your cancellation policy?", true},

		// Scheduling actions, not information questions.
		{"Book me a checkup for next Monday", false},
		{"cancel my appointment APPT-202608-0001", false},
		{"I need to reschedule to Friday", false},

		// Questions without domain keywords.
		{"How are you today?", false},
		{"what's up?", false},

		// Keywords without interrogatives.
		{"parking", false},
		{"tell me nothing", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsFAQQuery(tt.message), "%q", tt.message)
	}
}
