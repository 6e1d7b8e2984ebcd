package conversation

import "strings"

// interrogative markers: a question mark or a leading question word.
var interrogatives = []string{
	"what", "when", "where", "who", "how", "why", "which",
	"do you", "does the", "can i", "could i", "is there", "are there",
	"is the", "are the",
}

// domain keywords that signal a clinic-information question rather than a
// scheduling action.
var faqKeywords = []string{
	"hour", "open", "close", "closing", "locat", "address", "directions",
	"park", "parking", "insurance", "cost", "price", "fee", "pay",
	"policy", "policies", "prescription", "refill", "bring", "new patient",
	"wait", "walk-in", "walk in", "service", "offer", "accept", "telehealth",
	"covid", "mask",
}

// IsFAQQuery reports whether a message looks like a clinic-information
// question: it must contain an interrogative marker and at least one domain
// keyword. Scheduling requests ("book me in", "cancel my appointment")
// fail the first test and skip knowledge retrieval.
func IsFAQQuery(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return false
	}

	interrogative := strings.Contains(msg, "?")
	if !interrogative {
		for _, marker := range interrogatives {
			if strings.HasPrefix(msg, marker+" ") || strings.Contains(msg, " "+marker+" ") {
				interrogative = true
				break
			}
		}
	}
	if !interrogative {
		return false
	}

	for _, kw := range faqKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
