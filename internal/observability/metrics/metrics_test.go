package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilReceiversAreSafe(t *testing.T) {
	var s *SchedulingMetrics
	s.ObserveBooking("consultation", "ok")
	s.ObserveCancellation("ok")
	s.ObserveReschedule("error")
	s.ObserveAvailabilityQuery()
	s.SetAdapterMode("mock")
	s.ObserveAdapterFallback()

	var c *ConversationMetrics
	c.ObserveTurn("ok")
	c.ObserveToolCall("book_appointment", "ok")
	c.ObserveModelCall("openai", 0.5)
	c.ObserveRounds(2)
}

func TestRegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewSchedulingMetrics(reg)
	c := NewConversationMetrics(reg)

	s.ObserveBooking("consultation", "ok")
	s.SetAdapterMode("fallback")
	c.ObserveTurn("max_iterations_reached")
	c.ObserveRounds(5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}
