// Package router assembles the HTTP surface: the scheduling REST endpoints,
// the conversational chat endpoints, and the operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carewell/scheduling-agent/internal/calendly"
	"github.com/carewell/scheduling-agent/internal/conversation"
	httpmiddleware "github.com/carewell/scheduling-agent/internal/http/middleware"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	SchedulingHandler  *calendly.Handler
	ChatHandler        *conversation.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// ChatRatePerSecond throttles the chat endpoint per client IP; zero
	// disables throttling. ChatBurst defaults to 5.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		if s := cfg.SchedulingHandler; s != nil {
			r.Get("/availability", s.Availability)
			r.Get("/availability/next-dates", s.NextAvailable)
			r.Post("/book", s.Book)
			r.Delete("/cancel/{bookingID}", s.Cancel)
			r.Post("/reschedule/{bookingID}", s.Reschedule)
			r.Get("/appointment/{bookingID}", s.Get)
			r.Get("/appointment/confirmation/{code}", s.GetByConfirmation)
			r.Get("/appointments", s.List)
			r.Delete("/appointments/{bookingID}", s.Delete)
			r.Get("/appointments/stats/summary", s.StatsEndpoint)
			r.Get("/types", s.Types)
			r.Get("/status", s.Status)
		}

		if c := cfg.ChatHandler; c != nil {
			r.Group(func(r chi.Router) {
				if cfg.ChatRatePerSecond > 0 {
					burst := cfg.ChatBurst
					if burst <= 0 {
						burst = 5
					}
					r.Use(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, burst))
				}
				r.Post("/chat", c.Chat)
				r.Get("/chat/{sessionID}", c.History)
				r.Delete("/chat/{sessionID}", c.DeleteHistory)
			})
		}
	})

	return r
}
