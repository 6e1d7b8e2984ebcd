// Package calendly wraps the external Calendly scheduling provider and the
// local booking engine behind one adapter with automatic degraded-mode
// fallback.
package calendly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carewell/scheduling-agent/pkg/logging"
)

// ProviderError wraps a failed remote call. Seeing one in real mode
// triggers the adapter's fallback latch.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendly: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("calendly: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClientConfig holds credentials for the Calendly REST API.
type ClientConfig struct {
	APIKey          string
	BaseURL         string
	UserURI         string
	OrganizationURI string
	Timeout         time.Duration
}

// Client is a thin Calendly v2 REST client covering the calls the adapter
// needs: a connectivity probe, event-type discovery, availability lookup,
// single-use scheduling links, and event cancellation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userURI    string
	orgURI     string
	logger     *logging.Logger
}

// NewClient returns nil when no API key is configured; the adapter treats a
// nil client as mock-only.
func NewClient(cfg ClientConfig, logger *logging.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.calendly.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		userURI:    cfg.UserURI,
		orgURI:     cfg.OrganizationURI,
		logger:     logger,
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ProviderError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &ProviderError{Op: op, Err: err}
		}
	}
	return nil
}

// Probe verifies credentials by fetching the current user. It also resolves
// the user URI when one was not configured.
func (c *Client) Probe(ctx context.Context) error {
	var out struct {
		Resource struct {
			URI                 string `json:"uri"`
			CurrentOrganization string `json:"current_organization"`
		} `json:"resource"`
	}
	if err := c.do(ctx, "probe", http.MethodGet, "/users/me", nil, nil, &out); err != nil {
		return err
	}
	if c.userURI == "" {
		c.userURI = out.Resource.URI
	}
	if c.orgURI == "" {
		c.orgURI = out.Resource.CurrentOrganization
	}
	return nil
}

// EventType is one bookable Calendly event definition.
type EventType struct {
	URI             string `json:"uri"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	DurationMinutes int    `json:"duration"`
	SchedulingURL   string `json:"scheduling_url"`
}

// EventTypes lists the user's active event types.
func (c *Client) EventTypes(ctx context.Context) ([]EventType, error) {
	q := url.Values{}
	q.Set("user", c.userURI)
	q.Set("active", "true")
	var out struct {
		Collection []EventType `json:"collection"`
	}
	if err := c.do(ctx, "event_types", http.MethodGet, "/event_types", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Collection, nil
}

// AvailableTimes returns the bookable start times for an event type on one
// calendar date.
func (c *Client) AvailableTimes(ctx context.Context, eventTypeURI, date string) ([]time.Time, error) {
	q := url.Values{}
	q.Set("event_type", eventTypeURI)
	q.Set("start_time", date+"T00:00:00Z")
	q.Set("end_time", date+"T23:59:59Z")
	var out struct {
		Collection []struct {
			StartTime time.Time `json:"start_time"`
			Status    string    `json:"status"`
		} `json:"collection"`
	}
	if err := c.do(ctx, "available_times", http.MethodGet, "/event_type_available_times", q, nil, &out); err != nil {
		return nil, err
	}
	times := make([]time.Time, 0, len(out.Collection))
	for _, slot := range out.Collection {
		if slot.Status == "" || slot.Status == "available" {
			times = append(times, slot.StartTime)
		}
	}
	return times, nil
}

// CreateSchedulingLink creates a single-use booking link for an event type.
// The returned URL is stored on the ledger record as the remote URI.
func (c *Client) CreateSchedulingLink(ctx context.Context, eventTypeURI string) (string, error) {
	body := map[string]any{
		"max_event_count": 1,
		"owner":           eventTypeURI,
		"owner_type":      "EventType",
	}
	var out struct {
		Resource struct {
			BookingURL string `json:"booking_url"`
		} `json:"resource"`
	}
	if err := c.do(ctx, "scheduling_link", http.MethodPost, "/scheduling_links", nil, body, &out); err != nil {
		return "", err
	}
	return out.Resource.BookingURL, nil
}

// CancelEvent cancels a scheduled event by its URI.
func (c *Client) CancelEvent(ctx context.Context, eventURI, reason string) error {
	parts := strings.Split(strings.TrimRight(eventURI, "/"), "/")
	uuid := parts[len(parts)-1]
	body := map[string]any{"reason": reason}
	return c.do(ctx, "cancel_event", http.MethodPost,
		"/scheduled_events/"+uuid+"/cancellation", nil, body, nil)
}
