package conversation

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Session is one conversation's durable state: the user/assistant turn
// history plus a free-form context map.
type Session struct {
	ID        string            `json:"id"`
	Turns     []Turn            `json:"turns"`
	Context   map[string]string `json:"context,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SessionStore is the keyed conversation-history cache. Get returns
// (nil, nil) for an unknown or expired session.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore is a TTL + LRU bounded in-process store. When the
// session count exceeds maxSessions the least recently used entry is
// evicted; expired entries are dropped on read.
type MemorySessionStore struct {
	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type memoryEntry struct {
	session *Session
	savedAt time.Time
}

// NewMemorySessionStore creates a bounded store. ttl defaults to 24h and
// maxSessions to 10000.
func NewMemorySessionStore(ttl time.Duration, maxSessions int) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxSessions <= 0 {
		maxSessions = 10000
	}
	return &MemorySessionStore{
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		entries:     make(map[string]*list.Element),
		order:       list.New(),
	}
}

// Get returns the session, refreshing its LRU position.
func (m *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	entry := el.Value.(*memoryEntry)
	if m.now().Sub(entry.savedAt) > m.ttl {
		m.order.Remove(el)
		delete(m.entries, id)
		return nil, nil
	}
	m.order.MoveToFront(el)

	// Copy so callers cannot mutate the stored session in place.
	out := *entry.session
	out.Turns = append([]Turn(nil), entry.session.Turns...)
	return &out, nil
}

// Save stores the session, evicting the LRU entry past the cap.
func (m *MemorySessionStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("conversation: session requires an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *s
	stored.Turns = append([]Turn(nil), s.Turns...)
	stored.UpdatedAt = m.now()

	if el, ok := m.entries[s.ID]; ok {
		el.Value = &memoryEntry{session: &stored, savedAt: m.now()}
		m.order.MoveToFront(el)
		return nil
	}
	m.entries[s.ID] = m.order.PushFront(&memoryEntry{session: &stored, savedAt: m.now()})

	for len(m.entries) > m.maxSessions {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).session.ID)
	}
	return nil
}

// Delete removes a session.
func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[id]; ok {
		m.order.Remove(el)
		delete(m.entries, id)
	}
	return nil
}

// Len reports how many sessions are held.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisSessionStore keeps sessions in Redis so they survive restarts and
// are shared across replicas. Expiry is delegated to the key TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisSessionStore creates a Redis-backed store. ttl defaults to 24h.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("conversation.sessions"),
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Get loads a session; redis.Nil maps to (nil, nil).
func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := r.tracer.Start(ctx, "conversation.session_get")
	defer span.End()

	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return &s, nil
}

// Save stores the session with the configured TTL.
func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	ctx, span := r.tracer.Start(ctx, "conversation.session_save")
	defer span.End()

	if s == nil || s.ID == "" {
		return fmt.Errorf("conversation: session requires an id")
	}
	s.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(s)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "conversation.session_delete")
	defer span.End()

	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete session: %w", err)
	}
	return nil
}
