package studio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 2 * time.Hour

// DefaultMaxSessions bounds the registry; creating past it evicts the least
// recently used session.
const DefaultMaxSessions = 10000

// Registry owns the in-memory sessions of a process.
type Registry struct {
	adapters Adapters
	ttl      time.Duration
	max      int
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates an empty registry. A non-positive ttl uses DefaultSessionTTL.
func NewRegistry(adapters Adapters, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{
		adapters: adapters,
		ttl:      ttl,
		max:      DefaultMaxSessions,
		now:      time.Now,
		sessions: make(map[string]*registryEntry),
	}
}

// SetMaxSessions changes the session cap. Non-positive values restore
// DefaultMaxSessions.
func (r *Registry) SetMaxSessions(n int) {
	if n <= 0 {
		n = DefaultMaxSessions
	}
	r.mu.Lock()
	r.max = n
	r.mu.Unlock()
}

// Create starts a new session with a random id, evicting the least recently
// used sessions when the registry is full.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.adapters)

	r.mu.Lock()
	var evicted []*Session
	for len(r.sessions) >= r.max {
		evicted = append(evicted, r.evictOldestLocked())
	}
	r.sessions[s.ID()] = &registryEntry{session: s, lastSeen: r.now()}
	n, limit := len(r.sessions), r.max
	r.mu.Unlock()

	for _, old := range evicted {
		old.Close()
		log.Warn().Str("session", old.ID()).Int("max", limit).Msg("Session evicted at capacity")
	}
	log.Debug().Str("session", s.ID()).Int("sessions", n).Msg("Session created")
	return s
}

func (r *Registry) evictOldestLocked() *Session {
	var oldestID string
	var oldest *registryEntry
	for id, e := range r.sessions {
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, e
		}
	}
	delete(r.sessions, oldestID)
	return oldest.session
}

// Get returns the session with id and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.session, true
}

// GetOrCreate returns the session with id, or a new one when id is unknown.
// created reports which happened.
func (r *Registry) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false
		}
	}
	return r.Create(), true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and removes sessions idle for longer than the TTL and returns
// how many it removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("Expired idle sessions")
	}
	return len(expired)
}

// Run sweeps every interval until ctx ends, then closes all sessions.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			r.closeAll()
			return
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*registryEntry)
	r.mu.Unlock()
	for _, e := range sessions {
		e.session.Close()
	}
}
