package revenue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an idle chart session stays mounted.
const DefaultSessionTTL = 30 * time.Minute

// ErrSessionNotFound reports an unknown or expired chart session.
var ErrSessionNotFound = errors.New("revenue: chart session not found")

// Session is one mounted chart owned by a single viewer.
type Session struct {
	ID         string
	Viewer     ViewerContext
	Controller *ChartController
	CreatedAt  time.Time

	// lastSeen is guarded by the owning Sessions registry lock.
	lastSeen time.Time
}

// Sessions tracks live chart sessions and unmounts the ones left idle.
type Sessions struct {
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
	telemetry Telemetry

	mu    sync.Mutex
	items map[string]*Session
}

// SessionsOption customizes a Sessions registry.
type SessionsOption func(*Sessions)

// WithSessionClock replaces time.Now, mostly for tests.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionLogger sets the registry logger.
func WithSessionLogger(logger *zap.Logger) SessionsOption {
	return func(s *Sessions) {
		s.logger = logger
	}
}

// WithSessionTelemetry sets the telemetry sink for expirations.
func WithSessionTelemetry(telemetry Telemetry) SessionsOption {
	return func(s *Sessions) {
		s.telemetry = telemetry
	}
}

// NewSessions builds a registry. A non-positive ttl uses DefaultSessionTTL.
func NewSessions(ttl time.Duration, opts ...SessionsOption) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &Sessions{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = normalizeLogger(s.logger).Named("sessions")
	s.telemetry = normalizeTelemetry(s.telemetry)
	return s
}

// Add registers session, stamping its timestamps.
func (s *Sessions) Add(session *Session) {
	if session == nil || session.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.lastSeen = now
	s.items[session.ID] = session
}

// Get returns the session and refreshes its idle timer.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok {
		return nil, false
	}
	session.lastSeen = s.now()
	return session, true
}

// Remove forgets the session without unmounting it.
func (s *Sessions) Remove(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	return session, ok
}

// Close unmounts and forgets the session.
func (s *Sessions) Close(ctx context.Context, id string) error {
	session, ok := s.Remove(id)
	if !ok {
		return ErrSessionNotFound
	}
	return session.Controller.Unmount(ctx)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IDs returns the live session ids in sorted order.
func (s *Sessions) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep unmounts every session idle for longer than the TTL and returns how
// many were closed.
func (s *Sessions) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	var expired []*Session
	for id, session := range s.items {
		if session.lastSeen.Before(cutoff) {
			expired = append(expired, session)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		if err := session.Controller.Unmount(ctx); err != nil {
			s.logger.Warn("unmount expired session", zap.String("session", session.ID), zap.Error(err))
		}
		s.telemetry.Record(ctx, EventSessionExpired, map[string]any{
			"session": session.ID,
			"user_id": session.Viewer.UserID,
		})
	}
	return len(expired)
}

// CloseAll unmounts every session.
func (s *Sessions) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.items))
	for _, session := range s.items {
		sessions = append(sessions, session)
	}
	s.items = make(map[string]*Session)
	s.mu.Unlock()

	var errs []error
	for _, session := range sessions {
		if err := session.Controller.Unmount(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run sweeps expired sessions every interval until ctx is done, then closes
// every remaining session.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.CloseAll(context.WithoutCancel(ctx))
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				s.logger.Debug("expired chart sessions", zap.Int("count", n))
			}
		}
	}
}
