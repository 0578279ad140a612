package capture

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"hookbot/internal/pkg/logger"
	"hookbot/internal/platform/metrics"
)

const DefaultTTL = 5 * time.Minute

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Outcome int

const (
	Success Outcome = iota
	SessionNotFound
	SessionExpired
	SessionAlreadyCompleted
	SessionCancelled
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SessionNotFound:
		return "session_not_found"
	case SessionExpired:
		return "session_expired"
	case SessionAlreadyCompleted:
		return "session_already_completed"
	case SessionCancelled:
		return "session_cancelled"
	}
	return "unknown"
}

// Session is a snapshot; stored sessions are replaced, never mutated.
type Session struct {
	ID          string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Status      Status    `json:"status"`
	Payload     []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

func (s *Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Manager keeps capture sessions in memory. Every transition runs inside
// MapOf.Compute, which holds the key's bucket lock for the check and the write.
type Manager struct {
	sessions *xsync.MapOf[string, *Session]
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: xsync.NewMapOf[string, *Session](),
		ttl:      ttl,
		now:      time.Now,
		log:      logger.Component("capture"),
	}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Len() int { return m.sessions.Size() }

func (m *Manager) track() {
	metrics.CaptureSessions.Set(float64(m.sessions.Size()))
}

func (m *Manager) Create(userID string) Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions.Store(s.ID, s)
	m.track()
	m.log.Info().Str("session_id", s.ID).Str("user_id", userID).Time("expires_at", s.ExpiresAt).Msg("capture session created")
	return *s
}

// Get returns the session. An expired session is removed and reported missing.
func (m *Manager) Get(id string) (Session, bool) {
	return m.lookup(id, false)
}

// Poll is Get for the owner: a completed session is handed out once and removed.
func (m *Manager) Poll(id string) (Session, bool) {
	return m.lookup(id, true)
}

func (m *Manager) lookup(id string, consumeCompleted bool) (Session, bool) {
	var out Session
	found := false
	now := m.now()

	m.sessions.Compute(id, func(s *Session, loaded bool) (*Session, bool) {
		if !loaded {
			return nil, true
		}
		if s.expired(now) {
			return nil, true
		}
		out, found = *s, true
		if consumeCompleted && s.Status == StatusCompleted {
			return nil, true
		}
		return s, false
	})
	m.track()
	return out, found
}

// Complete stores payload on a waiting session. Of any number of concurrent
// callers exactly one sees Success.
func (m *Manager) Complete(id string, payload []byte) Outcome {
	outcome := SessionNotFound
	now := m.now()

	m.sessions.Compute(id, func(s *Session, loaded bool) (*Session, bool) {
		if !loaded {
			return nil, true
		}
		if s.expired(now) {
			outcome = SessionExpired
			return nil, true
		}
		if s.Status != StatusWaiting {
			outcome = SessionAlreadyCompleted
			return s, false
		}
		next := *s
		next.Status = StatusCompleted
		next.Payload = append([]byte(nil), payload...)
		next.CompletedAt = now
		outcome = Success
		return &next, false
	})
	m.track()

	m.log.Info().Str("session_id", id).Str("outcome", outcome.String()).Msg("capture completion")
	return outcome
}

// Cancel marks a waiting session cancelled. The entry stays until it expires so
// that late completions see SessionAlreadyCompleted instead of not found.
func (m *Manager) Cancel(id string) Outcome {
	outcome := SessionNotFound
	now := m.now()

	m.sessions.Compute(id, func(s *Session, loaded bool) (*Session, bool) {
		if !loaded {
			return nil, true
		}
		if s.expired(now) {
			return nil, true
		}
		if s.Status != StatusWaiting {
			outcome = SessionAlreadyCompleted
			return s, false
		}
		next := *s
		next.Status = StatusCancelled
		next.CompletedAt = now
		outcome = SessionCancelled
		return &next, false
	})
	m.track()
	return outcome
}

func (m *Manager) Remove(id string) {
	m.sessions.Delete(id)
	m.track()
}

// SweepExpired deletes every expired session and returns how many went away.
func (m *Manager) SweepExpired() int {
	now := m.now()
	removed := 0

	m.sessions.Range(func(id string, s *Session) bool {
		if !s.expired(now) {
			return true
		}
		m.sessions.Compute(id, func(cur *Session, loaded bool) (*Session, bool) {
			if loaded && cur.expired(now) {
				removed++
				return nil, true
			}
			return cur, !loaded
		})
		return true
	})
	m.track()
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.SweepExpired(); n > 0 {
				m.log.Debug().Int("removed", n).Msg("expired capture sessions swept")
			}
		}
	}
}
