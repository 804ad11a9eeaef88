package auth

import (
	"time"

	"github.com/google/uuid"

	"fundtracker/internal/cache"
)

// Session is one logged-in browser.
type Session struct {
	ID        string
	User      string
	CreatedAt time.Time
}

// Sessions maps opaque ids to sessions. It starts empty, so every
// client starts logged out.
type Sessions struct {
	store *cache.LRUCache[Session]
	now   func() time.Time
}

const maxSessions = 1024

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		store: cache.NewLRUCache[Session](maxSessions, ttl),
		now:   time.Now,
	}
}

// Login starts a session for user.
func (s *Sessions) Login(user string) Session {
	sess := Session{ID: uuid.NewString(), User: user, CreatedAt: s.now()}
	s.store.Set(sess.ID, sess)
	return sess
}

// Lookup returns the live session with id.
func (s *Sessions) Lookup(id string) (Session, bool) {
	if id == "" {
		return Session{}, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, false
	}
	return s.store.Get(id)
}

// Logout ends a session; unknown ids are ignored.
func (s *Sessions) Logout(id string) {
	s.store.Delete(id)
}

// Cleaner exposes the backing cache for periodic sweeping.
func (s *Sessions) Cleaner() cache.Cleaner { return s.store }

func (s *Sessions) withClock(now func() time.Time) *Sessions {
	s.now = now
	s.store.WithClock(now)
	return s
}
