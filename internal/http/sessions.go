package http

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

// sessionRegistry keeps one Session per user. Idle sessions expire after the
// TTL and the least recently used one goes when the registry is full; either
// way the session's subscription is closed.
type sessionRegistry struct {
	live       services.Subscriber
	recurrence *services.RecurrenceEngine
	sessions   *cache.LRUCache[*services.Session]
	now        func() core.Month

	// opening collapses concurrent opens for the same user; different
	// users open independently.
	opening singleflight.Group
}

func newSessionRegistry(live services.Subscriber, recurrence *services.RecurrenceEngine, max int, ttl time.Duration) *sessionRegistry {
	r := &sessionRegistry{live: live, recurrence: recurrence, now: core.CurrentMonth}
	r.sessions = cache.NewLRUCache[*services.Session](max, ttl).OnEvict(func(userID string, s *services.Session) {
		s.Close()
		slog.Debug("Session released", "user_id", userID)
	})
	return r
}

// get returns userID's session, opening it on the current month if needed.
func (r *sessionRegistry) get(ctx context.Context, userID string) (*services.Session, error) {
	if s, ok := r.sessions.Get(userID); ok {
		return s, nil
	}

	v, err, _ := r.opening.Do(userID, func() (any, error) {
		if s, ok := r.sessions.Get(userID); ok {
			return s, nil
		}
		s, err := services.OpenSession(ctx, r.live, r.recurrence, userID, r.now())
		if err != nil {
			return nil, err
		}
		// Pick up rows recurrence just wrote.
		if err := s.Refresh(ctx); err != nil {
			slog.WarnContext(ctx, "Session refresh after open failed", "user_id", userID, "error", err)
		}
		r.sessions.Set(userID, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*services.Session), nil
}

// with runs fn on userID's session. A session closed by eviction between
// lookup and use is reopened once.
func (r *sessionRegistry) with(ctx context.Context, userID string, fn func(*services.Session) error) error {
	for attempt := 0; ; attempt++ {
		s, err := r.get(ctx, userID)
		if err != nil {
			return err
		}
		err = fn(s)
		if errors.Is(err, services.ErrSessionClosed) && attempt == 0 {
			continue
		}
		return err
	}
}

func (r *sessionRegistry) size() int { return r.sessions.Size() }

func (r *sessionRegistry) closeAll() { r.sessions.Purge() }

var _ services.Subscriber = (*ledger.Live)(nil)
