package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/csvcodec"
	"fintrack/internal/ledger"
)

var ErrSessionClosed = errors.New("session closed")

// Subscriber opens live month views; implemented by *ledger.Live.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, month core.Month) (*ledger.Subscription, error)
}

// Dashboard is everything a client renders for one month.
type Dashboard struct {
	UserID   string
	Month    core.Month
	Filter   Filter
	Visible  []core.Transaction
	Summary  core.Summary
	Budgets  []core.Budget
	Goals    []core.Goal
	Status   ledger.Status
	Version  uint64
	LoadedAt time.Time
}

// Session holds one user's active month, its live subscription and the
// active filter. Month changes are serialized.
type Session struct {
	userID     string
	live       Subscriber
	recurrence *RecurrenceEngine

	mu     sync.Mutex
	month  core.Month
	sub    *ledger.Subscription
	filter Filter
	closed bool
}

// OpenSession subscribes to month and propagates recurring transactions into it.
func OpenSession(ctx context.Context, live Subscriber, recurrence *RecurrenceEngine, userID string, month core.Month) (*Session, error) {
	s := &Session{userID: userID, live: live, recurrence: recurrence}
	if err := s.SetMonth(ctx, month); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) Month() core.Month {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.month
}

// SetMonth switches the active month: the old subscription is closed before
// the new one is opened, then recurrence runs against the fresh month set.
// Setting the current month again only reconnects a lost subscription.
func (s *Session) SetMonth(ctx context.Context, month core.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.sub != nil && s.month == month {
		return nil
	}
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	s.month = month

	sub, err := s.live.Subscribe(ctx, s.userID, month)
	if err != nil {
		return err
	}
	s.sub = sub

	if s.recurrence != nil {
		res, err := s.recurrence.Propagate(ctx, s.userID, month, sub.Latest().Transactions)
		if err != nil {
			slog.WarnContext(ctx, "Recurring propagation failed",
				"user_id", s.userID,
				"month", month.String(),
				"created", res.Created,
				"error", err)
		}
	}
	return nil
}

func (s *Session) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

func (s *Session) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Updates delivers snapshots of the current subscription. The channel
// changes when the month does; nil when there is no subscription.
func (s *Session) Updates() <-chan ledger.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	return s.sub.Updates()
}

// Refresh reloads the current subscription synchronously.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub == nil {
		return ledger.ErrStoreUnavailable
	}
	return sub.Refresh(ctx)
}

// View recomputes the dashboard from the latest snapshot.
func (s *Session) View() Dashboard {
	s.mu.Lock()
	sub, month, filter := s.sub, s.month, s.filter
	s.mu.Unlock()

	d := Dashboard{UserID: s.userID, Month: month, Filter: filter}
	if sub == nil {
		d.Status = ledger.Status{Err: ledger.ErrStoreUnavailable}
		d.Visible = []core.Transaction{}
		d.Summary = Aggregate(nil, nil, nil, nil)
		return d
	}

	snap := sub.Latest()
	d.Visible = filter.Apply(snap.Transactions)
	d.Summary = Aggregate(d.Visible, snap.Budgets, snap.Goals, snap.Ledger)
	d.Budgets = snap.Budgets
	d.Goals = snap.Goals
	d.Status = sub.Status()
	d.Version = snap.Version
	d.LoadedAt = snap.LoadedAt
	return d
}

// Export renders the visible set as CSV along with its download name.
func (s *Session) Export() (body, filename string) {
	d := s.View()
	return csvcodec.Export(d.Visible), csvcodec.Filename(d.Month)
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}
