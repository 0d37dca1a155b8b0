// Package memory is an in-process ledger.Repository used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type txRow struct {
	tx  core.Transaction
	seq uint64
}

type userData struct {
	txns    map[string]txRow
	budgets map[core.Tag]core.Budget
	goals   map[string]core.Goal
}

type Store struct {
	mu    sync.Mutex
	seq   uint64
	users map[string]*userData
	now   func() time.Time
	last  time.Time
}

func New() *Store {
	return &Store{users: make(map[string]*userData), now: time.Now}
}

func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{
			txns:    make(map[string]txRow),
			budgets: make(map[core.Tag]core.Budget),
			goals:   make(map[string]core.Goal),
		}
		s.users[userID] = u
	}
	return u
}

// stamp returns a creation time strictly after the previous one so that
// ordering by CreatedAt follows insertion order. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListUsers(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.users))
	for id, u := range s.users {
		if len(u.txns)+len(u.budgets)+len(u.goals) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, w core.Window) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]txRow, 0)
	for _, r := range s.user(userID).txns {
		if w.Contains(r.tx.Date) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.tx.Date.Equal(b.tx.Date) {
			return a.tx.Date.After(b.tx.Date)
		}
		if !a.tx.CreatedAt.Equal(b.tx.CreatedAt) {
			return a.tx.CreatedAt.After(b.tx.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.tx
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.user(userID).txns[id]
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return r.tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := core.Transaction{
		ID:        uuid.NewString(),
		Type:      n.Type,
		Amount:    n.Amount,
		Tag:       n.Tag,
		Note:      n.Note,
		Date:      n.Date,
		Recurring: n.Recurring,
		CreatedAt: s.stamp(),
	}
	s.user(userID).txns[t.ID] = txRow{tx: t, seq: s.seq}
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, p core.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	r, ok := u.txns[id]
	if !ok {
		return ledger.ErrNotFound
	}
	r.tx = p.Apply(r.tx)
	u.txns[id] = r
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, ok := u.txns[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(u.txns, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0)
	for _, b := range s.user(userID).budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, userID string, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).budgets[b.Tag] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, userID string, tag core.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, ok := u.budgets[tag]; !ok {
		return ledger.ErrNotFound
	}
	delete(u.budgets, tag)
	return nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Goal, 0)
	for _, g := range s.user(userID).goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateGoal(_ context.Context, userID string, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.CreatedAt = s.stamp()
	s.user(userID).goals[g.ID] = g
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, userID, id string, p core.GoalPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	g, ok := u.goals[id]
	if !ok {
		return ledger.ErrNotFound
	}
	u.goals[id] = p.Apply(g)
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, ok := u.goals[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(u.goals, id)
	return nil
}

var _ ledger.Repository = (*Store)(nil)
