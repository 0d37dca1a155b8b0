// Package worker runs background ledger maintenance.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// UserLister enumerates users that own ledger data.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// SweepResult summarizes one rollover pass.
type SweepResult struct {
	Month   core.Month
	Users   int
	Created int
	Failed  int
}

// RolloverWorker propagates recurring transactions into the new month for
// every user, once per calendar month.
type RolloverWorker struct {
	users    UserLister
	store    services.TransactionSource
	engine   *services.RecurrenceEngine
	interval time.Duration
	parallel int
	now      func() time.Time

	mu   sync.Mutex
	last core.Month
}

// NewRolloverWorker checks for a month change every interval. Writes go
// through store, so pass the notifying ledger to keep live views current.
func NewRolloverWorker(users UserLister, store services.TransactionSource, interval time.Duration) *RolloverWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RolloverWorker{
		users:    users,
		store:    store,
		engine:   services.NewRecurrenceEngine(store),
		interval: interval,
		parallel: 4,
		now:      time.Now,
	}
}

// Run sweeps at startup and then whenever the month changes, until ctx is done.
func (w *RolloverWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Rollover worker started", "interval", w.interval)

	w.Tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Rollover worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick sweeps if the calendar month differs from the last completed sweep.
// It reports whether a sweep ran.
func (w *RolloverWorker) Tick(ctx context.Context) bool {
	month := core.MonthOf(core.Date{Time: w.now().UTC()})

	w.mu.Lock()
	due := w.last != month
	w.mu.Unlock()
	if !due {
		return false
	}

	res, err := w.Sweep(ctx, month)
	if err != nil {
		// Month stays pending; the next tick retries.
		slog.ErrorContext(ctx, "Rollover sweep failed",
			applog.NewFields().
				WithMonth(month.String()).
				WithError(err, applog.ErrorTypeUnavailable).
				ToSlice()...)
		return true
	}

	w.mu.Lock()
	w.last = month
	w.mu.Unlock()

	slog.InfoContext(ctx, "Rollover sweep complete",
		applog.FieldMonth, res.Month.String(),
		"users", res.Users,
		"created", res.Created,
		"failed", res.Failed)
	return true
}

// Sweep runs recurrence into month for every user. Each user's current
// month set is read first and used for duplicate suppression. A failing
// user is logged and counted; only failing to list users is an error.
func (w *RolloverWorker) Sweep(ctx context.Context, month core.Month) (SweepResult, error) {
	res := SweepResult{Month: month}

	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("list users: %w", err)
	}
	res.Users = len(users)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallel)
	for _, userID := range users {
		g.Go(func() error {
			created, err := w.rollUser(gctx, userID, month)
			mu.Lock()
			defer mu.Unlock()
			res.Created += created
			if err != nil {
				res.Failed++
				slog.WarnContext(gctx, "Rollover failed for user",
					applog.NewFields().
						WithComponent(applog.ComponentWorker).
						WithUser(userID).
						WithMonth(month.String()).
						WithError(err, applog.ErrorTypeRejected).
						ToSlice()...)
			}
			return nil
		})
	}
	_ = g.Wait()
	return res, nil
}

func (w *RolloverWorker) rollUser(ctx context.Context, userID string, month core.Month) (int, error) {
	loaded, err := w.store.ListTransactions(ctx, userID, month.Window())
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", month, err)
	}
	res, err := w.engine.Propagate(ctx, userID, month, loaded)
	return res.Created, err
}
