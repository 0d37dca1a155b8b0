package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

const (
	defaultRetryInterval = 5 * time.Second
	maxRetryInterval     = time.Minute
	loadTimeout          = 15 * time.Second
)

// Snapshot is one consistent read of a user's ledger for a month.
type Snapshot struct {
	UserID       string
	Month        core.Month
	Transactions []core.Transaction // month window, date desc then createdAt desc
	Budgets      []core.Budget
	Goals        []core.Goal
	Ledger       []core.Transaction // all time, used for lifetime figures
	Version      uint64
	LoadedAt     time.Time
}

// Status reports whether a subscription is currently backed by the store.
type Status struct {
	Available bool
	Err       error
	Since     time.Time
}

// Live exposes month-scoped live views over a Repository and routes writes
// through it, announcing every successful write on the hub.
type Live struct {
	repo   Repository
	hub    *Hub
	remote Notifier
	origin string
	retry  time.Duration
}

type LiveOption func(*Live)

// WithNotifier forwards changes to another process after local delivery.
func WithNotifier(n Notifier) LiveOption {
	return func(l *Live) { l.remote = n }
}

// WithOrigin sets the origin stamped on published changes.
func WithOrigin(origin string) LiveOption {
	return func(l *Live) { l.origin = origin }
}

// WithRetryInterval sets the initial delay between reloads while a
// subscription is unavailable.
func WithRetryInterval(d time.Duration) LiveOption {
	return func(l *Live) {
		if d > 0 {
			l.retry = d
		}
	}
}

func NewLive(repo Repository, hub *Hub, opts ...LiveOption) *Live {
	if hub == nil {
		hub = NewHub()
	}
	l := &Live{
		repo:   repo,
		hub:    hub,
		origin: uuid.NewString(),
		retry:  defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Live) Hub() *Hub { return l.hub }

func (l *Live) Origin() string { return l.origin }

func (l *Live) Repository() Repository { return l.repo }

// Ping reports store reachability as ErrStoreUnavailable.
func (l *Live) Ping(ctx context.Context) error {
	if err := l.repo.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Subscribe opens a live view of userID's ledger for month. The returned
// subscription keeps refreshing until Close is called.
func (l *Live) Subscribe(ctx context.Context, userID string, month core.Month) (*Subscription, error) {
	if err := l.Ping(ctx); err != nil {
		return nil, err
	}

	// Listen before the first load so no change slips between the two.
	events, cancelEvents := l.hub.Subscribe(userID)

	s := &Subscription{
		live:         l,
		userID:       userID,
		month:        month,
		events:       events,
		cancelEvents: cancelEvents,
		updates:      make(chan Snapshot, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	seq := s.begin()
	snap, err := l.load(ctx, userID, month)
	if err != nil {
		cancelEvents()
		return nil, unavailable(err)
	}
	s.apply(seq, snap)

	go s.run()

	slog.InfoContext(ctx, "Ledger subscription opened",
		"user_id", userID,
		"month", month.String(),
		"transactions", len(snap.Transactions))

	return s, nil
}

func (l *Live) load(ctx context.Context, userID string, month core.Month) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	snap := Snapshot{UserID: userID, Month: month}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := l.repo.ListTransactions(gctx, userID, month.Window())
		if err != nil {
			return fmt.Errorf("list month transactions: %w", err)
		}
		snap.Transactions = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.repo.ListBudgets(gctx, userID)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		snap.Budgets = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.repo.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		snap.Goals = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.repo.ListTransactions(gctx, userID, core.AllTime)
		if err != nil {
			return fmt.Errorf("list ledger: %w", err)
		}
		snap.Ledger = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	snap.LoadedAt = time.Now()
	return snap, nil
}

func (l *Live) notify(ctx context.Context, c Change) {
	c.Origin = l.origin
	c.At = time.Now()
	_ = l.hub.Publish(ctx, c)
	if l.remote == nil {
		return
	}
	if err := l.remote.Publish(ctx, c); err != nil {
		// The write itself succeeded; remote peers catch up on their next change.
		slog.WarnContext(ctx, "Failed to publish ledger change",
			"user_id", c.UserID,
			"kind", c.Kind,
			"op", c.Op,
			"error", err)
	}
}

// ListTransactions is a one-shot read, not a subscription.
func (l *Live) ListTransactions(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error) {
	rows, err := l.repo.ListTransactions(ctx, userID, w)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

func (l *Live) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return l.repo.GetTransaction(ctx, userID, id)
}

func (l *Live) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	t, err := l.repo.CreateTransaction(ctx, userID, n)
	if err != nil {
		return core.Transaction{}, rejected(string(OpCreate), KindTransaction, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindTransaction, Op: OpCreate, ID: t.ID})
	return t, nil
}

func (l *Live) UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) error {
	if err := l.repo.UpdateTransaction(ctx, userID, id, p); err != nil {
		return rejected(string(OpUpdate), KindTransaction, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindTransaction, Op: OpUpdate, ID: id})
	return nil
}

func (l *Live) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := l.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return rejected(string(OpDelete), KindTransaction, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindTransaction, Op: OpDelete, ID: id})
	return nil
}

func (l *Live) UpsertBudget(ctx context.Context, userID string, b core.Budget) error {
	if err := l.repo.UpsertBudget(ctx, userID, b); err != nil {
		return rejected("upsert", KindBudget, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindBudget, Op: OpUpdate, ID: string(b.Tag)})
	return nil
}

func (l *Live) DeleteBudget(ctx context.Context, userID string, tag core.Tag) error {
	if err := l.repo.DeleteBudget(ctx, userID, tag); err != nil {
		return rejected(string(OpDelete), KindBudget, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindBudget, Op: OpDelete, ID: string(tag)})
	return nil
}

func (l *Live) CreateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	created, err := l.repo.CreateGoal(ctx, userID, g)
	if err != nil {
		return core.Goal{}, rejected(string(OpCreate), KindGoal, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindGoal, Op: OpCreate, ID: created.ID})
	return created, nil
}

func (l *Live) UpdateGoal(ctx context.Context, userID, id string, p core.GoalPatch) error {
	if err := l.repo.UpdateGoal(ctx, userID, id, p); err != nil {
		return rejected(string(OpUpdate), KindGoal, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindGoal, Op: OpUpdate, ID: id})
	return nil
}

func (l *Live) DeleteGoal(ctx context.Context, userID, id string) error {
	if err := l.repo.DeleteGoal(ctx, userID, id); err != nil {
		return rejected(string(OpDelete), KindGoal, err)
	}
	l.notify(ctx, Change{UserID: userID, Kind: KindGoal, Op: OpDelete, ID: id})
	return nil
}

// Subscription is a live, month-scoped view of one user's ledger.
type Subscription struct {
	live   *Live
	userID string
	month  core.Month

	mu      sync.RWMutex
	snap    Snapshot
	version uint64
	status  Status
	// Loads are numbered when they start; a result older than the last
	// applied one is discarded so snapshots never go backwards.
	started uint64
	applied uint64

	events       <-chan Change
	cancelEvents func()
	updates      chan Snapshot

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) UserID() string { return s.userID }

func (s *Subscription) Month() core.Month { return s.month }

// Latest returns the last successfully loaded snapshot.
func (s *Subscription) Latest() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Subscription) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Updates delivers each new snapshot. Only the most recent undelivered
// snapshot is kept.
func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

// Refresh reloads synchronously. It may run concurrently with the
// subscription's own reloads; a load overtaken by a later one is dropped.
func (s *Subscription) Refresh(ctx context.Context) error {
	seq := s.begin()
	snap, err := s.live.load(ctx, s.userID, s.month)
	if err != nil {
		s.fail(seq, err)
		return unavailable(err)
	}
	s.apply(seq, snap)
	return nil
}

func (s *Subscription) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return s.started
}

// Close tears the subscription down and waits for its goroutine to exit.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.cancelEvents()
		<-s.done
		slog.Info("Ledger subscription closed", "user_id", s.userID, "month", s.month.String())
	})
}

func (s *Subscription) apply(seq uint64, snap Snapshot) {
	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		return
	}
	s.applied = seq
	s.version++
	snap.Version = s.version
	s.snap = snap
	if !s.status.Available {
		s.status = Status{Available: true, Since: snap.LoadedAt}
	}
	s.mu.Unlock()

	select {
	case s.updates <- snap:
	default:
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- snap:
		default:
		}
	}
}

func (s *Subscription) fail(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		return
	}
	if s.status.Available || s.status.Err == nil {
		s.status = Status{Available: false, Err: err, Since: time.Now()}
		return
	}
	s.status.Err = err
}

func (s *Subscription) run() {
	defer close(s.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		retry   *time.Timer
		retryC  <-chan time.Time
		backoff = s.live.retry
	)
	stopRetry := func() {
		if retry != nil {
			retry.Stop()
		}
		retry, retryC = nil, nil
	}
	defer stopRetry()

	reload := func() {
		if err := s.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "Ledger subscription reload failed",
				"user_id", s.userID,
				"month", s.month.String(),
				"retry_in", backoff,
				"error", err)
			stopRetry()
			retry = time.NewTimer(backoff)
			retryC = retry.C
			backoff *= 2
			if backoff > maxRetryInterval {
				backoff = maxRetryInterval
			}
			return
		}
		stopRetry()
		backoff = s.live.retry
	}

	for {
		select {
		case <-s.stop:
			return
		case _, ok := <-s.events:
			if !ok {
				return
			}
			reload()
		case <-retryC:
			retry, retryC = nil, nil
			reload()
		}
	}
}
