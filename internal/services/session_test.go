package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
)

func newTestSession(t *testing.T, store ledger.Repository, month core.Month) (*Session, *ledger.Live) {
	t.Helper()
	live := ledger.NewLive(store, nil)
	s, err := OpenSession(context.Background(), live, NewRecurrenceEngine(live), "u1", month)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(s.Close)
	return s, live
}

func waitForVersion(t *testing.T, s *Session, min uint64) Dashboard {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d := s.View(); d.Version >= min {
			return d
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("dashboard never reached version %d", min)
	return Dashboard{}
}

func TestSessionOpenPropagatesRecurring(t *testing.T) {
	store := memory.New()
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(120000), Tag: core.TagRent, Note: "rent", Date: core.NewDate(2024, 2, 1), Recurring: true})

	s, _ := newTestSession(t, store, core.Month{Year: 2024, Month: time.March})
	d := waitForVersion(t, s, 2)
	if len(d.Visible) != 1 || d.Visible[0].Date.String() != "2024-03-01" {
		t.Fatalf("visible = %+v", d.Visible)
	}
	if !d.Status.Available {
		t.Fatalf("status = %+v", d.Status)
	}
}

func TestSessionSetMonthSwitchesWindow(t *testing.T) {
	store := memory.New()
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(100), Tag: core.TagOther, Date: core.NewDate(2024, 3, 5)})
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(200), Tag: core.TagOther, Date: core.NewDate(2024, 4, 5)})

	s, live := newTestSession(t, store, core.Month{Year: 2024, Month: time.March})
	if d := s.View(); d.Summary.Expense.Cents != 100 {
		t.Fatalf("march expense = %d", d.Summary.Expense.Cents)
	}

	april := core.Month{Year: 2024, Month: time.April}
	if err := s.SetMonth(context.Background(), april); err != nil {
		t.Fatal(err)
	}
	d := s.View()
	if d.Month != april || d.Summary.Expense.Cents != 200 {
		t.Fatalf("april view = %+v", d)
	}
	if n := live.Hub().Subscribers("u1"); n != 1 {
		t.Fatalf("old subscription not torn down, subscribers = %d", n)
	}
}

func TestSessionFilterAndExport(t *testing.T) {
	store := memory.New()
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(4250), Tag: core.TagGroceries, Note: "milk, bread", Date: core.NewDate(2024, 3, 14)})
	seed(t, store, "u1", core.NewTransaction{Type: core.Income, Amount: money(100000), Tag: core.TagIncome, Date: core.NewDate(2024, 3, 1)})

	s, _ := newTestSession(t, store, core.Month{Year: 2024, Month: time.March})
	s.SetFilter(Filter{Type: "expense"})

	d := s.View()
	if len(d.Visible) != 1 || d.Summary.Income.Cents != 0 {
		t.Fatalf("filtered view = %+v", d)
	}

	body, name := s.Export()
	if name != "transactions_2024-03.csv" {
		t.Fatalf("filename = %q", name)
	}
	lines := strings.Split(body, "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "milk  bread") {
		t.Fatalf("export = %q", body)
	}
}

func TestSessionBudgetAndGoalsThroughView(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.UpsertBudget(ctx, "u1", core.Budget{Tag: core.TagGroceries, Limit: money(20000)})
	_, _ = store.CreateGoal(ctx, "u1", core.Goal{Name: "A", Target: money(10000)})
	_, _ = store.CreateGoal(ctx, "u1", core.Goal{Name: "B", Target: money(40000)})
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(25000), Tag: core.TagGroceries, Date: core.NewDate(2024, 3, 2)})
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(10000), Tag: core.TagSavings, Date: core.NewDate(2023, 6, 2)})

	s, _ := newTestSession(t, store, core.Month{Year: 2024, Month: time.March})
	d := s.View()

	if len(d.Summary.Budgets) != 1 || d.Summary.Budgets[0].Percent != 125 || !d.Summary.Budgets[0].Over || d.Summary.Budgets[0].Bar != 100 {
		t.Fatalf("budgets = %+v", d.Summary.Budgets)
	}
	if d.Summary.SavingsSpent.Cents != 10000 {
		t.Fatalf("savings = %d", d.Summary.SavingsSpent.Cents)
	}
	if d.Summary.Goals[0].Percent != 100 || d.Summary.Goals[1].Percent != 25 {
		t.Fatalf("goals = %+v", d.Summary.Goals)
	}
}

type downRepo struct{ *memory.Store }

func (downRepo) Ping(context.Context) error { return errors.New("dial tcp: refused") }

func TestOpenSessionStoreUnavailable(t *testing.T) {
	live := ledger.NewLive(downRepo{memory.New()}, nil)
	_, err := OpenSession(context.Background(), live, nil, "u1", core.Month{Year: 2024, Month: time.March})
	if !errors.Is(err, ledger.ErrStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestSessionClosed(t *testing.T) {
	s, live := newTestSession(t, memory.New(), core.Month{Year: 2024, Month: time.March})
	s.Close()
	if err := s.SetMonth(context.Background(), core.Month{Year: 2024, Month: time.May}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v", err)
	}
	if live.Hub().Subscribers("u1") != 0 {
		t.Fatal("subscription leaked after close")
	}
}
