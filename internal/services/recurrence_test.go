package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
)

func seed(t *testing.T, store *memory.Store, user string, n core.NewTransaction) core.Transaction {
	t.Helper()
	tx, err := store.CreateTransaction(context.Background(), user, n)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return tx
}

func monthRows(t *testing.T, store *memory.Store, user string, m core.Month) []core.Transaction {
	t.Helper()
	rows, err := store.ListTransactions(context.Background(), user, m.Window())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return rows
}

func TestPropagateClampsDay(t *testing.T) {
	tests := []struct {
		name     string
		template core.Date
		target   core.Month
		want     string
	}{
		{"non-leap february", core.NewDate(2023, 1, 31), core.Month{Year: 2023, Month: time.February}, "2023-02-28"},
		{"leap february", core.NewDate(2024, 1, 31), core.Month{Year: 2024, Month: time.February}, "2024-02-29"},
		{"thirty-day month", core.NewDate(2024, 3, 31), core.Month{Year: 2024, Month: time.April}, "2024-04-30"},
		{"day exists", core.NewDate(2024, 2, 15), core.Month{Year: 2024, Month: time.March}, "2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(120000), Tag: core.TagRent, Note: "rent", Date: tt.template, Recurring: true})

			res, err := NewRecurrenceEngine(store).Propagate(context.Background(), "u1", tt.target, nil)
			if err != nil || res.Created != 1 {
				t.Fatalf("res=%+v err=%v", res, err)
			}
			rows := monthRows(t, store, "u1", tt.target)
			if len(rows) != 1 || rows[0].Date.String() != tt.want {
				t.Fatalf("rows = %+v, want date %s", rows, tt.want)
			}
			if !rows[0].Recurring || rows[0].Tag != core.TagRent || rows[0].Note != "rent" {
				t.Fatalf("copy lost fields: %+v", rows[0])
			}
		})
	}
}

func TestPropagateIsIdempotent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	march := core.Month{Year: 2024, Month: time.March}
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(1500), Tag: core.TagEntertainment, Note: "streaming", Date: core.NewDate(2024, 2, 3), Recurring: true})
	seed(t, store, "u1", core.NewTransaction{Type: core.Income, Amount: money(300000), Tag: core.TagIncome, Note: "salary", Date: core.NewDate(2024, 2, 25), Recurring: true})
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(999), Tag: core.TagOther, Date: core.NewDate(2024, 2, 4)})

	engine := NewRecurrenceEngine(store)
	first, err := engine.Propagate(ctx, "u1", march, monthRows(t, store, "u1", march))
	if err != nil || first.Templates != 2 || first.Created != 2 {
		t.Fatalf("first run = %+v, %v", first, err)
	}

	second, err := engine.Propagate(ctx, "u1", march, monthRows(t, store, "u1", march))
	if err != nil || second.Created != 0 || second.Suppressed != 2 {
		t.Fatalf("second run = %+v, %v", second, err)
	}
	if n := len(monthRows(t, store, "u1", march)); n != 2 {
		t.Fatalf("march rows = %d, want 2", n)
	}
}

func TestPropagateSuppressionIgnoresNonRecurringAndTag(t *testing.T) {
	store := memory.New()
	march := core.Month{Year: 2024, Month: time.March}
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(5000), Tag: core.TagBills, Note: "phone", Date: core.NewDate(2024, 2, 10), Recurring: true})

	loaded := []core.Transaction{
		// Same shape but entered by hand: does not suppress.
		{Type: core.Expense, Amount: money(5000), Tag: core.TagBills, Note: "phone", Date: core.NewDate(2024, 3, 10)},
	}
	res, _ := NewRecurrenceEngine(store).Propagate(context.Background(), "u1", march, loaded)
	if res.Created != 1 {
		t.Fatalf("non-recurring row should not suppress: %+v", res)
	}

	loaded = []core.Transaction{
		{Type: core.Expense, Amount: money(5000), Tag: "Phone", Note: "phone", Date: core.NewDate(2024, 3, 10), Recurring: true},
	}
	res, _ = NewRecurrenceEngine(store).Propagate(context.Background(), "u1", march, loaded)
	if res.Suppressed != 1 {
		t.Fatalf("tag is not part of the match: %+v", res)
	}
}

func TestPropagateCopiesStructuralTwinsIndependently(t *testing.T) {
	store := memory.New()
	march := core.Month{Year: 2024, Month: time.March}
	twin := core.NewTransaction{Type: core.Expense, Amount: money(700), Tag: core.TagHealth, Note: "gym", Date: core.NewDate(2024, 2, 1), Recurring: true}
	seed(t, store, "u1", twin)
	seed(t, store, "u1", twin)

	res, err := NewRecurrenceEngine(store).Propagate(context.Background(), "u1", march, nil)
	if err != nil || res.Created != 2 {
		t.Fatalf("res = %+v err = %v", res, err)
	}
}

type failingSource struct {
	*memory.Store
	listErr   error
	createErr error
	creates   int
}

func (f *failingSource) ListTransactions(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.ListTransactions(ctx, userID, w)
}

func (f *failingSource) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	f.creates++
	if f.createErr != nil && f.creates == 1 {
		return core.Transaction{}, f.createErr
	}
	return f.Store.CreateTransaction(ctx, userID, n)
}

func TestPropagateReadFailureIsTerminal(t *testing.T) {
	src := &failingSource{Store: memory.New(), listErr: errors.New("offline")}
	_, err := NewRecurrenceEngine(src).Propagate(context.Background(), "u1", core.Month{Year: 2024, Month: time.March}, nil)
	if err == nil || src.creates != 0 {
		t.Fatalf("err = %v creates = %d", err, src.creates)
	}
}

func TestPropagateContinuesPastCreateFailure(t *testing.T) {
	store := memory.New()
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(100), Tag: core.TagOther, Note: "a", Date: core.NewDate(2024, 2, 1), Recurring: true})
	seed(t, store, "u1", core.NewTransaction{Type: core.Expense, Amount: money(200), Tag: core.TagOther, Note: "b", Date: core.NewDate(2024, 2, 2), Recurring: true})

	boom := errors.New("quota exceeded")
	src := &failingSource{Store: store, createErr: boom}
	res, err := NewRecurrenceEngine(src).Propagate(context.Background(), "u1", core.Month{Year: 2024, Month: time.March}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if res.Templates != 2 || res.Created != 1 {
		t.Fatalf("res = %+v", res)
	}
}
