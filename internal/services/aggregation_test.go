package services

import (
	"testing"

	"fintrack/internal/core"
)

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func TestAggregateTotals(t *testing.T) {
	s := Aggregate(sampleMonth(), nil, nil, nil)
	if s.Income.Cents != 300000 || s.Expense.Cents != 6250 || s.Net.Cents != 293750 {
		t.Fatalf("income=%d expense=%d net=%d", s.Income.Cents, s.Expense.Cents, s.Net.Cents)
	}
	if s.Net != s.Income.Sub(s.Expense) {
		t.Fatal("net must equal income minus expense")
	}
	var sum int64
	for _, m := range s.ByTag {
		sum += m.Cents
	}
	if sum != s.Expense.Cents {
		t.Fatalf("sum(byTag)=%d, expense=%d", sum, s.Expense.Cents)
	}
	if _, ok := s.ByTag[core.TagIncome]; ok {
		t.Fatal("income must not appear in byTag")
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, []core.Budget{{Tag: core.TagRent, Limit: money(100000)}}, nil, nil)
	if !s.Income.IsZero() || !s.Expense.IsZero() || !s.Net.IsZero() || len(s.Ranking) != 0 {
		t.Fatalf("expected zeros, got %+v", s)
	}
	if s.Budgets[0].Percent != 0 || s.Budgets[0].Over {
		t.Fatalf("budget = %+v", s.Budgets[0])
	}
}

func TestRankingOrderAndShare(t *testing.T) {
	txns := []core.Transaction{
		{Type: core.Expense, Amount: money(5000), Tag: core.TagRent},
		{Type: core.Expense, Amount: money(2500), Tag: core.TagBills},
		{Type: core.Expense, Amount: money(2500), Tag: core.TagHealth},
	}
	s := Aggregate(txns, nil, nil, nil)
	want := []struct {
		tag   core.Tag
		share int64
	}{{core.TagRent, 50}, {core.TagBills, 25}, {core.TagHealth, 25}}
	for i, w := range want {
		if s.Ranking[i].Tag != w.tag || s.Ranking[i].Share != w.share {
			t.Errorf("ranking[%d] = %+v, want %s %d", i, s.Ranking[i], w.tag, w.share)
		}
	}
}

func TestRankingShareUsesUnitFloor(t *testing.T) {
	s := Aggregate([]core.Transaction{{Type: core.Expense, Amount: money(50), Tag: core.TagOther}}, nil, nil, nil)
	if s.Ranking[0].Share != 50 {
		t.Fatalf("share = %d, want 50 (0.50 of a 1.00 floor)", s.Ranking[0].Share)
	}
}

func TestBudgetUtilization(t *testing.T) {
	tests := []struct {
		name    string
		limit   int64
		spent   int64
		percent int64
		bar     int64
		over    bool
	}{
		{"under", 20000, 15000, 75, 75, false},
		{"exactly at limit", 20000, 20000, 100, 100, false},
		{"overspent", 20000, 25000, 125, 100, true},
		{"zero limit", 0, 5000, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns := []core.Transaction{{Type: core.Expense, Amount: money(tt.spent), Tag: core.TagGroceries}}
			s := Aggregate(txns, []core.Budget{{Tag: core.TagGroceries, Limit: money(tt.limit)}}, nil, nil)
			b := s.Budgets[0]
			if b.Spent.Cents != tt.spent || b.Percent != tt.percent || b.Bar != tt.bar || b.Over != tt.over {
				t.Errorf("usage = %+v", b)
			}
		})
	}
}

func TestSavingsUseLedgerNotVisibleSet(t *testing.T) {
	ledger := []core.Transaction{
		{Type: core.Expense, Amount: money(30000), Tag: core.TagSavings, Date: core.NewDate(2023, 11, 1)},
		{Type: core.Expense, Amount: money(20000), Tag: core.TagSavings, Date: core.NewDate(2024, 3, 1)},
		{Type: core.Income, Amount: money(99900), Tag: core.TagSavings, Date: core.NewDate(2024, 3, 2)},
	}
	goals := []core.Goal{
		{ID: "a", Name: "Trip", Target: money(100000)},
		{ID: "b", Name: "Laptop", Target: money(25000)},
	}
	s := Aggregate(nil, nil, goals, ledger)
	if s.SavingsSpent.Cents != 50000 {
		t.Fatalf("savings = %d", s.SavingsSpent.Cents)
	}
	if s.Goals[0].Percent != 50 || s.Goals[1].Percent != 100 {
		t.Fatalf("goals = %+v", s.Goals)
	}
}

func TestGoalWithNonPositiveTarget(t *testing.T) {
	s := Aggregate(nil, nil, []core.Goal{{Name: "Broken", Target: money(0)}},
		[]core.Transaction{{Type: core.Expense, Amount: money(50), Tag: core.TagSavings}})
	if s.Goals[0].Percent != 50 {
		t.Fatalf("percent = %d", s.Goals[0].Percent)
	}
}
