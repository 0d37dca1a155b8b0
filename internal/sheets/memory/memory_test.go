package memory

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestExporterReplacesTab(t *testing.T) {
	e := New()
	march := core.Month{Year: 2024, Month: time.March}
	ctx := context.Background()

	two := []core.Transaction{
		{ID: "1", Type: core.Expense, Amount: core.Money{Cents: 100}, Tag: core.TagOther, Date: core.NewDate(2024, 3, 1)},
		{ID: "2", Type: core.Income, Amount: core.Money{Cents: 200}, Tag: core.TagIncome, Date: core.NewDate(2024, 3, 2)},
	}
	ref, err := e.ExportTransactions(ctx, "u1", march, two)
	if err != nil || ref != "mem:u1/transactions_2024-03:3" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}

	if _, err := e.ExportTransactions(ctx, "u1", march, two[:1]); err != nil {
		t.Fatal(err)
	}
	rows := e.Tab("u1", march)
	if len(rows) != 2 || rows[0][0] != "id" || rows[1][0] != "1" {
		t.Fatalf("rows = %v", rows)
	}
	if len(e.Tab("u2", march)) != 0 {
		t.Fatal("tabs must be scoped per user")
	}
}
