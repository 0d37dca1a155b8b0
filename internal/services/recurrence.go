package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// TransactionSource is the slice of the ledger store recurrence needs.
type TransactionSource interface {
	ListTransactions(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error)
}

// RecurrenceEngine copies the previous month's recurring transactions into a
// target month.
type RecurrenceEngine struct {
	store TransactionSource
}

func NewRecurrenceEngine(store TransactionSource) *RecurrenceEngine {
	return &RecurrenceEngine{store: store}
}

// RecurrenceResult summarizes one propagation run.
type RecurrenceResult struct {
	Month      core.Month
	Templates  int
	Created    int
	Suppressed int
}

// Propagate creates, in target, a copy of every recurring transaction from the
// month before it. The copy keeps the day of month, pulled back to the last
// day when target is shorter.
//
// loaded is the target month's current set. A template is skipped when loaded
// already holds a recurring row with the same type, amount, note and date.
// loaded is not extended while the run progresses.
//
// Failing to read the previous month aborts the run. A failed create is logged
// and the remaining templates are still attempted; all create errors are
// returned together.
func (e *RecurrenceEngine) Propagate(ctx context.Context, userID string, target core.Month, loaded []core.Transaction) (RecurrenceResult, error) {
	res := RecurrenceResult{Month: target}
	prev := target.Previous()

	rows, err := e.store.ListTransactions(ctx, userID, prev.Window())
	if err != nil {
		return res, fmt.Errorf("read %s recurring templates: %w", prev, err)
	}

	var errs []error
	for _, tpl := range rows {
		if !tpl.Recurring {
			continue
		}
		res.Templates++

		date := target.Clamp(tpl.Date.Day())
		if alreadyPropagated(loaded, tpl, date) {
			res.Suppressed++
			continue
		}

		_, err := e.store.CreateTransaction(ctx, userID, core.NewTransaction{
			Type:      tpl.Type,
			Amount:    tpl.Amount,
			Tag:       tpl.Tag,
			Note:      tpl.Note,
			Date:      date,
			Recurring: true,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"user_id", userID,
				"template_id", tpl.ID,
				"target_date", date.String(),
				"error", err)
			errs = append(errs, fmt.Errorf("template %s: %w", tpl.ID, err))
			continue
		}
		res.Created++
	}

	if res.Templates > 0 {
		slog.InfoContext(ctx, "Recurring propagation complete",
			"user_id", userID,
			"month", target.String(),
			"templates", res.Templates,
			"created", res.Created,
			"suppressed", res.Suppressed)
	}
	return res, errors.Join(errs...)
}

func alreadyPropagated(loaded []core.Transaction, tpl core.Transaction, date core.Date) bool {
	for _, t := range loaded {
		if t.Recurring &&
			t.Type == tpl.Type &&
			t.Amount == tpl.Amount &&
			t.Note == tpl.Note &&
			t.Date.Equal(date) {
			return true
		}
	}
	return false
}
