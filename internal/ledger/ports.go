// Package ledger defines the ledger store ports and the live, month-scoped
// view built on top of them.
package ledger

import (
	"context"

	"fintrack/internal/core"
)

// Ports for storage backends. Every call is scoped by an opaque user id.
type (
	TransactionRepository interface {
		// ListTransactions returns rows whose date falls within w, ordered by
		// date desc, then createdAt desc. The zero window lists all time.
		ListTransactions(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) error
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	BudgetRepository interface {
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
		// UpsertBudget creates or replaces the budget keyed by b.Tag.
		UpsertBudget(ctx context.Context, userID string, b core.Budget) error
		DeleteBudget(ctx context.Context, userID string, tag core.Tag) error
	}

	GoalRepository interface {
		ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
		CreateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, userID, id string, p core.GoalPatch) error
		DeleteGoal(ctx context.Context, userID, id string) error
	}

	Repository interface {
		TransactionRepository
		BudgetRepository
		GoalRepository

		// Ping reports whether the backend is reachable.
		Ping(ctx context.Context) error
		// ListUsers returns every user id that owns at least one record.
		ListUsers(ctx context.Context) ([]string, error)
		Close() error
	}

	// Notifier forwards change events to other processes.
	Notifier interface {
		Publish(ctx context.Context, c Change) error
	}
)
