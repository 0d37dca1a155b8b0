package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/csvcodec"
)

// LedgerStore is the write side of the ledger, implemented by *ledger.Live.
type LedgerStore interface {
	TransactionSource
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	UpsertBudget(ctx context.Context, userID string, b core.Budget) error
	DeleteBudget(ctx context.Context, userID string, tag core.Tag) error
	CreateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, userID, id string, p core.GoalPatch) error
	DeleteGoal(ctx context.Context, userID, id string) error
}

// LedgerService validates user intents before they reach the store.
type LedgerService struct {
	store LedgerStore
	today func() core.Date
}

func NewLedgerService(store LedgerStore) *LedgerService {
	return &LedgerService{store: store, today: core.Today}
}

// AddTransaction is quick-add. Income always carries the Income tag, a
// missing expense tag becomes Other and a missing date becomes today.
func (s *LedgerService) AddTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	if n.Date.IsZero() {
		n.Date = s.today()
	}
	n.Tag = core.Tag(strings.TrimSpace(string(n.Tag)))
	switch {
	case n.Type == core.Income:
		n.Tag = core.TagIncome
	case n.Tag == "":
		n.Tag = core.TagOther
	}
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.CreateTransaction(ctx, userID, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction added",
		"user_id", userID,
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"tag", t.Tag)
	return t, nil
}

// EditTransaction replaces amount, note, date and tag of an existing row.
// Income rows keep the Income tag; an empty tag keeps the current one.
func (s *LedgerService) EditTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) error {
	if err := p.Amount.Validate(); err != nil {
		return err
	}

	current, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}

	p.Tag = core.Tag(strings.TrimSpace(string(p.Tag)))
	switch {
	case current.Type == core.Income:
		p.Tag = core.TagIncome
	case p.Tag == "":
		p.Tag = current.Tag
	}
	if p.Date.IsZero() {
		p.Date = s.today()
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if err := s.store.UpdateTransaction(ctx, userID, id, p); err != nil {
		return fmt.Errorf("edit transaction: %w", err)
	}
	return nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// UpsertBudget sets the limit for a tag. Transactions are never touched.
func (s *LedgerService) UpsertBudget(ctx context.Context, userID string, b core.Budget) error {
	b.Tag = core.Tag(strings.TrimSpace(string(b.Tag)))
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertBudget(ctx, userID, b); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID string, tag core.Tag) error {
	if err := s.store.DeleteBudget(ctx, userID, tag); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (s *LedgerService) AddGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	g.Name = strings.TrimSpace(g.Name)
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	created, err := s.store.CreateGoal(ctx, userID, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("add goal: %w", err)
	}
	return created, nil
}

func (s *LedgerService) UpdateGoal(ctx context.Context, userID, id string, p core.GoalPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateGoal(ctx, userID, id, p); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

func (s *LedgerService) DeleteGoal(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteGoal(ctx, userID, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// ImportReport counts what an import did.
type ImportReport struct {
	Imported int
	Skipped  int
}

// ImportCSV creates one transaction per decodable line, bypassing quick-add
// validation. It stops at the first failed write; rows written before it stay.
func (s *LedgerService) ImportCSV(ctx context.Context, userID, text string) (ImportReport, error) {
	decoded := csvcodec.Import(text)
	report := ImportReport{Skipped: len(decoded.Skipped)}

	for _, req := range decoded.Requests {
		if _, err := s.store.CreateTransaction(ctx, userID, req); err != nil {
			return report, fmt.Errorf("import row %d: %w", report.Imported+1, err)
		}
		report.Imported++
	}

	slog.InfoContext(ctx, "CSV import complete",
		"user_id", userID,
		"imported", report.Imported,
		"skipped", report.Skipped)
	return report, nil
}
