// Package postgres is a ledger.Repository backed by a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

//go:embed schema.sql
var schema string

type Repository struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	slog.InfoContext(ctx, "Postgres ledger ready")
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM transactions
		UNION SELECT user_id FROM budgets
		UNION SELECT user_id FROM goals
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

const txColumns = `id::text, type, amount_cents, tag, note, date, recurring, created_at`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t        core.Transaction
		typ, tag string
		date     time.Time
	)
	if err := row.Scan(&t.ID, &typ, &t.Amount.Cents, &tag, &t.Note, &date, &t.Recurring, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TxType(typ)
	t.Tag = core.Tag(tag)
	t.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}
	if !w.From.IsZero() {
		args = append(args, w.From.Time)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if !w.To.IsZero() {
		args = append(args, w.To.Time)
		query += fmt.Sprintf(` AND date <= $%d`, len(args))
	}
	query += ` ORDER BY date DESC, created_at DESC, seq DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Transaction{}, ledger.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	t := core.Transaction{
		ID:        uuid.NewString(),
		Type:      n.Type,
		Amount:    n.Amount,
		Tag:       n.Tag,
		Note:      n.Note,
		Date:      n.Date,
		Recurring: n.Recurring,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount_cents, tag, note, date, recurring, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, userID, string(t.Type), t.Amount.Cents, string(t.Tag), t.Note, t.Date.Time, t.Recurring, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) error {
	if _, err := uuid.Parse(id); err != nil {
		return ledger.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET amount_cents = $1, note = $2, date = $3, tag = $4
		WHERE user_id = $5 AND id = $6`,
		p.Amount.Cents, p.Note, p.Date.Time, string(p.Tag), userID, id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(tag)
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ledger.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(tag)
}

func (r *Repository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tag, limit_cents FROM budgets WHERE user_id = $1 ORDER BY tag`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		var (
			tag   string
			limit int64
		)
		if err := rows.Scan(&tag, &limit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, core.Budget{Tag: core.Tag(tag), Limit: core.Money{Cents: limit}})
	}
	return out, rows.Err()
}

func (r *Repository) UpsertBudget(ctx context.Context, userID string, b core.Budget) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO budgets (user_id, tag, limit_cents) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tag) DO UPDATE SET limit_cents = EXCLUDED.limit_cents`,
		userID, string(b.Tag), b.Limit.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *Repository) DeleteBudget(ctx context.Context, userID string, tag core.Tag) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM budgets WHERE user_id = $1 AND tag = $2`, userID, string(tag))
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectOne(res)
}

func (r *Repository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, target_cents, created_at FROM goals
		WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		var g core.Goal
		if err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) CreateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	g.ID = uuid.NewString()
	g.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO goals (id, user_id, name, target_cents, created_at) VALUES ($1, $2, $3, $4, $5)`,
		g.ID, userID, g.Name, g.Target.Cents, g.CreatedAt)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (r *Repository) UpdateGoal(ctx context.Context, userID, id string, p core.GoalPatch) error {
	if _, err := uuid.Parse(id); err != nil {
		return ledger.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE goals SET name = COALESCE($1, name), target_cents = COALESCE($2, target_cents)
		WHERE user_id = $3 AND id = $4`,
		trimmed(p.Name), cents(p.Target), userID, id)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return expectOne(tag)
}

func (r *Repository) DeleteGoal(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ledger.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM goals WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return expectOne(tag)
}

func expectOne(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func trimmed(name *string) *string {
	if name == nil {
		return nil
	}
	g := core.GoalPatch{Name: name}.Apply(core.Goal{})
	return &g.Name
}

func cents(m *core.Money) *int64 {
	if m == nil {
		return nil
	}
	return &m.Cents
}

var _ ledger.Repository = (*Repository)(nil)
