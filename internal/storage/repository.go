// Package storage is the SQLite ledger.Repository.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

const isoDate = "2006-01-02"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite ledger ready", "path", dbPath)
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM transactions
		UNION SELECT user_id FROM budgets
		UNION SELECT user_id FROM goals
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const txColumns = `id, type, amount_cents, tag, note, date, recurring, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		typ, tag  string
		date      string
		recurring int64
		created   int64
	)
	if err := s.Scan(&t.ID, &typ, &t.Amount.Cents, &tag, &t.Note, &date, &recurring, &created); err != nil {
		return core.Transaction{}, err
	}
	d, err := time.Parse(isoDate, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Type = core.TxType(typ)
	t.Tag = core.Tag(tag)
	t.Date = core.Date{Time: d}
	t.Recurring = recurring != 0
	t.CreatedAt = time.Unix(0, created)
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, w core.Window) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if !w.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, w.From.String())
	}
	if !w.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, w.To.String())
	}
	query += ` ORDER BY date DESC, created_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, n core.NewTransaction) (core.Transaction, error) {
	t := core.Transaction{
		ID:        uuid.NewString(),
		Type:      n.Type,
		Amount:    n.Amount,
		Tag:       n.Tag,
		Note:      n.Note,
		Date:      n.Date,
		Recurring: n.Recurring,
		CreatedAt: r.now(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.Amount.Cents, string(t.Tag), t.Note, t.Date.String(),
		boolInt(t.Recurring), t.CreatedAt.UnixNano(), userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET amount_cents = ?, note = ?, date = ?, tag = ?
		WHERE user_id = ? AND id = ?`,
		p.Amount.Cents, p.Note, p.Date.String(), string(p.Tag), userID, id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tag, limit_cents FROM budgets WHERE user_id = ? ORDER BY tag`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		var (
			b   core.Budget
			tag string
		)
		if err := rows.Scan(&tag, &b.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Tag = core.Tag(tag)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, userID string, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, tag, limit_cents) VALUES (?, ?, ?)
		ON CONFLICT (user_id, tag) DO UPDATE SET limit_cents = excluded.limit_cents`,
		userID, string(b.Tag), b.Limit.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID string, tag core.Tag) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE user_id = ? AND tag = ?`, userID, string(tag))
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, target_cents, created_at FROM goals
		WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		var (
			g       core.Goal
			created int64
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &created); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.CreatedAt = time.Unix(0, created)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	g.ID = uuid.NewString()
	g.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, name, target_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		g.ID, userID, g.Name, g.Target.Cents, g.CreatedAt.UnixNano())
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, userID, id string, p core.GoalPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var (
		g       core.Goal
		created int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, target_cents, created_at FROM goals WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&g.ID, &g.Name, &g.Target.Cents, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load goal: %w", err)
	}

	g = p.Apply(g)
	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET name = ?, target_cents = ? WHERE user_id = ? AND id = ?`,
		g.Name, g.Target.Cents, userID, id); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ledger.Repository = (*SQLiteRepository)(nil)
