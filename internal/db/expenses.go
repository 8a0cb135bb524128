package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spendtrack/spendtrack/internal/expense"
	"github.com/spendtrack/spendtrack/internal/models"
)

const expenseColumns = "id, user_id, amount::text, category, description, expense_date, created_at, updated_at"

func (p *Postgres) CreateExpense(ctx context.Context, e *models.Expense) error {
	query := `INSERT INTO expenses (user_id, amount, category, description, expense_date, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	err := p.Pool.QueryRow(ctx, query,
		e.UserID, e.Amount.StringFixed(2), e.Category.String(), e.Description, e.Date.Time, e.CreatedAt).
		Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("postgres: create expense: %w", err)
	}

	return nil
}

// ListExpenses returns the owner's expenses matching the filter, ordered by
// occurrence date descending with id descending as the tie-break.
func (p *Postgres) ListExpenses(ctx context.Context, ownerID int64, f expense.Filter) ([]models.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE user_id = $1"
	args := []any{ownerID}

	if !f.StartDate.IsZero() {
		args = append(args, f.StartDate.Time)
		query += fmt.Sprintf(" AND expense_date >= $%d", len(args))
	}
	if !f.EndDate.IsZero() {
		args = append(args, f.EndDate.Time)
		query += fmt.Sprintf(" AND expense_date <= $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category.String())
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	query += " ORDER BY expense_date DESC, id DESC"

	rows, err := p.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list expenses: %w", err)
	}

	return expenses, nil
}

func (p *Postgres) GetExpense(ctx context.Context, ownerID, id int64) (*models.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE id = $1 AND user_id = $2"

	rows, err := p.Pool.Query(ctx, query, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get expense: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("postgres: get expense: %w", err)
		}
		return nil, models.ErrNotFound
	}

	return scanExpense(rows)
}

// UpdateExpense applies a partial update inside a transaction. The row is
// locked first so concurrent edits to the same expense cannot lose writes.
func (p *Postgres) UpdateExpense(ctx context.Context, ownerID, id int64, patch expense.Patch) (*models.Expense, error) {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := "SELECT " + expenseColumns + " FROM expenses WHERE id = $1 AND user_id = $2 FOR UPDATE"
	rows, err := tx.Query(ctx, query, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: lock expense: %w", err)
	}

	if !rows.Next() {
		rowsErr := rows.Err()
		rows.Close()
		if rowsErr != nil {
			return nil, fmt.Errorf("postgres: lock expense: %w", rowsErr)
		}
		return nil, models.ErrNotFound
	}

	e, err := scanExpense(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	patch.Apply(e, time.Now())

	update := `UPDATE expenses
	           SET amount = $1, category = $2, description = $3, expense_date = $4, updated_at = $5
	           WHERE id = $6 AND user_id = $7`
	if _, err := tx.Exec(ctx, update,
		e.Amount.StringFixed(2), e.Category.String(), e.Description, e.Date.Time, e.UpdatedAt, id, ownerID); err != nil {
		return nil, fmt.Errorf("postgres: update expense: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit update: %w", err)
	}

	return e, nil
}

func (p *Postgres) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("postgres: delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanExpense(rows pgx.Rows) (*models.Expense, error) {
	var (
		e         models.Expense
		amount    string
		category  string
		date      time.Time
		updatedAt *time.Time
	)

	if err := rows.Scan(&e.ID, &e.UserID, &amount, &category, &e.Description, &date, &e.CreatedAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("postgres: scan expense: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse amount %q: %w", amount, err)
	}

	e.Amount = parsed
	e.Category = models.Category(category)
	e.Date = models.DateOf(date)
	e.UpdatedAt = updatedAt

	return &e, nil
}
