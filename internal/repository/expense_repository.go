package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/scope"
)

type ExpenseRepository interface {
	CreateExpense(ctx context.Context, e models.Expense) (models.Expense, error)
	ListExpenses(ctx context.Context, filter scope.Filter, from, to *time.Time) ([]models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

type expenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

const expenseColumns = `id, location_id, category, amount, note, incurred_on, recorded_by, created_at`

func (r *expenseRepository) CreateExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		return models.Expense{}, apperr.E(apperr.KindValidation, "expense category is required")
	}
	if e.Amount <= 0 {
		return models.Expense{}, apperr.E(apperr.KindValidation, "expense amount must be positive")
	}
	if e.IncurredOn.IsZero() {
		e.IncurredOn = time.Now()
	}

	const query = `
		INSERT INTO expenses (location_id, category, amount, note, incurred_on, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + expenseColumns

	row := r.db.QueryRowContext(ctx, query, e.LocationID, e.Category, e.Amount, e.Note, e.IncurredOn, e.RecordedBy)
	return scanExpense(row)
}

func (r *expenseRepository) ListExpenses(ctx context.Context, filter scope.Filter, from, to *time.Time) ([]models.Expense, error) {
	clause, args := filter.Clause("location_id", 1)
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE ` + clause
	if from != nil {
		query += ` AND incurred_on >= $` + itoa(len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += ` AND incurred_on <= $` + itoa(len(args)+1)
		args = append(args, *to)
	}
	query += `
		ORDER BY incurred_on DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *expenseRepository) DeleteExpense(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanExpense(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Expense, error) {
	var (
		e          models.Expense
		locationID sql.NullString
	)
	if err := scanner.Scan(
		&e.ID,
		&locationID,
		&e.Category,
		&e.Amount,
		&e.Note,
		&e.IncurredOn,
		&e.RecordedBy,
		&e.CreatedAt,
	); err != nil {
		return models.Expense{}, err
	}
	if locationID.Valid {
		val := locationID.String
		e.LocationID = &val
	}
	return e, nil
}
