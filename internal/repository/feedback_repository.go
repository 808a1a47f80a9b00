package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
)

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error)
	ListFeedback(ctx context.Context, limit int) ([]models.Feedback, error)
}

type feedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

const feedbackColumns = `id, name, contact, message, rating, created_at`

func (r *feedbackRepository) CreateFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	f.Message = strings.TrimSpace(f.Message)
	if f.Message == "" {
		return models.Feedback{}, apperr.E(apperr.KindValidation, "feedback message is required")
	}
	if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
		return models.Feedback{}, apperr.E(apperr.KindValidation, "rating must be between 1 and 5")
	}

	const query = `
		INSERT INTO feedback (name, contact, message, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + feedbackColumns

	return scanFeedback(r.db.QueryRowContext(ctx, query, f.Name, f.Contact, f.Message, f.Rating))
}

func (r *feedbackRepository) ListFeedback(ctx context.Context, limit int) ([]models.Feedback, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `
		SELECT ` + feedbackColumns + `
		FROM feedback
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanFeedback(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Feedback, error) {
	var (
		f      models.Feedback
		rating sql.NullInt64
	)
	if err := scanner.Scan(&f.ID, &f.Name, &f.Contact, &f.Message, &rating, &f.CreatedAt); err != nil {
		return models.Feedback{}, err
	}
	if rating.Valid {
		val := int(rating.Int64)
		f.Rating = &val
	}
	return f, nil
}
