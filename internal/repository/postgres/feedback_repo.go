package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gatherly/internal/domain"
)

type feedbackRepository struct {
	DB *sql.DB
}

func NewFeedbackRepository(db *sql.DB) domain.FeedbackRepository {
	return &feedbackRepository{DB: db}
}

// Upsert inserts the rating or replaces the existing one via the
// (event_id, user_id) constraint.
func (r *feedbackRepository) Upsert(ctx context.Context, f *domain.Feedback) error {
	query := `
		INSERT INTO event_feedback (event_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query,
		f.EventID, f.UserID, f.Rating, f.Comment, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID, &f.CreatedAt)
}

func scanFeedback(row interface{ Scan(...interface{}) error }) (*domain.Feedback, error) {
	f := &domain.Feedback{}
	var commentNull sql.NullString
	err := row.Scan(&f.ID, &f.EventID, &f.UserID, &f.Rating, &commentNull, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if commentNull.Valid {
		f.Comment = &commentNull.String
	}
	return f, nil
}

func (r *feedbackRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Feedback, error) {
	query := `
		SELECT id, event_id, user_id, rating, comment, created_at, updated_at
		FROM event_feedback
		WHERE event_id = $1 AND user_id = $2
	`
	f, err := scanFeedback(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *feedbackRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Feedback, error) {
	query := `
		SELECT id, event_id, user_id, rating, comment, created_at, updated_at
		FROM event_feedback
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	feedback := make([]*domain.Feedback, 0)
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		feedback = append(feedback, f)
	}
	return feedback, rows.Err()
}
