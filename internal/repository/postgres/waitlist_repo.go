package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gatherly/internal/domain"
)

type waitlistRepository struct {
	DB *sql.DB
}

func NewWaitlistRepository(db *sql.DB) domain.WaitlistRepository {
	return &waitlistRepository{DB: db}
}

func (r *waitlistRepository) Create(ctx context.Context, e *domain.WaitlistEntry) error {
	query := `
		INSERT INTO event_waitlist (event_id, user_id, priority, status, notes, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.EventID, e.UserID, e.Priority, e.Status, e.Notes, e.JoinedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func scanWaitlistEntry(row interface{ Scan(...interface{}) error }) (*domain.WaitlistEntry, error) {
	e := &domain.WaitlistEntry{}
	var notesNull sql.NullString
	err := row.Scan(&e.ID, &e.EventID, &e.UserID, &e.Priority, &e.Status,
		&notesNull, &e.JoinedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if notesNull.Valid {
		e.Notes = &notesNull.String
	}
	return e, nil
}

const waitlistColumns = `id, event_id, user_id, priority, status, notes, joined_at, updated_at`

func (r *waitlistRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM event_waitlist WHERE event_id = $1 AND user_id = $2`
	e, err := scanWaitlistEntry(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *waitlistRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM event_waitlist
		WHERE event_id = $1
		ORDER BY priority ASC, joined_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]*domain.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *waitlistRepository) HeadOfQueue(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM event_waitlist
		WHERE event_id = $1 AND status = 'waiting'
		ORDER BY priority ASC, joined_at ASC
		LIMIT 1
	`
	e, err := scanWaitlistEntry(r.DB.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *waitlistRepository) NextPriority(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COALESCE(MAX(priority), 0) + 1 FROM event_waitlist WHERE event_id = $1`
	var next int
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&next)
	return next, err
}

func (r *waitlistRepository) UpdateStatus(ctx context.Context, entryID string, status domain.WaitlistStatus, now time.Time) error {
	query := `UPDATE event_waitlist SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, entryID, status, now)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *waitlistRepository) ExpireWaiting(ctx context.Context, eventID string, now time.Time) error {
	query := `
		UPDATE event_waitlist SET status = 'expired', updated_at = $2
		WHERE event_id = $1 AND status = 'waiting'
	`
	_, err := r.DB.ExecContext(ctx, query, eventID, now)
	return err
}
