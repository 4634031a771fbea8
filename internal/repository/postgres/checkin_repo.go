package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gatherly/internal/domain"
)

type checkInRepository struct {
	DB *sql.DB
}

func NewCheckInRepository(db *sql.DB) domain.CheckInRepository {
	return &checkInRepository{DB: db}
}

func (r *checkInRepository) Create(ctx context.Context, c *domain.CheckIn) error {
	query := `
		INSERT INTO event_checkins (event_id, user_id, lat, lng, checked_in_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		c.EventID, c.UserID, c.Lat, c.Lng, c.CheckedInAt,
	).Scan(&c.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func scanCheckIn(row interface{ Scan(...interface{}) error }) (*domain.CheckIn, error) {
	c := &domain.CheckIn{}
	var latNull, lngNull sql.NullFloat64
	err := row.Scan(&c.ID, &c.EventID, &c.UserID, &latNull, &lngNull, &c.CheckedInAt)
	if err != nil {
		return nil, err
	}
	if latNull.Valid {
		c.Lat = &latNull.Float64
	}
	if lngNull.Valid {
		c.Lng = &lngNull.Float64
	}
	return c, nil
}

func (r *checkInRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.CheckIn, error) {
	query := `
		SELECT id, event_id, user_id, lat, lng, checked_in_at
		FROM event_checkins
		WHERE event_id = $1 AND user_id = $2
	`
	c, err := scanCheckIn(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *checkInRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.CheckIn, error) {
	query := `
		SELECT id, event_id, user_id, lat, lng, checked_in_at
		FROM event_checkins
		WHERE event_id = $1
		ORDER BY checked_in_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	checkIns := make([]*domain.CheckIn, 0)
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}
