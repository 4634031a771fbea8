package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"gatherly/internal/domain"
)

type venueOptionRepository struct {
	DB *sql.DB
}

func NewVenueOptionRepository(db *sql.DB) domain.VenueOptionRepository {
	return &venueOptionRepository{DB: db}
}

func (r *venueOptionRepository) CreateBatch(ctx context.Context, options []*domain.VenueOption) error {
	if len(options) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO venue_options (
			event_id, place_id, name, address, rating, review_count,
			ai_score, ai_reasoning, pros, cons, estimated_cost, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	for _, o := range options {
		err := tx.QueryRowContext(ctx, query,
			o.EventID, o.PlaceID, o.Name, o.Address, o.Rating, o.ReviewCount,
			o.AIScore, o.AIReasoning, pq.Array(o.Pros), pq.Array(o.Cons),
			o.EstimatedCost, o.CreatedAt,
		).Scan(&o.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanVenueOption(row interface{ Scan(...interface{}) error }) (*domain.VenueOption, error) {
	o := &domain.VenueOption{}
	var placeNull, reasoningNull sql.NullString
	var ratingNull, scoreNull, costNull sql.NullFloat64
	var reviewNull sql.NullInt64
	err := row.Scan(
		&o.ID, &o.EventID, &placeNull, &o.Name, &o.Address, &ratingNull, &reviewNull,
		&scoreNull, &reasoningNull, pq.Array(&o.Pros), pq.Array(&o.Cons),
		&costNull, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if placeNull.Valid {
		o.PlaceID = &placeNull.String
	}
	if ratingNull.Valid {
		o.Rating = &ratingNull.Float64
	}
	if reviewNull.Valid {
		n := int(reviewNull.Int64)
		o.ReviewCount = &n
	}
	if scoreNull.Valid {
		o.AIScore = &scoreNull.Float64
	}
	if reasoningNull.Valid {
		o.AIReasoning = reasoningNull.String
	}
	if costNull.Valid {
		o.EstimatedCost = &costNull.Float64
	}
	return o, nil
}

const venueOptionColumns = `
	id, event_id, place_id, name, address, rating, review_count,
	ai_score, ai_reasoning, pros, cons, estimated_cost, created_at
`

func (r *venueOptionRepository) GetByID(ctx context.Context, optionID string) (*domain.VenueOption, error) {
	query := `SELECT ` + venueOptionColumns + ` FROM venue_options WHERE id = $1`
	o, err := scanVenueOption(r.DB.QueryRowContext(ctx, query, optionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *venueOptionRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.VenueOption, error) {
	query := `SELECT ` + venueOptionColumns + ` FROM venue_options WHERE event_id = $1`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	options := make([]*domain.VenueOption, 0)
	for rows.Next() {
		o, err := scanVenueOption(rows)
		if err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func (r *venueOptionRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM venue_options WHERE event_id = $1`, eventID).Scan(&count)
	return count, err
}

func (r *venueOptionRepository) DeleteByEventID(ctx context.Context, eventID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM venue_options WHERE event_id = $1`, eventID)
	return err
}
