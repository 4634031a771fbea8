package postgres

import (
	"context"
	"database/sql"

	"gatherly/internal/domain"
)

type voteRepository struct {
	DB *sql.DB
}

func NewVoteRepository(db *sql.DB) domain.VoteRepository {
	return &voteRepository{DB: db}
}

// Upsert inserts the voter's choice or, when the (event_id, voter_id) row
// already exists, moves the vote to the new option. The constraint resolves
// concurrent re-votes at the storage layer.
func (r *voteRepository) Upsert(ctx context.Context, v *domain.Vote) error {
	query := `
		INSERT INTO event_votes (event_id, option_id, voter_id, value, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, voter_id) DO UPDATE
		SET option_id = EXCLUDED.option_id,
			value = EXCLUDED.value,
			comment = EXCLUDED.comment,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query,
		v.EventID, v.OptionID, v.VoterID, v.Value, v.Comment, v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID, &v.CreatedAt)
}

func (r *voteRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Vote, error) {
	query := `
		SELECT id, event_id, option_id, voter_id, value, comment, created_at, updated_at
		FROM event_votes
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	votes := make([]*domain.Vote, 0)
	for rows.Next() {
		v := &domain.Vote{}
		var commentNull sql.NullString
		if err := rows.Scan(&v.ID, &v.EventID, &v.OptionID, &v.VoterID, &v.Value,
			&commentNull, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		if commentNull.Valid {
			v.Comment = &commentNull.String
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (r *voteRepository) TallyByEventID(ctx context.Context, eventID string) ([]*domain.OptionTally, error) {
	query := `
		SELECT option_id, COUNT(DISTINCT voter_id), COALESCE(SUM(value), 0)
		FROM event_votes
		WHERE event_id = $1
		GROUP BY option_id
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tallies := make([]*domain.OptionTally, 0)
	for rows.Next() {
		t := &domain.OptionTally{}
		if err := rows.Scan(&t.OptionID, &t.TotalVotes, &t.VoteScore); err != nil {
			return nil, err
		}
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}

func (r *voteRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_votes WHERE event_id = $1`, eventID).Scan(&count)
	return count, err
}
