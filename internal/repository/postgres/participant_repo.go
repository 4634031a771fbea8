package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gatherly/internal/domain"
)

type participantRepository struct {
	DB *sql.DB
}

func NewParticipantRepository(db *sql.DB) domain.ParticipantRepository {
	return &participantRepository{DB: db}
}

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	query := `
		INSERT INTO event_participants (event_id, user_id, invitation_status, invited_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.EventID, p.UserID, p.InvitationStatus, p.InvitedAt, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *participantRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Participant, error) {
	query := `
		SELECT id, event_id, user_id, invitation_status, invited_at, responded_at, created_at, updated_at
		FROM event_participants
		WHERE event_id = $1 AND user_id = $2
	`
	p := &domain.Participant{}
	var respondedNull sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(
		&p.ID, &p.EventID, &p.UserID, &p.InvitationStatus, &p.InvitedAt,
		&respondedNull, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if respondedNull.Valid {
		p.RespondedAt = &respondedNull.Time
	}
	return p, nil
}

func (r *participantRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	query := `
		SELECT id, event_id, user_id, invitation_status, invited_at, responded_at, created_at, updated_at
		FROM event_participants
		WHERE event_id = $1
		ORDER BY invited_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	participants := make([]*domain.Participant, 0)
	for rows.Next() {
		p := &domain.Participant{}
		var respondedNull sql.NullTime
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.InvitationStatus, &p.InvitedAt,
			&respondedNull, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if respondedNull.Valid {
			p.RespondedAt = &respondedNull.Time
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *participantRepository) UpdateStatus(ctx context.Context, eventID, userID string, status domain.InvitationStatus, respondedAt time.Time) (*domain.Participant, error) {
	query := `
		UPDATE event_participants
		SET invitation_status = $3, responded_at = $4, updated_at = $4
		WHERE event_id = $1 AND user_id = $2
		RETURNING id, event_id, user_id, invitation_status, invited_at, responded_at, created_at, updated_at
	`
	p := &domain.Participant{}
	var respondedNull sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, eventID, userID, status, respondedAt).Scan(
		&p.ID, &p.EventID, &p.UserID, &p.InvitationStatus, &p.InvitedAt,
		&respondedNull, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if respondedNull.Valid {
		p.RespondedAt = &respondedNull.Time
	}
	return p, nil
}

func (r *participantRepository) CountAccepted(ctx context.Context, eventID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM event_participants
		WHERE event_id = $1 AND invitation_status = 'accepted'
	`
	var count int
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&count)
	return count, err
}
