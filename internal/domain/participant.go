package domain

import (
	"context"
	"time"
)

// InvitationStatus is the closed set of participation states.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationRemoved  InvitationStatus = "removed"
)

// Participant links a user to an event. Unique per (event, user).
// swagger:model Participant
type Participant struct {
	ID               string           `json:"id"`
	EventID          string           `json:"event_id"`
	UserID           string           `json:"user_id"`
	InvitationStatus InvitationStatus `json:"invitation_status"`
	InvitedAt        time.Time        `json:"invited_at"`
	RespondedAt      *time.Time       `json:"responded_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewParticipant returns a pending Participant. ID is set by the repository
// on create.
func NewParticipant(eventID, userID string, now time.Time) *Participant {
	return &Participant{
		EventID:          eventID,
		UserID:           userID,
		InvitationStatus: InvitationPending,
		InvitedAt:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ParticipantRepository defines storage operations for event participants.
type ParticipantRepository interface {
	Create(ctx context.Context, p *Participant) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Participant, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Participant, error)
	// UpdateStatus sets the invitation status and responded_at timestamp.
	UpdateStatus(ctx context.Context, eventID, userID string, status InvitationStatus, respondedAt time.Time) (*Participant, error)
	// CountAccepted returns the number of accepted participants for the
	// event. Used for capacity checks; must be read fresh, never cached.
	CountAccepted(ctx context.Context, eventID string) (int, error)
}
