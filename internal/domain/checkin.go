package domain

import (
	"context"
	"time"
)

// Rating bounds for feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// CheckIn records a participant's arrival. One per (event, user); requires
// prior accepted participation. Geolocation is advisory only.
// swagger:model CheckIn
type CheckIn struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// Feedback is a participant's post-event rating. One per (event, user);
// resubmission updates the existing row.
// swagger:model Feedback
type Feedback struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckInRepository defines storage operations for check-ins.
type CheckInRepository interface {
	Create(ctx context.Context, c *CheckIn) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*CheckIn, error)
	ListByEventID(ctx context.Context, eventID string) ([]*CheckIn, error)
}

// FeedbackRepository defines storage operations for feedback. Upsert resolves
// the one-row-per-user rule via the (event_id, user_id) unique constraint.
type FeedbackRepository interface {
	Upsert(ctx context.Context, f *Feedback) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Feedback, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Feedback, error)
}

// CheckInService defines attendance tracking and feedback collection.
type CheckInService interface {
	// CheckIn records arrival. The event must be confirmed or completed and
	// the caller an accepted participant. A second check-in fails with
	// ErrAlreadyExists.
	CheckIn(ctx context.Context, eventID, userID string, lat, lng *float64) (*CheckIn, error)
	ListCheckIns(ctx context.Context, eventID, callerID string) ([]*CheckIn, error)
	// SubmitFeedback upserts the caller's rating for a completed event.
	// Ratings outside [MinRating, MaxRating] fail with ErrInvalidInput.
	SubmitFeedback(ctx context.Context, eventID, userID string, rating int, comment *string) (*Feedback, error)
	ListFeedback(ctx context.Context, eventID, callerID string) ([]*Feedback, error)
}
