package domain

import (
	"context"
	"time"
)

// Vote is one voter's current choice for an event. Unique per (event, voter):
// casting again moves the vote, it never duplicates the row.
// swagger:model Vote
type Vote struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	OptionID  string    `json:"option_id"`
	VoterID   string    `json:"voter_id"`
	Value     float64   `json:"value"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OptionTally is the aggregate result for one venue option.
// swagger:model OptionTally
type OptionTally struct {
	OptionID   string  `json:"option_id"`
	TotalVotes int     `json:"total_votes"`
	VoteScore  float64 `json:"vote_score"`
}

// VoteRepository defines storage operations for votes. Upsert must resolve
// the one-vote-per-voter rule atomically at the storage layer (unique
// constraint on (event_id, voter_id)), not read-then-write in application
// code.
type VoteRepository interface {
	Upsert(ctx context.Context, vote *Vote) error
	ListByEventID(ctx context.Context, eventID string) ([]*Vote, error)
	// TallyByEventID returns per-option totals: distinct voter count and
	// arithmetic sum of values. Options without votes are absent.
	TallyByEventID(ctx context.Context, eventID string) ([]*OptionTally, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
}

// VoteService defines the vote tally and finalization operations.
type VoteService interface {
	// CastVote upserts the caller's vote. The event must be in voting, the
	// option must belong to the event, and the voter must be an accepted
	// participant or the organizer.
	CastVote(ctx context.Context, eventID, optionID, voterID string, value float64, comment *string) (*Vote, error)
	// GetVoteStats returns one tally per option, including zero tallies for
	// options nobody has voted for, in the deterministic ranking order.
	GetVoteStats(ctx context.Context, eventID string) ([]*OptionTally, error)
	// ListRecommendations returns the event's venue options in the
	// deterministic ranking order.
	ListRecommendations(ctx context.Context, eventID string) ([]*VenueOption, error)
	// Finalize records the organizer's venue choice and confirms the event.
	Finalize(ctx context.Context, eventID, optionID, organizerID string) (*Event, error)
}
