package domain

import (
	"context"
	"time"
)

// WaitlistStatus is the closed set of waitlist entry states.
type WaitlistStatus string

const (
	WaitlistWaiting  WaitlistStatus = "waiting"
	WaitlistPromoted WaitlistStatus = "promoted"
	WaitlistExpired  WaitlistStatus = "expired"
)

// WaitlistEntry is a user's position in the queue for a capacity-limited
// event. Lower priority values are served first; equal priorities are served
// in join order.
// swagger:model WaitlistEntry
type WaitlistEntry struct {
	ID       string         `json:"id"`
	EventID  string         `json:"event_id"`
	UserID   string         `json:"user_id"`
	Priority int            `json:"priority"`
	Status   WaitlistStatus `json:"status"`
	Notes    *string        `json:"notes,omitempty"`
	JoinedAt time.Time      `json:"joined_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// WaitlistRepository defines storage operations for waitlist entries. The
// unique constraint on (event_id, user_id) resolves concurrent joins at the
// storage layer.
type WaitlistRepository interface {
	Create(ctx context.Context, entry *WaitlistEntry) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*WaitlistEntry, error)
	ListByEventID(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	// HeadOfQueue returns the waiting entry with the lowest priority,
	// breaking ties by earliest joined_at. ErrNotFound when the queue is
	// empty.
	HeadOfQueue(ctx context.Context, eventID string) (*WaitlistEntry, error)
	// NextPriority returns one past the highest priority currently assigned
	// for the event (insertion order default).
	NextPriority(ctx context.Context, eventID string) (int, error)
	UpdateStatus(ctx context.Context, entryID string, status WaitlistStatus, now time.Time) error
	// ExpireWaiting marks every waiting entry of the event as expired.
	ExpireWaiting(ctx context.Context, eventID string, now time.Time) error
}

// WaitlistService defines the capacity-constrained waitlist operations.
type WaitlistService interface {
	// Join appends the user to the queue. Joining an uncapped event is
	// rejected with ErrInvalidOperation: without MaxAttendees no slot ever
	// frees, so the queue would be meaningless.
	Join(ctx context.Context, eventID, userID string, priority *int, notes *string) (*WaitlistEntry, error)
	List(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	// Promote moves the named entry to promoted and the user to accepted.
	// Organizers may promote out of order; capacity is always enforced.
	Promote(ctx context.Context, eventID, userID, callerID string) (*WaitlistEntry, error)
	// PromoteHead promotes strictly the highest-priority waiting entry, if
	// any, provided capacity remains. Used by the orchestrator after a
	// decline or removal frees a slot. A missing or empty queue is not an
	// error.
	PromoteHead(ctx context.Context, event *Event) (*WaitlistEntry, error)
	// ExpireForEvent marks all waiting entries expired (event cancelled).
	ExpireForEvent(ctx context.Context, eventID string) error
}
