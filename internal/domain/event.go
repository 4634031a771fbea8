package domain

import (
	"context"
	"time"
)

// DefaultAcceptanceThreshold is applied when an event is created without an
// explicit threshold.
const DefaultAcceptanceThreshold = 0.70

// Event is the aggregate root of the scheduling lifecycle. It is mutated only
// through TransitionTo or the well-defined sub-operations (vote cast,
// check-in, feedback submit); cancellation and completion are terminal states,
// never row deletion.
// swagger:model Event
type Event struct {
	ID                  string      `json:"id"`
	OrganizerID         string      `json:"organizer_id"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	EventType           string      `json:"event_type"`
	Status              EventStatus `json:"status"`
	ScheduledDate       time.Time   `json:"scheduled_date"`
	Timezone            string      `json:"timezone"`
	DurationMinutes     int         `json:"duration_minutes"`
	ExpectedAttendees   int         `json:"expected_attendees"`
	MaxAttendees        *int        `json:"max_attendees,omitempty"`
	BudgetMin           *float64    `json:"budget_min,omitempty"`
	BudgetMax           *float64    `json:"budget_max,omitempty"`
	AcceptanceThreshold float64     `json:"acceptance_threshold"`
	IsPrivate           bool        `json:"is_private"`
	CancellationReason  *string     `json:"cancellation_reason,omitempty"`
	RescheduleCount     int         `json:"reschedule_count"`
	FinalPlaceID        *string     `json:"final_place_id,omitempty"`
	RecurringTemplateID *string     `json:"recurring_template_id,omitempty"`
	OccurrenceDate      *time.Time  `json:"occurrence_date,omitempty"`
	ConfirmedAt         *time.Time  `json:"confirmed_at,omitempty"`
	CancelledAt         *time.Time  `json:"cancelled_at,omitempty"`
	CompletedAt         *time.Time  `json:"completed_at,omitempty"`
	Version             int         `json:"version"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// NewEvent returns a new Event in the inviting state. ID and Version are set
// by the repository on create.
func NewEvent(organizerID, title, description, eventType string, scheduledDate time.Time, timezone string, durationMinutes, expectedAttendees int, now time.Time) *Event {
	return &Event{
		OrganizerID:         organizerID,
		Title:               title,
		Description:         description,
		EventType:           eventType,
		Status:              StatusInviting,
		ScheduledDate:       scheduledDate,
		Timezone:            timezone,
		DurationMinutes:     durationMinutes,
		ExpectedAttendees:   expectedAttendees,
		AcceptanceThreshold: DefaultAcceptanceThreshold,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// ScheduledEnd returns the scheduled date plus the estimated duration.
func (e *Event) ScheduledEnd() time.Time {
	return e.ScheduledDate.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// CommandKind identifies a side effect the caller must dispatch after
// persisting a transition.
type CommandKind string

const (
	CommandNotifyParticipants CommandKind = "notify_participants"
	CommandExpireWaitlist     CommandKind = "expire_waitlist"
)

// Command is a side effect produced by a transition. The state machine never
// executes side effects itself; the service layer dispatches them after the
// status write has been committed.
type Command struct {
	Kind         CommandKind
	Notification NotificationKind
}

// TransitionInput carries the facts a transition guard needs that do not live
// on the aggregate itself. The service layer gathers them (fresh, not cached)
// before invoking TransitionTo.
type TransitionInput struct {
	Now            time.Time
	Reason         string
	OptionCount    int  // venue options currently attached to the event
	HasPreferences bool // the aggregated preference set is non-empty
	HasVotes       bool // at least one vote has been cast
	Forced         bool // explicit organizer/moderator completion
}

// TransitionTo validates the edge (e.Status -> target) against the lifecycle
// graph and its guards, mutates the aggregate in place, and returns the side
// effects to dispatch. Timestamps are set exactly once, on the transition that
// first reaches the state, and never overwritten on re-entry. The caller is
// responsible for persisting the aggregate under an optimistic version check.
func (e *Event) TransitionTo(target EventStatus, in TransitionInput) ([]Command, error) {
	if !target.IsValid() {
		return nil, ErrInvalidInput
	}
	if !CanTransition(e.Status, target) {
		return nil, ErrInvalidTransition
	}

	switch target {
	case StatusGatheringPreferences:
		// Purely organizer/system triggered; preferences may be gathered
		// from pending invitees too, so no accepted-participant guard.
	case StatusAIRecommending:
		if e.Status == StatusGatheringPreferences && !in.HasPreferences {
			return nil, ErrInvalidTransition
		}
		if e.Status == StatusVoting && in.HasVotes {
			// Regeneration is forbidden once any vote exists.
			return nil, ErrInvalidOperation
		}
	case StatusVoting:
		if in.OptionCount < 1 {
			return nil, ErrInvalidTransition
		}
	case StatusConfirmed:
		// Finalize is the only caller; FinalPlaceID may legitimately stay
		// nil for purely external venue selections.
	case StatusCompleted:
		if !in.Forced && in.Now.Before(e.ScheduledEnd()) {
			return nil, ErrInvalidTransition
		}
	}

	e.Status = target
	e.UpdatedAt = in.Now

	var cmds []Command
	switch target {
	case StatusGatheringPreferences:
		cmds = append(cmds, Command{Kind: CommandNotifyParticipants, Notification: NotifyPreferencesRequested})
	case StatusVoting:
		cmds = append(cmds, Command{Kind: CommandNotifyParticipants, Notification: NotifyVotingOpened})
	case StatusConfirmed:
		if e.ConfirmedAt == nil {
			t := in.Now
			e.ConfirmedAt = &t
		}
		cmds = append(cmds, Command{Kind: CommandNotifyParticipants, Notification: NotifyEventConfirmed})
	case StatusCancelled:
		if e.CancelledAt == nil {
			t := in.Now
			e.CancelledAt = &t
		}
		if in.Reason != "" {
			reason := in.Reason
			e.CancellationReason = &reason
		}
		cmds = append(cmds,
			Command{Kind: CommandExpireWaitlist},
			Command{Kind: CommandNotifyParticipants, Notification: NotifyEventCancelled},
		)
	case StatusCompleted:
		if e.CompletedAt == nil {
			t := in.Now
			e.CompletedAt = &t
		}
		cmds = append(cmds, Command{Kind: CommandNotifyParticipants, Notification: NotifyFeedbackRequested})
	}
	return cmds, nil
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, error)
	// Update persists the aggregate if the stored version equals
	// expectedVersion, bumping the version on success. Returns ErrConflict
	// on a version mismatch and ErrNotFound if the row is gone.
	Update(ctx context.Context, event *Event, expectedVersion int) error
	// ExistsOccurrence reports whether an event materialized from the given
	// template for the given occurrence date already exists.
	ExistsOccurrence(ctx context.Context, templateID string, occurrenceDate time.Time) (bool, error)
}

// RecommendationOutcome reports the partial-success detail of
// GenerateRecommendations: options already persisted must not be discarded
// merely because the follow-up transition lost a race.
type RecommendationOutcome struct {
	Event              *Event         `json:"event"`
	Options            []*VenueOption `json:"options"`
	TransitionedToVote bool           `json:"transitioned_to_voting"`
	TransitionErr      string         `json:"transition_error,omitempty"`
}

// EventService defines the lifecycle orchestration operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListMyEvents(ctx context.Context, organizerID string) ([]*Event, error)
	// TransitionTo drives the event along the lifecycle graph. reason is
	// recorded for cancellations and ignored otherwise.
	TransitionTo(ctx context.Context, eventID string, target EventStatus, callerID, reason string) (*Event, error)
	// GenerateRecommendations aggregates preferences, asks the
	// recommendation generator for venue candidates, attaches them, and
	// attempts the transition into voting. Re-invocation while already in
	// ai_recommending is an idempotent re-fetch.
	GenerateRecommendations(ctx context.Context, eventID, callerID string, lat, lng, radiusKm *float64) (*RecommendationOutcome, error)
	Cancel(ctx context.Context, eventID, callerID, reason string) (*Event, error)
	Complete(ctx context.Context, eventID, callerID string) (*Event, error)
	// Reschedule moves the scheduled date of a confirmed event. It is not a
	// state transition: the event stays confirmed and RescheduleCount is
	// incremented.
	Reschedule(ctx context.Context, eventID, callerID string, newDate time.Time) (*Event, error)
	InviteParticipant(ctx context.Context, eventID, callerID, userID string) (*Participant, error)
	RespondToInvitation(ctx context.Context, eventID, userID string, accept bool) (*Participant, error)
	// RequestToJoin joins an open event directly while capacity remains;
	// once the event is full the request lands on the waitlist instead.
	// Exactly one of the two return values is non-nil on success.
	RequestToJoin(ctx context.Context, eventID, userID string) (*Participant, *WaitlistEntry, error)
	RemoveParticipant(ctx context.Context, eventID, callerID, userID string) error
	ListParticipants(ctx context.Context, eventID string) ([]*Participant, error)
}
