package domain

import "context"

// NotificationKind labels the reason for a notification.
type NotificationKind string

const (
	NotifyInvitation           NotificationKind = "invitation"
	NotifyPreferencesRequested NotificationKind = "preferences_requested"
	NotifyVotingOpened         NotificationKind = "voting_opened"
	NotifyEventConfirmed       NotificationKind = "event_confirmed"
	NotifyEventCancelled       NotificationKind = "event_cancelled"
	NotifyEventRescheduled     NotificationKind = "event_rescheduled"
	NotifyWaitlistPromoted     NotificationKind = "waitlist_promoted"
	NotifyFeedbackRequested    NotificationKind = "feedback_requested"
)

// PreferenceSet is the aggregated venue preferences of an event's invitees,
// as returned by the external preference collaborator. The core only checks
// non-emptiness and forwards the rest opaquely to the recommendation
// generator.
type PreferenceSet struct {
	EventID     string             `json:"event_id"`
	Cuisines    []string           `json:"cuisines,omitempty"`
	PriceLevels []int              `json:"price_levels,omitempty"`
	Moods       []string           `json:"moods,omitempty"`
	Raw         map[string]float64 `json:"raw,omitempty"`
}

// IsEmpty reports whether no preference signal was gathered at all.
func (p *PreferenceSet) IsEmpty() bool {
	return p == nil || (len(p.Cuisines) == 0 && len(p.PriceLevels) == 0 && len(p.Moods) == 0 && len(p.Raw) == 0)
}

// PreferenceAggregator is the external collaborator consulted before the
// gathering_preferences -> ai_recommending transition.
type PreferenceAggregator interface {
	Aggregate(ctx context.Context, eventID string) (*PreferenceSet, error)
}

// RecommendationGenerator is the external AI collaborator producing venue
// candidates. An empty result is a hard failure of the transition attempt.
type RecommendationGenerator interface {
	Generate(ctx context.Context, eventID string, prefs *PreferenceSet, lat, lng, radiusKm *float64) ([]*VenueOption, error)
}

// Notifier delivers user notifications. Fire-and-forget from the core's
// perspective: delivery failures are logged, never surfaced to callers.
type Notifier interface {
	Notify(ctx context.Context, userID, eventID string, kind NotificationKind) error
}

// Mailer sends transactional email (infrastructure port).
type Mailer interface {
	SendEventInvitation(ctx context.Context, data *EventInvitationEmailData) error
}

// EventInvitationEmailData carries the fields rendered into an invitation
// email.
type EventInvitationEmailData struct {
	Email         string
	OrganizerName string
	EventTitle    string
	EventID       string
}
