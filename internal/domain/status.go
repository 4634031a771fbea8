package domain

// EventStatus is the closed set of lifecycle states an event moves through.
// The status column is the single source of truth for lifecycle position.
type EventStatus string

const (
	StatusInviting             EventStatus = "inviting"
	StatusGatheringPreferences EventStatus = "gathering_preferences"
	StatusAIRecommending       EventStatus = "ai_recommending"
	StatusVoting               EventStatus = "voting"
	StatusConfirmed            EventStatus = "confirmed"
	StatusCancelled            EventStatus = "cancelled"
	StatusCompleted            EventStatus = "completed"
)

// transitions is the adjacency table of the event lifecycle. Cancellation is
// handled separately (allowed from every non-terminal state), so it does not
// appear here. voting -> ai_recommending is the regeneration back-edge.
var transitions = map[EventStatus][]EventStatus{
	StatusInviting:             {StatusGatheringPreferences},
	StatusGatheringPreferences: {StatusAIRecommending},
	StatusAIRecommending:       {StatusVoting},
	StatusVoting:               {StatusConfirmed, StatusAIRecommending},
	StatusConfirmed:            {StatusCompleted},
	StatusCancelled:            {},
	StatusCompleted:            {},
}

// IsValid reports whether s is one of the known lifecycle states.
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusInviting, StatusGatheringPreferences, StatusAIRecommending,
		StatusVoting, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s EventStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransition reports whether the edge from -> to exists in the lifecycle
// graph. Cancellation from any non-terminal state is always permitted.
func CanTransition(from, to EventStatus) bool {
	if to == StatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
