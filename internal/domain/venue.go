package domain

import (
	"context"
	"sort"
	"time"
)

// VenueOption is a candidate venue attached to an event for voting. It either
// references an internal place or carries an external-provider snapshot
// (external providers are not queried again, so name/address/rating are
// duplicated locally).
// swagger:model VenueOption
type VenueOption struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	PlaceID       *string   `json:"place_id,omitempty"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Rating        *float64  `json:"rating,omitempty"`
	ReviewCount   *int      `json:"review_count,omitempty"`
	AIScore       *float64  `json:"ai_score,omitempty"`
	AIReasoning   string    `json:"ai_reasoning,omitempty"`
	Pros          []string  `json:"pros,omitempty"`
	Cons          []string  `json:"cons,omitempty"`
	EstimatedCost *float64  `json:"estimated_cost,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RankVenueOptions sorts options into the deterministic presentation order:
// internal-place-first, AI-score-present-first, AI score descending, rating
// descending, review count descending, name ascending. The sort is total, so
// UIs and tests always see the same ranking.
func RankVenueOptions(options []*VenueOption) {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if (a.PlaceID != nil) != (b.PlaceID != nil) {
			return a.PlaceID != nil
		}
		if (a.AIScore != nil) != (b.AIScore != nil) {
			return a.AIScore != nil
		}
		if a.AIScore != nil && b.AIScore != nil && *a.AIScore != *b.AIScore {
			return *a.AIScore > *b.AIScore
		}
		ar, br := ratingOrZero(a), ratingOrZero(b)
		if ar != br {
			return ar > br
		}
		arc, brc := reviewCountOrZero(a), reviewCountOrZero(b)
		if arc != brc {
			return arc > brc
		}
		return a.Name < b.Name
	})
}

func ratingOrZero(o *VenueOption) float64 {
	if o.Rating == nil {
		return 0
	}
	return *o.Rating
}

func reviewCountOrZero(o *VenueOption) int {
	if o.ReviewCount == nil {
		return 0
	}
	return *o.ReviewCount
}

// Place is the narrow read model of the external place collaborator.
type Place struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// PlaceReader resolves internal venue details for options that reference an
// internal place. Place management itself is outside this service.
type PlaceReader interface {
	GetByID(ctx context.Context, placeID string) (*Place, error)
}

// VenueOptionRepository defines storage operations for venue candidates.
type VenueOptionRepository interface {
	CreateBatch(ctx context.Context, options []*VenueOption) error
	GetByID(ctx context.Context, optionID string) (*VenueOption, error)
	ListByEventID(ctx context.Context, eventID string) ([]*VenueOption, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
	// DeleteByEventID clears all options for an event. Used when
	// recommendations are regenerated before any vote exists.
	DeleteByEventID(ctx context.Context, eventID string) error
}
