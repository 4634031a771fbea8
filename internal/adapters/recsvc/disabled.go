package recsvc

import (
	"context"
	"errors"

	"gatherly/internal/domain"
)

// ErrUnavailable is returned by the disabled client when no recommendation
// service is configured.
var ErrUnavailable = errors.New("recommendation service not configured")

// Disabled is a stand-in used when RECOMMENDER_URL is unset. Every call fails
// with ErrUnavailable, which surfaces as a failed transition attempt rather
// than a crash.
type Disabled struct{}

func (Disabled) Aggregate(ctx context.Context, eventID string) (*domain.PreferenceSet, error) {
	return nil, ErrUnavailable
}

func (Disabled) Generate(ctx context.Context, eventID string, prefs *domain.PreferenceSet, lat, lng, radiusKm *float64) ([]*domain.VenueOption, error) {
	return nil, ErrUnavailable
}

func (Disabled) GetByID(ctx context.Context, placeID string) (*domain.Place, error) {
	return nil, ErrUnavailable
}
