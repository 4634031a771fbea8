package recsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"gatherly/internal/domain"
)

// Client calls the external recommendation service over HTTP. It implements
// the preference aggregation, venue generation, and place lookup
// collaborators.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for the recommendation service at baseURL.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: baseURL, client: client}
}

func (c *Client) Aggregate(ctx context.Context, eventID string) (*domain.PreferenceSet, error) {
	u := fmt.Sprintf("%s/v1/events/%s/preferences", c.baseURL, url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch preferences: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recommendation service returned status: %d", resp.StatusCode)
	}

	var prefs domain.PreferenceSet
	if err := json.NewDecoder(resp.Body).Decode(&prefs); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return &prefs, nil
}

type generateRequest struct {
	EventID     string                `json:"event_id"`
	Preferences *domain.PreferenceSet `json:"preferences"`
	Lat         *float64              `json:"lat,omitempty"`
	Lng         *float64              `json:"lng,omitempty"`
	RadiusKm    *float64              `json:"radius_km,omitempty"`
}

type generateResponse struct {
	Options []*domain.VenueOption `json:"options"`
}

func (c *Client) Generate(ctx context.Context, eventID string, prefs *domain.PreferenceSet, lat, lng, radiusKm *float64) ([]*domain.VenueOption, error) {
	body, err := json.Marshal(generateRequest{
		EventID:     eventID,
		Preferences: prefs,
		Lat:         lat,
		Lng:         lng,
		RadiusKm:    radiusKm,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/recommendations", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommendations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recommendation service returned status: %d", resp.StatusCode)
	}

	var data generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	return data.Options, nil
}

func (c *Client) GetByID(ctx context.Context, placeID string) (*domain.Place, error) {
	u := fmt.Sprintf("%s/v1/places/%s", c.baseURL, url.PathEscape(placeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch place: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recommendation service returned status: %d", resp.StatusCode)
	}

	var place domain.Place
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		return nil, fmt.Errorf("failed to decode place: %w", err)
	}
	return &place, nil
}
