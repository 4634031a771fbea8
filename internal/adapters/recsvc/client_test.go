package recsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/domain"
)

func TestClient_Aggregate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/events/ev-1/preferences", r.URL.Path)
		json.NewEncoder(w).Encode(domain.PreferenceSet{
			EventID:  "ev-1",
			Cuisines: []string{"italian", "thai"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	prefs, err := c.Aggregate(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"italian", "thai"}, prefs.Cuisines)
	assert.False(t, prefs.IsEmpty())
}

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/recommendations", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ev-1", req.EventID)

		json.NewEncoder(w).Encode(generateResponse{
			Options: []*domain.VenueOption{
				{Name: "Trattoria Roma", Address: "1 Main St"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	options, err := c.Generate(context.Background(), "ev-1", &domain.PreferenceSet{EventID: "ev-1"}, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "Trattoria Roma", options[0].Name)
}

func TestClient_Generate_upstream_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Generate(context.Background(), "ev-1", nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestClient_GetByID_not_found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.GetByID(context.Background(), "place-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
