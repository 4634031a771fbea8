package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/delivery/http/middleware"
	"gatherly/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createEventErr error
	lastCreated    *domain.Event

	getEventResult *domain.Event
	getEventErr    error

	listMyEventsResult []*domain.Event
	listMyEventsErr    error

	transitionResult *domain.Event
	transitionErr    error
	lastTarget       domain.EventStatus
	lastCallerID     string
	lastReason       string

	cancelResult *domain.Event
	cancelErr    error

	completeResult *domain.Event
	completeErr    error

	rescheduleResult *domain.Event
	rescheduleErr    error

	recommendOutcome *domain.RecommendationOutcome
	recommendErr     error

	inviteResult *domain.Participant
	inviteErr    error

	respondResult *domain.Participant
	respondErr    error

	joinParticipant *domain.Participant
	joinEntry       *domain.WaitlistEntry
	joinErr         error

	removeErr error

	listParticipantsResult []*domain.Participant
	listParticipantsErr    error
}

func (f *fakeEventService) CreateEvent(_ context.Context, event *domain.Event) error {
	f.lastCreated = event
	if f.createEventErr != nil {
		return f.createEventErr
	}
	event.ID = "ev-1"
	event.Version = 1
	return nil
}

func (f *fakeEventService) GetEvent(_ context.Context, _ string) (*domain.Event, error) {
	return f.getEventResult, f.getEventErr
}

func (f *fakeEventService) ListMyEvents(_ context.Context, _ string) ([]*domain.Event, error) {
	return f.listMyEventsResult, f.listMyEventsErr
}

func (f *fakeEventService) TransitionTo(_ context.Context, _ string, target domain.EventStatus, callerID, reason string) (*domain.Event, error) {
	f.lastTarget = target
	f.lastCallerID = callerID
	f.lastReason = reason
	return f.transitionResult, f.transitionErr
}

func (f *fakeEventService) GenerateRecommendations(_ context.Context, _, callerID string, _, _, _ *float64) (*domain.RecommendationOutcome, error) {
	f.lastCallerID = callerID
	return f.recommendOutcome, f.recommendErr
}

func (f *fakeEventService) Cancel(_ context.Context, _, callerID, reason string) (*domain.Event, error) {
	f.lastCallerID = callerID
	f.lastReason = reason
	return f.cancelResult, f.cancelErr
}

func (f *fakeEventService) Complete(_ context.Context, _, callerID string) (*domain.Event, error) {
	f.lastCallerID = callerID
	return f.completeResult, f.completeErr
}

func (f *fakeEventService) Reschedule(_ context.Context, _, callerID string, _ time.Time) (*domain.Event, error) {
	f.lastCallerID = callerID
	return f.rescheduleResult, f.rescheduleErr
}

func (f *fakeEventService) InviteParticipant(_ context.Context, _, callerID, _ string) (*domain.Participant, error) {
	f.lastCallerID = callerID
	return f.inviteResult, f.inviteErr
}

func (f *fakeEventService) RespondToInvitation(_ context.Context, _, _ string, _ bool) (*domain.Participant, error) {
	return f.respondResult, f.respondErr
}

func (f *fakeEventService) RequestToJoin(_ context.Context, _, _ string) (*domain.Participant, *domain.WaitlistEntry, error) {
	return f.joinParticipant, f.joinEntry, f.joinErr
}

func (f *fakeEventService) RemoveParticipant(_ context.Context, _, callerID, _ string) error {
	f.lastCallerID = callerID
	return f.removeErr
}

func (f *fakeEventService) ListParticipants(_ context.Context, _ string) ([]*domain.Participant, error) {
	return f.listParticipantsResult, f.listParticipantsErr
}

func authedRequest(method, target string, body any, userID string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) helpers.APIResponse {
	t.Helper()
	var env helpers.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestEventController_CreateEvent(t *testing.T) {
	t.Run("creates event and returns 201", func(t *testing.T) {
		svc := &fakeEventService{}
		c := NewEventController(testLogger, svc)

		body := map[string]any{
			"title":          "Team dinner",
			"event_type":     "dinner",
			"scheduled_date": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
			"max_attendees":  6,
		}
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, authedRequest(http.MethodPost, "/events", body, "user-1"))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, svc.lastCreated)
		assert.Equal(t, "user-1", svc.lastCreated.OrganizerID)
		assert.Equal(t, domain.StatusInviting, svc.lastCreated.Status)
		require.NotNil(t, svc.lastCreated.MaxAttendees)
		assert.Equal(t, 6, *svc.lastCreated.MaxAttendees)
		assert.Equal(t, domain.DefaultAcceptanceThreshold, svc.lastCreated.AcceptanceThreshold)
	})

	t.Run("missing title is 400", func(t *testing.T) {
		svc := &fakeEventService{}
		c := NewEventController(testLogger, svc)

		body := map[string]any{"event_type": "dinner", "scheduled_date": time.Now().Format(time.RFC3339)}
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, authedRequest(http.MethodPost, "/events", body, "user-1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, svc.lastCreated)
	})

	t.Run("out of range threshold is 400", func(t *testing.T) {
		svc := &fakeEventService{}
		c := NewEventController(testLogger, svc)

		body := map[string]any{
			"title":                "Team dinner",
			"event_type":           "dinner",
			"scheduled_date":       time.Now().Format(time.RFC3339),
			"acceptance_threshold": 1.5,
		}
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, authedRequest(http.MethodPost, "/events", body, "user-1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated is 401", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})

		body := map[string]any{
			"title":          "Team dinner",
			"event_type":     "dinner",
			"scheduled_date": time.Now().Format(time.RFC3339),
		}
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, authedRequest(http.MethodPost, "/events", body, ""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestEventController_Transition(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"forbidden edge", domain.ErrInvalidTransition, http.StatusConflict, helpers.ErrCodeConflict},
		{"not organizer", domain.ErrForbidden, http.StatusForbidden, helpers.ErrCodeForbidden},
		{"unknown target", domain.ErrInvalidInput, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"version conflict", domain.ErrConflict, http.StatusConflict, helpers.ErrCodeConflict},
		{"votes already cast", domain.ErrInvalidOperation, http.StatusUnprocessableEntity, helpers.ErrCodeUnprocessable},
		{"missing event", domain.ErrNotFound, http.StatusNotFound, helpers.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{transitionErr: tt.svcErr}
			c := NewEventController(testLogger, svc)

			req := authedRequest(http.MethodPost, "/events/ev-1/transition",
				map[string]any{"target": "voting"}, "user-1")
			req.SetPathValue("eventID", "ev-1")
			rec := httptest.NewRecorder()
			c.Transition(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}

	t.Run("success passes target and caller through", func(t *testing.T) {
		svc := &fakeEventService{transitionResult: &domain.Event{ID: "ev-1", Status: domain.StatusVoting}}
		c := NewEventController(testLogger, svc)

		req := authedRequest(http.MethodPost, "/events/ev-1/transition",
			map[string]any{"target": "voting"}, "org-1")
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.Transition(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.StatusVoting, svc.lastTarget)
		assert.Equal(t, "org-1", svc.lastCallerID)
	})
}

func TestEventController_Cancel(t *testing.T) {
	svc := &fakeEventService{cancelResult: &domain.Event{ID: "ev-1", Status: domain.StatusCancelled}}
	c := NewEventController(testLogger, svc)

	req := authedRequest(http.MethodPost, "/events/ev-1/cancel",
		map[string]any{"reason": "venue flooded"}, "org-1")
	req.SetPathValue("eventID", "ev-1")
	rec := httptest.NewRecorder()
	c.Cancel(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "venue flooded", svc.lastReason)
}

func TestEventController_GenerateRecommendations(t *testing.T) {
	t.Run("returns outcome with transition error detail", func(t *testing.T) {
		svc := &fakeEventService{recommendOutcome: &domain.RecommendationOutcome{
			Event:              &domain.Event{ID: "ev-1", Status: domain.StatusAIRecommending},
			Options:            []*domain.VenueOption{{ID: "opt-1", Name: "Trattoria"}},
			TransitionedToVote: false,
			TransitionErr:      "concurrent modification detected",
		}}
		c := NewEventController(testLogger, svc)

		req := authedRequest(http.MethodPost, "/events/ev-1/recommendations", map[string]any{}, "org-1")
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.GenerateRecommendations(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		require.Nil(t, env.Error)
	})

	t.Run("invalid lat is 400", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})

		req := authedRequest(http.MethodPost, "/events/ev-1/recommendations",
			map[string]any{"lat": 120.0}, "org-1")
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.GenerateRecommendations(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestParticipantController_Join(t *testing.T) {
	t.Run("direct join returns participant", func(t *testing.T) {
		svc := &fakeEventService{joinParticipant: &domain.Participant{
			EventID: "ev-1", UserID: "user-2", InvitationStatus: domain.InvitationAccepted,
		}}
		c := NewParticipantController(testLogger, svc)

		req := authedRequest(http.MethodPost, "/events/ev-1/join", nil, "user-2")
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.Join(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var env struct {
			Data RequestToJoinResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.False(t, env.Data.Waitlisted)
		require.NotNil(t, env.Data.Participant)
		assert.Nil(t, env.Data.WaitlistEntry)
	})

	t.Run("full event reports waitlisted", func(t *testing.T) {
		svc := &fakeEventService{joinEntry: &domain.WaitlistEntry{
			EventID: "ev-1", UserID: "user-2", Priority: 3, Status: domain.WaitlistWaiting,
		}}
		c := NewParticipantController(testLogger, svc)

		req := authedRequest(http.MethodPost, "/events/ev-1/join", nil, "user-2")
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.Join(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var env struct {
			Data RequestToJoinResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.True(t, env.Data.Waitlisted)
		assert.Nil(t, env.Data.Participant)
		require.NotNil(t, env.Data.WaitlistEntry)
	})

	t.Run("private event is 403", func(t *testing.T) {
		svc := &fakeEventService{joinErr: domain.ErrForbidden}
		c := NewParticipantController(testLogger, svc)

		req := authedRequest(http.MethodPost, "/events/ev-1/join", nil, "user-2")
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.Join(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestParticipantController_List_paginates(t *testing.T) {
	participants := make([]*domain.Participant, 0, 25)
	for i := 0; i < 25; i++ {
		participants = append(participants, &domain.Participant{EventID: "ev-1", UserID: "user"})
	}
	svc := &fakeEventService{listParticipantsResult: participants}
	c := NewParticipantController(testLogger, svc)

	req := authedRequest(http.MethodGet, "/events/ev-1/participants?page=2&page_size=10", nil, "user-1")
	req.SetPathValue("eventID", "ev-1")
	rec := httptest.NewRecorder()
	c.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data ListParticipantsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data.Items, 10)
	assert.Equal(t, 25, env.Data.Pagination.Total)
	assert.Equal(t, 3, env.Data.Pagination.TotalPages)
	assert.Equal(t, 2, env.Data.Pagination.Page)
}
