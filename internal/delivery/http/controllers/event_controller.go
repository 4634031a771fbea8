package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title               string    `json:"title" validate:"required"`
	Description         string    `json:"description"`
	EventType           string    `json:"event_type" validate:"required"`
	ScheduledDate       time.Time `json:"scheduled_date" validate:"required"`
	Timezone            string    `json:"timezone"`
	DurationMinutes     int       `json:"duration_minutes" validate:"min=0"`
	ExpectedAttendees   int       `json:"expected_attendees" validate:"min=0"`
	MaxAttendees        *int      `json:"max_attendees"`
	BudgetMin           *float64  `json:"budget_min"`
	BudgetMax           *float64  `json:"budget_max"`
	AcceptanceThreshold *float64  `json:"acceptance_threshold"`
	IsPrivate           bool      `json:"is_private"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.MaxAttendees != nil && *c.MaxAttendees < 1 {
		errs = append(errs, "max_attendees must be at least 1")
	}
	if c.AcceptanceThreshold != nil && (*c.AcceptanceThreshold <= 0 || *c.AcceptanceThreshold > 1) {
		errs = append(errs, "acceptance_threshold must be in (0, 1]")
	}
	if c.BudgetMin != nil && c.BudgetMax != nil && *c.BudgetMin > *c.BudgetMax {
		errs = append(errs, "budget_min cannot exceed budget_max")
	}
	return errs
}

// TransitionRequest is the request body for POST /events/{eventID}/transition.
type TransitionRequest struct {
	Target string `json:"target" validate:"required"`
	Reason string `json:"reason"`
}

// CancelEventRequest is the request body for POST /events/{eventID}/cancel.
type CancelEventRequest struct {
	Reason string `json:"reason"`
}

// RescheduleRequest is the request body for POST /events/{eventID}/reschedule.
type RescheduleRequest struct {
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
}

// GenerateRecommendationsRequest is the request body for POST /events/{eventID}/recommendations.
type GenerateRecommendationsRequest struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	RadiusKm *float64 `json:"radius_km"`
}

// Validate implements Validator.
func (g GenerateRecommendationsRequest) Validate() []string {
	var errs []string
	if g.Lat != nil && (*g.Lat < -90 || *g.Lat > 90) {
		errs = append(errs, "lat must be between -90 and 90")
	}
	if g.Lng != nil && (*g.Lng < -180 || *g.Lng > 180) {
		errs = append(errs, "lng must be between -180 and 180")
	}
	if g.RadiusKm != nil && *g.RadiusKm <= 0 {
		errs = append(errs, "radius_km must be positive")
	}
	return errs
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Create a new event in the inviting state. The authenticated user becomes the organizer.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event := domain.NewEvent(userID, req.Title, req.Description, req.EventType,
		req.ScheduledDate, req.Timezone, req.DurationMinutes, req.ExpectedAttendees, time.Now())
	event.MaxAttendees = req.MaxAttendees
	event.BudgetMin = req.BudgetMin
	event.BudgetMax = req.BudgetMax
	event.IsPrivate = req.IsPrivate
	if req.AcceptanceThreshold != nil {
		event.AcceptanceThreshold = *req.AcceptanceThreshold
	}
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := callerID(w, r); !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListMyEvents godoc
// @Summary List events organized by the current user
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/me [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListMyEvents(r.Context(), userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// Transition godoc
// @Summary Move an event to another lifecycle state
// @Description Drives the event along the lifecycle graph. Only the organizer may trigger transitions. reason is recorded for cancellations and ignored otherwise.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body TransitionRequest true "Target state"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (unknown target)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (edge not allowed or version conflict)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (votes already cast)"
// @Router /events/{eventID}/transition [post]
func (c *EventController) Transition(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req TransitionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.TransitionTo(r.Context(), eventID, domain.EventStatus(req.Target), userID, req.Reason)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// Cancel godoc
// @Summary Cancel an event
// @Description Cancels the event from any non-terminal state. Waiting waitlist entries are expired and participants notified.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CancelEventRequest true "Cancellation reason (optional)"
// @Success 200 {object} helpers.APIResponse "data contains the cancelled event"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already terminal)"
// @Router /events/{eventID}/cancel [post]
func (c *EventController) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req CancelEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.Cancel(r.Context(), eventID, userID, req.Reason)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// Complete godoc
// @Summary Complete a confirmed event
// @Description Marks a confirmed event completed. The organizer may force completion before the scheduled end.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the completed event"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not confirmed)"
// @Router /events/{eventID}/complete [post]
func (c *EventController) Complete(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.Complete(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// Reschedule godoc
// @Summary Reschedule a confirmed event
// @Description Moves the scheduled date of a confirmed event. The event stays confirmed; reschedule_count is incremented and participants are notified.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RescheduleRequest true "New scheduled date"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (not confirmed)"
// @Router /events/{eventID}/reschedule [post]
func (c *EventController) Reschedule(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req RescheduleRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.Reschedule(r.Context(), eventID, userID, req.ScheduledDate)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// GenerateRecommendations godoc
// @Summary Generate venue recommendations
// @Description Aggregates invitee preferences, asks the recommendation service for venue candidates, attaches them to the event, and attempts the transition into voting. Returns the persisted options even when the follow-up transition loses a concurrent race (transition_error is set instead).
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body GenerateRecommendationsRequest true "Optional search center and radius"
// @Success 200 {object} helpers.APIResponse "data contains the outcome: event, options, transitioned_to_voting"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (no preferences or empty result)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (votes already cast)"
// @Router /events/{eventID}/recommendations [post]
func (c *EventController) GenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req GenerateRecommendationsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	outcome, err := c.Service.GenerateRecommendations(r.Context(), eventID, userID, req.Lat, req.Lng, req.RadiusKm)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, outcome)
}
