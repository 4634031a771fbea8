package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/domain"
)

// TemplateRequest is the request body for creating and updating recurring
// event templates.
type TemplateRequest struct {
	Title             string     `json:"title" validate:"required"`
	Description       string     `json:"description"`
	EventType         string     `json:"event_type" validate:"required"`
	Timezone          string     `json:"timezone"`
	DurationMinutes   int        `json:"duration_minutes" validate:"min=0"`
	ExpectedAttendees int        `json:"expected_attendees" validate:"min=0"`
	MaxAttendees      *int       `json:"max_attendees"`
	Pattern           string     `json:"pattern" validate:"required,oneof=daily weekly monthly yearly"`
	Interval          int        `json:"interval" validate:"min=0"`
	DaysOfWeek        []int      `json:"days_of_week"`
	DayOfMonth        int        `json:"day_of_month"`
	MonthOfYear       int        `json:"month_of_year"`
	StartDate         time.Time  `json:"start_date" validate:"required"`
	EndDate           *time.Time `json:"end_date"`
	OccurrenceCount   *int       `json:"occurrence_count"`
	DaysInAdvance     int        `json:"days_in_advance" validate:"min=0"`
	AutoCreateEvents  bool       `json:"auto_create_events"`
}

// Validate implements Validator.
func (t TemplateRequest) Validate() []string {
	var errs []string
	for _, d := range t.DaysOfWeek {
		if d < 0 || d > 6 {
			errs = append(errs, "days_of_week values must be between 0 (Sunday) and 6 (Saturday)")
			break
		}
	}
	if t.OccurrenceCount != nil && *t.OccurrenceCount < 1 {
		errs = append(errs, "occurrence_count must be at least 1")
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		errs = append(errs, "end_date cannot be before start_date")
	}
	return errs
}

func (t TemplateRequest) toDomain(organizerID string, now time.Time) *domain.RecurringEventTemplate {
	days := make([]time.Weekday, 0, len(t.DaysOfWeek))
	for _, d := range t.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}
	return &domain.RecurringEventTemplate{
		OrganizerID:       organizerID,
		Title:             t.Title,
		Description:       t.Description,
		EventType:         t.EventType,
		Timezone:          t.Timezone,
		DurationMinutes:   t.DurationMinutes,
		ExpectedAttendees: t.ExpectedAttendees,
		MaxAttendees:      t.MaxAttendees,
		Pattern:           domain.RecurrencePattern(t.Pattern),
		Interval:          t.Interval,
		DaysOfWeek:        days,
		DayOfMonth:        t.DayOfMonth,
		MonthOfYear:       time.Month(t.MonthOfYear),
		StartDate:         t.StartDate,
		EndDate:           t.EndDate,
		OccurrenceCount:   t.OccurrenceCount,
		DaysInAdvance:     t.DaysInAdvance,
		AutoCreateEvents:  t.AutoCreateEvents,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ToggleTemplateRequest is the request body for PATCH /templates/{templateID}/active.
type ToggleTemplateRequest struct {
	Active bool `json:"active"`
}

// CreateFromTemplateRequest is the request body for POST /templates/{templateID}/events.
type CreateFromTemplateRequest struct {
	OccurrenceDate time.Time `json:"occurrence_date" validate:"required"`
}

// GenerateOccurrencesResponse is the data payload for POST /templates/generate.
type GenerateOccurrencesResponse struct {
	Created []*domain.Event `json:"created"`
	Count   int             `json:"count"`
}

type RecurrenceController struct {
	Logger  *slog.Logger
	Service domain.RecurrenceService
}

func NewRecurrenceController(logger *slog.Logger, svc domain.RecurrenceService) *RecurrenceController {
	return &RecurrenceController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateTemplate godoc
// @Summary Create a recurring event template
// @Description Creates a recurrence rule from which concrete events are materialized. The authenticated user becomes the organizer of every generated event.
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body TemplateRequest true "Template data"
// @Success 201 {object} helpers.APIResponse "data contains the created template"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (pattern-specific fields missing)"
// @Router /templates [post]
func (c *RecurrenceController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	t := req.toDomain(userID, time.Now())
	if err := c.Service.CreateTemplate(r.Context(), t); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, t)
}

// GetTemplate godoc
// @Summary Get a template by ID
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the template"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID} [get]
func (c *RecurrenceController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if templateID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing templateID")
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	t, err := c.Service.GetTemplate(r.Context(), templateID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, t)
}

// ListMyTemplates godoc
// @Summary List templates owned by the current user
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of templates"
// @Router /templates/me [get]
func (c *RecurrenceController) ListMyTemplates(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	templates, err := c.Service.ListMyTemplates(r.Context(), userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if templates == nil {
		templates = []*domain.RecurringEventTemplate{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, templates)
}

// UpdateTemplate godoc
// @Summary Update a template
// @Description Replaces the template's rule. Already materialized events are unaffected; only future generation follows the new rule.
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID (UUID)"
// @Param body body TemplateRequest true "Template data"
// @Success 200 {object} helpers.APIResponse "data contains the updated template"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID} [put]
func (c *RecurrenceController) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if templateID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing templateID")
		return
	}
	var req TemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	t := req.toDomain(userID, time.Now())
	t.ID = templateID
	if err := c.Service.UpdateTemplate(r.Context(), t, userID); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, t)
}

// ToggleTemplate godoc
// @Summary Activate or deactivate a template
// @Description Deactivated templates are skipped by the occurrence scheduler.
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID (UUID)"
// @Param body body ToggleTemplateRequest true "active true/false"
// @Success 200 {object} helpers.APIResponse "data contains the updated template"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID}/active [patch]
func (c *RecurrenceController) ToggleTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if templateID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing templateID")
		return
	}
	var req ToggleTemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	t, err := c.Service.ToggleTemplate(r.Context(), templateID, userID, req.Active)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, t)
}

// DeleteTemplate godoc
// @Summary Delete a template
// @Description Deletes the rule. Already materialized events keep their detached template reference behavior and are not touched.
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains status"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID} [delete]
func (c *RecurrenceController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if templateID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing templateID")
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteTemplate(r.Context(), templateID, userID); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// CreateFromTemplate godoc
// @Summary Materialize one event from a template
// @Description Creates a single event for the given occurrence date regardless of auto_create_events. Idempotent per (template, date): a second call fails with 409.
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID (UUID)"
// @Param body body CreateFromTemplateRequest true "Occurrence date"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (occurrence already materialized)"
// @Router /templates/{templateID}/events [post]
func (c *RecurrenceController) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if templateID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing templateID")
		return
	}
	var req CreateFromTemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.CreateFromTemplate(r.Context(), templateID, userID, req.OccurrenceDate)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GenerateOccurrences godoc
// @Summary Run the occurrence scheduler
// @Description Materializes every due occurrence for every active template with auto_create_events enabled. Idempotent: re-running with the same clock creates nothing new.
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the created events"
// @Router /templates/generate [post]
func (c *RecurrenceController) GenerateOccurrences(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	created, err := c.Service.GenerateDueOccurrences(r.Context(), time.Now())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if created == nil {
		created = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, GenerateOccurrencesResponse{Created: created, Count: len(created)})
}
