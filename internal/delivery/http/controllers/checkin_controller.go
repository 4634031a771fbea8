package controllers

import (
	"log/slog"
	"net/http"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/domain"
)

// CheckInRequest is the request body for POST /events/{eventID}/checkins.
// Geolocation is advisory only and never validated against the venue.
type CheckInRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Validate implements Validator.
func (c CheckInRequest) Validate() []string {
	var errs []string
	if c.Lat != nil && (*c.Lat < -90 || *c.Lat > 90) {
		errs = append(errs, "lat must be between -90 and 90")
	}
	if c.Lng != nil && (*c.Lng < -180 || *c.Lng > 180) {
		errs = append(errs, "lng must be between -180 and 180")
	}
	return errs
}

// SubmitFeedbackRequest is the request body for POST /events/{eventID}/feedback.
type SubmitFeedbackRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment"`
}

type CheckInController struct {
	Logger  *slog.Logger
	Service domain.CheckInService
}

func NewCheckInController(logger *slog.Logger, svc domain.CheckInService) *CheckInController {
	return &CheckInController{
		Logger:  logger,
		Service: svc,
	}
}

// CheckIn godoc
// @Summary Check in to an event
// @Description Records the caller's arrival. The event must be confirmed or completed and the caller an accepted participant. A second check-in fails with 409.
// @Tags checkins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CheckInRequest true "Optional geolocation"
// @Success 201 {object} helpers.APIResponse "data contains the check-in"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not an accepted participant)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already checked in)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (event not confirmed or completed)"
// @Router /events/{eventID}/checkins [post]
func (c *CheckInController) CheckIn(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req CheckInRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	checkin, err := c.Service.CheckIn(r.Context(), eventID, userID, req.Lat, req.Lng)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, checkin)
}

// ListCheckIns godoc
// @Summary List check-ins for an event
// @Description Returns all check-ins. Organizer only.
// @Tags checkins
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of check-ins"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/checkins [get]
func (c *CheckInController) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	checkins, err := c.Service.ListCheckIns(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if checkins == nil {
		checkins = []*domain.CheckIn{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, checkins)
}

// SubmitFeedback godoc
// @Summary Submit feedback for a completed event
// @Description Upserts the caller's rating (1-5) and optional comment. Resubmission replaces the previous feedback.
// @Tags checkins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body SubmitFeedbackRequest true "Rating and optional comment"
// @Success 200 {object} helpers.APIResponse "data contains the stored feedback"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (rating out of range)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not an accepted participant)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (event not completed)"
// @Router /events/{eventID}/feedback [post]
func (c *CheckInController) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req SubmitFeedbackRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	feedback, err := c.Service.SubmitFeedback(r.Context(), eventID, userID, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, feedback)
}

// ListFeedback godoc
// @Summary List feedback for an event
// @Description Returns all feedback rows. Organizer only.
// @Tags checkins
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of feedback"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/feedback [get]
func (c *CheckInController) ListFeedback(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	feedback, err := c.Service.ListFeedback(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if feedback == nil {
		feedback = []*domain.Feedback{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, feedback)
}
