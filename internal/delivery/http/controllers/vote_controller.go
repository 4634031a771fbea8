package controllers

import (
	"log/slog"
	"net/http"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/domain"
)

// CastVoteRequest is the request body for POST /events/{eventID}/votes.
type CastVoteRequest struct {
	OptionID string  `json:"option_id" validate:"required"`
	Value    float64 `json:"value"`
	Comment  *string `json:"comment"`
}

// FinalizeRequest is the request body for POST /events/{eventID}/finalize.
type FinalizeRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}

type VoteController struct {
	Logger  *slog.Logger
	Service domain.VoteService
}

func NewVoteController(logger *slog.Logger, svc domain.VoteService) *VoteController {
	return &VoteController{
		Logger:  logger,
		Service: svc,
	}
}

// CastVote godoc
// @Summary Cast or move a vote
// @Description Upserts the caller's vote for a venue option. Voting again moves the vote; it never creates a second one. The event must be in voting and the caller an accepted participant or the organizer.
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CastVoteRequest true "Vote"
// @Success 200 {object} helpers.APIResponse "data contains the stored vote"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not an accepted participant)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (event or foreign option)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (event not in voting)"
// @Router /events/{eventID}/votes [post]
func (c *VoteController) CastVote(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req CastVoteRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	vote, err := c.Service.CastVote(r.Context(), eventID, req.OptionID, userID, req.Value, req.Comment)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, vote)
}

// GetStats godoc
// @Summary Get per-option vote tallies
// @Description Returns one tally per venue option, including zero tallies for options nobody has voted for, in the deterministic ranking order.
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of tallies"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/votes/stats [get]
func (c *VoteController) GetStats(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := callerID(w, r); !ok {
		return
	}
	stats, err := c.Service.GetVoteStats(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if stats == nil {
		stats = []*domain.OptionTally{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListRecommendations godoc
// @Summary List venue options for an event
// @Description Returns the event's venue options in the deterministic ranking order.
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of venue options"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/options [get]
func (c *VoteController) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := callerID(w, r); !ok {
		return
	}
	options, err := c.Service.ListRecommendations(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if options == nil {
		options = []*domain.VenueOption{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, options)
}

// Finalize godoc
// @Summary Finalize the venue choice
// @Description Records the organizer's chosen option and confirms the event. Participants are notified. The tally is advisory; the organizer may pick any option of the event.
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body FinalizeRequest true "Chosen option"
// @Success 200 {object} helpers.APIResponse "data contains the confirmed event"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (event or foreign option)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event not in voting)"
// @Router /events/{eventID}/finalize [post]
func (c *VoteController) Finalize(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req FinalizeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.Finalize(r.Context(), eventID, req.OptionID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
