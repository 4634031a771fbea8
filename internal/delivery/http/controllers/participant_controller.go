package controllers

import (
	"log/slog"
	"net/http"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/domain"
)

// InviteParticipantRequest is the request body for POST /events/{eventID}/participants.
type InviteParticipantRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// RespondToInvitationRequest is the request body for POST /events/{eventID}/participants/respond.
type RespondToInvitationRequest struct {
	Accept bool `json:"accept"`
}

// RequestToJoinResponse is the data payload for POST /events/{eventID}/join.
// Exactly one of participant and waitlist_entry is set: joining a full event
// lands on the waitlist instead.
type RequestToJoinResponse struct {
	Participant   *domain.Participant   `json:"participant,omitempty"`
	WaitlistEntry *domain.WaitlistEntry `json:"waitlist_entry,omitempty"`
	Waitlisted    bool                  `json:"waitlisted"`
}

// ListParticipantsResponse is the data payload for GET /events/{eventID}/participants.
type ListParticipantsResponse struct {
	Items      []*domain.Participant  `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

type ParticipantController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewParticipantController(logger *slog.Logger, svc domain.EventService) *ParticipantController {
	return &ParticipantController{
		Logger:  logger,
		Service: svc,
	}
}

// Invite godoc
// @Summary Invite a user to an event
// @Description Creates a pending participation for the user and sends an invitation email. Only the organizer can invite.
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body InviteParticipantRequest true "User to invite"
// @Success 201 {object} helpers.APIResponse "data contains the pending participant"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already invited)"
// @Router /events/{eventID}/participants [post]
func (c *ParticipantController) Invite(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req InviteParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	participant, err := c.Service.InviteParticipant(r.Context(), eventID, userID, req.UserID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, participant)
}

// Respond godoc
// @Summary Respond to an invitation
// @Description Accepts or declines the caller's pending invitation. Accepting is idempotent; accepting a full event fails with 409. Declining an accepted spot frees it and auto-promotes the head of the waitlist.
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RespondToInvitationRequest true "accept true/false"
// @Success 200 {object} helpers.APIResponse "data contains the updated participant"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (never invited)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (capacity exceeded)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (removed or terminal event)"
// @Router /events/{eventID}/participants/respond [post]
func (c *ParticipantController) Respond(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req RespondToInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	participant, err := c.Service.RespondToInvitation(r.Context(), eventID, userID, req.Accept)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, participant)
}

// Join godoc
// @Summary Request to join an open event
// @Description Joins a public event directly while capacity remains; once full, the request lands on the waitlist. Private events reject join requests.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains participant or waitlist_entry"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (private event)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already participating)"
// @Router /events/{eventID}/join [post]
func (c *ParticipantController) Join(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	participant, entry, err := c.Service.RequestToJoin(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RequestToJoinResponse{
		Participant:   participant,
		WaitlistEntry: entry,
		Waitlisted:    entry != nil,
	})
}

// Remove godoc
// @Summary Remove a participant
// @Description Removes the user from the event. The organizer may remove anyone; participants may remove themselves. A freed slot auto-promotes the head of the waitlist.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains status"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants/{userID} [delete]
func (c *ParticipantController) Remove(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	userID := r.PathValue("userID")
	if eventID == "" || userID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or userID")
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := c.Service.RemoveParticipant(r.Context(), eventID, caller, userID); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "removed"})
}

// List godoc
// @Summary List participants of an event
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains items and pagination"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants [get]
func (c *ParticipantController) List(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := callerID(w, r); !ok {
		return
	}
	participants, err := c.Service.ListParticipants(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	params := helpers.ParsePagination(r)
	lo, hi := params.Window(len(participants))
	page := participants[lo:hi]
	if page == nil {
		page = []*domain.Participant{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, len(participants))
	helpers.WriteJSONSuccess(w, http.StatusOK, ListParticipantsResponse{Items: page, Pagination: meta})
}
