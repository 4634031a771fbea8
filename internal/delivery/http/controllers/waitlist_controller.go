package controllers

import (
	"log/slog"
	"net/http"

	"gatherly/internal/delivery/http/helpers"
	"gatherly/internal/domain"
)

// JoinWaitlistRequest is the request body for POST /events/{eventID}/waitlist.
// Priority is optional; when omitted the entry is appended in join order.
type JoinWaitlistRequest struct {
	Priority *int    `json:"priority"`
	Notes    *string `json:"notes"`
}

// ListWaitlistResponse is the data payload for GET /events/{eventID}/waitlist.
type ListWaitlistResponse struct {
	Items      []*domain.WaitlistEntry `json:"items"`
	Pagination helpers.PaginationMeta  `json:"pagination"`
}

type WaitlistController struct {
	Logger  *slog.Logger
	Service domain.WaitlistService
}

func NewWaitlistController(logger *slog.Logger, svc domain.WaitlistService) *WaitlistController {
	return &WaitlistController{
		Logger:  logger,
		Service: svc,
	}
}

// Join godoc
// @Summary Join the waitlist of a full event
// @Description Appends the caller to the queue of a capacity-limited event. Lower priority values are served first; equal priorities in join order. Joining an uncapped event is rejected.
// @Tags waitlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body JoinWaitlistRequest true "Optional priority and notes"
// @Success 201 {object} helpers.APIResponse "data contains the waitlist entry"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already queued)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (uncapped or terminal event, or already accepted)"
// @Router /events/{eventID}/waitlist [post]
func (c *WaitlistController) Join(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req JoinWaitlistRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	entry, err := c.Service.Join(r.Context(), eventID, userID, req.Priority, req.Notes)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, entry)
}

// List godoc
// @Summary List the waitlist of an event
// @Description Returns the queue in serving order: priority ascending, join time breaking ties.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains items and pagination"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/waitlist [get]
func (c *WaitlistController) List(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := callerID(w, r); !ok {
		return
	}
	entries, err := c.Service.List(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	params := helpers.ParsePagination(r)
	lo, hi := params.Window(len(entries))
	page := entries[lo:hi]
	if page == nil {
		page = []*domain.WaitlistEntry{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, len(entries))
	helpers.WriteJSONSuccess(w, http.StatusOK, ListWaitlistResponse{Items: page, Pagination: meta})
}

// Promote godoc
// @Summary Promote a waitlisted user
// @Description Moves the named entry to promoted and the user to accepted participation. Only the organizer may promote, in any order; capacity is always enforced.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID (UUID) of the waitlisted user"
// @Success 200 {object} helpers.APIResponse "data contains the promoted entry"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (capacity exceeded)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (entry not waiting)"
// @Router /events/{eventID}/waitlist/{userID}/promote [post]
func (c *WaitlistController) Promote(w http.ResponseWriter, r *http.Request) {
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
	entry, err := c.Service.Promote(r.Context(), eventID, userID, caller)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, entry)
}
