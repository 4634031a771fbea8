package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"gatherly/internal/delivery/http/controllers"
	"gatherly/internal/delivery/http/middleware"
	"gatherly/internal/domain"
)

// Controllers bundles the handler groups the router mounts.
type Controllers struct {
	Auth        *controllers.AuthController
	Event       *controllers.EventController
	Participant *controllers.ParticipantController
	Vote        *controllers.VoteController
	Waitlist    *controllers.WaitlistController
	Recurrence  *controllers.RecurrenceController
	CheckIn     *controllers.CheckInController
}

// NewRouter initializes the HTTP router with all application routes.
// Everything except signup, login, and swagger requires a Bearer token.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)

	// Events and lifecycle
	mux.HandleFunc("POST /events", auth(c.Event.CreateEvent))
	mux.HandleFunc("GET /events/me", auth(c.Event.ListMyEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(c.Event.GetEvent))
	mux.HandleFunc("POST /events/{eventID}/transition", auth(c.Event.Transition))
	mux.HandleFunc("POST /events/{eventID}/cancel", auth(c.Event.Cancel))
	mux.HandleFunc("POST /events/{eventID}/complete", auth(c.Event.Complete))
	mux.HandleFunc("POST /events/{eventID}/reschedule", auth(c.Event.Reschedule))
	mux.HandleFunc("POST /events/{eventID}/recommendations", auth(c.Event.GenerateRecommendations))

	// Participants
	mux.HandleFunc("POST /events/{eventID}/participants", auth(c.Participant.Invite))
	mux.HandleFunc("GET /events/{eventID}/participants", auth(c.Participant.List))
	mux.HandleFunc("POST /events/{eventID}/participants/respond", auth(c.Participant.Respond))
	mux.HandleFunc("POST /events/{eventID}/join", auth(c.Participant.Join))
	mux.HandleFunc("DELETE /events/{eventID}/participants/{userID}", auth(c.Participant.Remove))

	// Voting
	mux.HandleFunc("POST /events/{eventID}/votes", auth(c.Vote.CastVote))
	mux.HandleFunc("GET /events/{eventID}/votes/stats", auth(c.Vote.GetStats))
	mux.HandleFunc("GET /events/{eventID}/options", auth(c.Vote.ListRecommendations))
	mux.HandleFunc("POST /events/{eventID}/finalize", auth(c.Vote.Finalize))

	// Waitlist
	mux.HandleFunc("POST /events/{eventID}/waitlist", auth(c.Waitlist.Join))
	mux.HandleFunc("GET /events/{eventID}/waitlist", auth(c.Waitlist.List))
	mux.HandleFunc("POST /events/{eventID}/waitlist/{userID}/promote", auth(c.Waitlist.Promote))

	// Check-in and feedback
	mux.HandleFunc("POST /events/{eventID}/checkins", auth(c.CheckIn.CheckIn))
	mux.HandleFunc("GET /events/{eventID}/checkins", auth(c.CheckIn.ListCheckIns))
	mux.HandleFunc("POST /events/{eventID}/feedback", auth(c.CheckIn.SubmitFeedback))
	mux.HandleFunc("GET /events/{eventID}/feedback", auth(c.CheckIn.ListFeedback))

	// Recurring templates
	mux.HandleFunc("POST /templates", auth(c.Recurrence.CreateTemplate))
	mux.HandleFunc("GET /templates/me", auth(c.Recurrence.ListMyTemplates))
	mux.HandleFunc("POST /templates/generate", auth(c.Recurrence.GenerateOccurrences))
	mux.HandleFunc("GET /templates/{templateID}", auth(c.Recurrence.GetTemplate))
	mux.HandleFunc("PUT /templates/{templateID}", auth(c.Recurrence.UpdateTemplate))
	mux.HandleFunc("PATCH /templates/{templateID}/active", auth(c.Recurrence.ToggleTemplate))
	mux.HandleFunc("DELETE /templates/{templateID}", auth(c.Recurrence.DeleteTemplate))
	mux.HandleFunc("POST /templates/{templateID}/events", auth(c.Recurrence.CreateFromTemplate))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
