package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatherly/internal/domain"
)

type eventService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	optionRepo      domain.VenueOptionRepository
	voteRepo        domain.VoteRepository
	userRepo        domain.UserRepository
	prefAggregator  domain.PreferenceAggregator
	recommender     domain.RecommendationGenerator
	waitlist        domain.WaitlistService
	notifier        domain.Notifier
	mailer          domain.Mailer
	logger          *slog.Logger
	contextTimeout  time.Duration
}

// NewEventService wires the lifecycle orchestrator. The waitlist service is
// consulted whenever a decline or removal frees a slot.
func NewEventService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	optionRepo domain.VenueOptionRepository,
	voteRepo domain.VoteRepository,
	userRepo domain.UserRepository,
	prefAggregator domain.PreferenceAggregator,
	recommender domain.RecommendationGenerator,
	waitlist domain.WaitlistService,
	notifier domain.Notifier,
	mailer domain.Mailer,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		optionRepo:      optionRepo,
		voteRepo:        voteRepo,
		userRepo:        userRepo,
		prefAggregator:  prefAggregator,
		recommender:     recommender,
		waitlist:        waitlist,
		notifier:        notifier,
		mailer:          mailer,
		logger:          logger,
		contextTimeout:  timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.OrganizerID == "" {
		return fmt.Errorf("event organizer is required: %w", domain.ErrInvalidInput)
	}
	if event.Title == "" {
		return fmt.Errorf("event title is required: %w", domain.ErrInvalidInput)
	}
	if event.MaxAttendees != nil && *event.MaxAttendees < 1 {
		return fmt.Errorf("max attendees must be positive: %w", domain.ErrInvalidInput)
	}
	if event.AcceptanceThreshold <= 0 || event.AcceptanceThreshold > 1 {
		event.AcceptanceThreshold = domain.DefaultAcceptanceThreshold
	}

	now := time.Now()
	event.Status = domain.StatusInviting
	event.CreatedAt = now
	event.UpdatedAt = now

	return s.eventRepo.Create(ctx, event)
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.GetByID(ctx, eventID)
}

func (s *eventService) ListMyEvents(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.ListByOrganizerID(ctx, organizerID)
}

// systemCaller marks transitions triggered by the scheduler or internal
// chaining rather than an authenticated organizer.
const systemCaller = ""

func (s *eventService) TransitionTo(ctx context.Context, eventID string, target domain.EventStatus, callerID, reason string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if callerID != systemCaller && callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	// Confirmation must record the winning option first, so it is reachable
	// only through finalization, never through the generic transition.
	if target == domain.StatusConfirmed {
		return nil, domain.ErrInvalidOperation
	}

	in, err := s.gatherGuardInput(ctx, event, target, reason)
	if err != nil {
		return nil, err
	}
	return s.applyTransition(ctx, event, target, in)
}

// gatherGuardInput reads the guard facts fresh from storage and, when moving
// out of gathering_preferences, from the preference collaborator.
func (s *eventService) gatherGuardInput(ctx context.Context, event *domain.Event, target domain.EventStatus, reason string) (domain.TransitionInput, error) {
	in := domain.TransitionInput{Now: time.Now(), Reason: reason}

	if target == domain.StatusVoting {
		count, err := s.optionRepo.CountByEventID(ctx, event.ID)
		if err != nil {
			return in, fmt.Errorf("count venue options: %w", err)
		}
		in.OptionCount = count
	}
	if target == domain.StatusAIRecommending {
		if event.Status == domain.StatusGatheringPreferences {
			prefs, err := s.prefAggregator.Aggregate(ctx, event.ID)
			if err != nil {
				return in, fmt.Errorf("aggregate preferences: %w", err)
			}
			in.HasPreferences = !prefs.IsEmpty()
		}
		if event.Status == domain.StatusVoting {
			votes, err := s.voteRepo.CountByEventID(ctx, event.ID)
			if err != nil {
				return in, fmt.Errorf("count votes: %w", err)
			}
			in.HasVotes = votes > 0
		}
	}
	return in, nil
}

// applyTransition runs the state machine, persists under the optimistic
// version check, and dispatches the produced side effects. The status write
// and the side effects are deliberately separate commits: a notification
// failure never rolls back a committed transition.
func (s *eventService) applyTransition(ctx context.Context, event *domain.Event, target domain.EventStatus, in domain.TransitionInput) (*domain.Event, error) {
	expected := event.Version
	cmds, err := event.TransitionTo(target, in)
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, event, expected); err != nil {
		return nil, err
	}
	s.dispatch(ctx, event, cmds)
	return event, nil
}

// dispatch executes transition side effects. All are best-effort: failures
// are logged and never surfaced to the caller.
func (s *eventService) dispatch(ctx context.Context, event *domain.Event, cmds []domain.Command) {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case domain.CommandExpireWaitlist:
			if err := s.waitlist.ExpireForEvent(ctx, event.ID); err != nil {
				s.logger.ErrorContext(ctx, "expire waitlist failed", "event_id", event.ID, "err", err)
			}
		case domain.CommandNotifyParticipants:
			s.notifyParticipants(ctx, event, cmd.Notification)
		}
	}
}

func (s *eventService) notifyParticipants(ctx context.Context, event *domain.Event, kind domain.NotificationKind) {
	participants, err := s.participantRepo.ListByEventID(ctx, event.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list participants for notify failed", "event_id", event.ID, "err", err)
		return
	}
	for _, p := range participants {
		if p.InvitationStatus == domain.InvitationRemoved || p.InvitationStatus == domain.InvitationDeclined {
			continue
		}
		if err := s.notifier.Notify(ctx, p.UserID, event.ID, kind); err != nil {
			s.logger.WarnContext(ctx, "notify failed", "user_id", p.UserID, "event_id", event.ID, "kind", kind, "err", err)
		}
	}
}

func (s *eventService) GenerateRecommendations(ctx context.Context, eventID, callerID string, lat, lng, radiusKm *float64) (*domain.RecommendationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}

	regenerating := false
	switch event.Status {
	case domain.StatusGatheringPreferences:
		// Normal entry: move into ai_recommending first.
		in, err := s.gatherGuardInput(ctx, event, domain.StatusAIRecommending, "")
		if err != nil {
			return nil, err
		}
		if _, err := s.applyTransition(ctx, event, domain.StatusAIRecommending, in); err != nil {
			return nil, err
		}
	case domain.StatusAIRecommending:
		// Re-invocation: an idempotent re-fetch, not an error. If candidates
		// already exist, return them and retry only the pending transition,
		// without re-applying generation side effects.
		existing, err := s.optionRepo.ListByEventID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("list venue options: %w", err)
		}
		if len(existing) > 0 {
			domain.RankVenueOptions(existing)
			return s.tryVotingTransition(ctx, event, existing)
		}
	case domain.StatusVoting:
		in, err := s.gatherGuardInput(ctx, event, domain.StatusAIRecommending, "")
		if err != nil {
			return nil, err
		}
		if _, err := s.applyTransition(ctx, event, domain.StatusAIRecommending, in); err != nil {
			return nil, err
		}
		regenerating = true
	default:
		return nil, domain.ErrInvalidOperation
	}

	prefs, err := s.prefAggregator.Aggregate(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("aggregate preferences: %w", err)
	}
	options, err := s.recommender.Generate(ctx, eventID, prefs, lat, lng, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("generate recommendations: %w", err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("recommendation service produced no candidates: %w", domain.ErrInvalidTransition)
	}

	if regenerating {
		if err := s.optionRepo.DeleteByEventID(ctx, eventID); err != nil {
			return nil, fmt.Errorf("clear previous venue options: %w", err)
		}
	}
	now := time.Now()
	for _, o := range options {
		o.EventID = eventID
		o.CreatedAt = now
	}
	if err := s.optionRepo.CreateBatch(ctx, options); err != nil {
		return nil, fmt.Errorf("persist venue options: %w", err)
	}
	domain.RankVenueOptions(options)

	return s.tryVotingTransition(ctx, event, options)
}

// tryVotingTransition attempts ai_recommending -> voting and reports partial
// success: options already persisted are returned even when the transition
// lost a race, so they are never discarded.
func (s *eventService) tryVotingTransition(ctx context.Context, event *domain.Event, options []*domain.VenueOption) (*domain.RecommendationOutcome, error) {
	outcome := &domain.RecommendationOutcome{Event: event, Options: options}

	// Reload so the version check sees any concurrent transition.
	fresh, err := s.eventRepo.GetByID(ctx, event.ID)
	if err != nil {
		outcome.TransitionErr = err.Error()
		return outcome, nil
	}
	in := domain.TransitionInput{Now: time.Now(), OptionCount: len(options)}
	updated, err := s.applyTransition(ctx, fresh, domain.StatusVoting, in)
	if err != nil {
		outcome.TransitionErr = err.Error()
		return outcome, nil
	}
	outcome.Event = updated
	outcome.TransitionedToVote = true
	return outcome, nil
}

func (s *eventService) Cancel(ctx context.Context, eventID, callerID, reason string) (*domain.Event, error) {
	return s.TransitionTo(ctx, eventID, domain.StatusCancelled, callerID, reason)
}

func (s *eventService) Complete(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	forced := callerID != systemCaller
	if forced && callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	in := domain.TransitionInput{Now: time.Now(), Forced: forced}
	return s.applyTransition(ctx, event, domain.StatusCompleted, in)
}

func (s *eventService) Reschedule(ctx context.Context, eventID, callerID string, newDate time.Time) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	if event.Status.IsTerminal() {
		return nil, domain.ErrInvalidOperation
	}
	if event.Status != domain.StatusConfirmed {
		return nil, domain.ErrInvalidOperation
	}

	expected := event.Version
	event.ScheduledDate = newDate
	event.RescheduleCount++
	event.UpdatedAt = time.Now()
	if err := s.eventRepo.Update(ctx, event, expected); err != nil {
		return nil, err
	}
	s.notifyParticipants(ctx, event, domain.NotifyEventRescheduled)
	return event, nil
}

func (s *eventService) InviteParticipant(ctx context.Context, eventID, callerID, userID string) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	if event.Status.IsTerminal() {
		return nil, domain.ErrInvalidOperation
	}
	if _, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	p := domain.NewParticipant(eventID, userID, time.Now())
	if err := s.participantRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}

	if err := s.notifier.Notify(ctx, userID, eventID, domain.NotifyInvitation); err != nil {
		s.logger.WarnContext(ctx, "notify failed", "user_id", userID, "event_id", eventID, "err", err)
	}
	s.sendInvitationEmail(ctx, event, userID)
	return p, nil
}

// sendInvitationEmail is best-effort; a missing user or mail failure only
// logs.
func (s *eventService) sendInvitationEmail(ctx context.Context, event *domain.Event, userID string) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		return
	}
	organizerName := "The organizer"
	if organizer, err := s.userRepo.GetByID(ctx, event.OrganizerID); err == nil && organizer != nil && organizer.Name != "" {
		organizerName = organizer.Name
	}
	data := &domain.EventInvitationEmailData{
		Email:         user.Email,
		OrganizerName: organizerName,
		EventTitle:    event.Title,
		EventID:       event.ID,
	}
	if err := s.mailer.SendEventInvitation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "invitation email failed", "user_id", userID, "event_id", event.ID, "err", err)
	}
}

func (s *eventService) RespondToInvitation(ctx context.Context, eventID, userID string, accept bool) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status.IsTerminal() {
		return nil, domain.ErrInvalidOperation
	}
	p, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if p.InvitationStatus == domain.InvitationRemoved {
		return nil, domain.ErrInvalidOperation
	}

	now := time.Now()
	if accept {
		if p.InvitationStatus == domain.InvitationAccepted {
			return p, nil
		}
		if err := s.checkCapacity(ctx, event); err != nil {
			return nil, err
		}
		return s.participantRepo.UpdateStatus(ctx, eventID, userID, domain.InvitationAccepted, now)
	}

	wasAccepted := p.InvitationStatus == domain.InvitationAccepted
	updated, err := s.participantRepo.UpdateStatus(ctx, eventID, userID, domain.InvitationDeclined, now)
	if err != nil {
		return nil, err
	}
	if wasAccepted {
		s.promoteFreedSlot(ctx, event)
	}
	return updated, nil
}

func (s *eventService) RequestToJoin(ctx context.Context, eventID, userID string) (*domain.Participant, *domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event.IsPrivate {
		return nil, nil, domain.ErrForbidden
	}
	if event.Status.IsTerminal() {
		return nil, nil, domain.ErrInvalidOperation
	}
	if _, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("get participant: %w", err)
	}

	// A full event overflows onto the waitlist instead of failing outright.
	if err := s.checkCapacity(ctx, event); err != nil {
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			return nil, nil, err
		}
		entry, wlErr := s.waitlist.Join(ctx, eventID, userID, nil, nil)
		if wlErr != nil {
			return nil, nil, wlErr
		}
		return nil, entry, nil
	}

	now := time.Now()
	p := domain.NewParticipant(eventID, userID, now)
	if err := s.participantRepo.Create(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("create participant: %w", err)
	}
	accepted, err := s.participantRepo.UpdateStatus(ctx, eventID, userID, domain.InvitationAccepted, now)
	if err != nil {
		return nil, nil, err
	}
	return accepted, nil, nil
}

func (s *eventService) RemoveParticipant(ctx context.Context, eventID, callerID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if callerID != event.OrganizerID {
		return domain.ErrForbidden
	}
	p, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return err
	}
	wasAccepted := p.InvitationStatus == domain.InvitationAccepted
	if _, err := s.participantRepo.UpdateStatus(ctx, eventID, userID, domain.InvitationRemoved, time.Now()); err != nil {
		return err
	}
	if wasAccepted {
		s.promoteFreedSlot(ctx, event)
	}
	return nil
}

func (s *eventService) ListParticipants(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	participants, err := s.participantRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	if participants == nil {
		participants = []*domain.Participant{}
	}
	return participants, nil
}

// checkCapacity returns ErrCapacityExceeded when the event is capped and
// full. The accepted count is read fresh on every call.
func (s *eventService) checkCapacity(ctx context.Context, event *domain.Event) error {
	if event.MaxAttendees == nil {
		return nil
	}
	accepted, err := s.participantRepo.CountAccepted(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("count accepted participants: %w", err)
	}
	if accepted >= *event.MaxAttendees {
		return domain.ErrCapacityExceeded
	}
	return nil
}

// promoteFreedSlot tries to fill a slot that just opened with the head of the
// waitlist. A failed promotion leaves the slot open; the next mutating
// operation retries.
func (s *eventService) promoteFreedSlot(ctx context.Context, event *domain.Event) {
	if event.MaxAttendees == nil {
		return
	}
	if _, err := s.waitlist.PromoteHead(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "automatic waitlist promotion failed", "event_id", event.ID, "err", err)
	}
}
