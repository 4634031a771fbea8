package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatherly/internal/domain"
)

type voteService struct {
	eventRepo       domain.EventRepository
	optionRepo      domain.VenueOptionRepository
	voteRepo        domain.VoteRepository
	participantRepo domain.ParticipantRepository
	places          domain.PlaceReader
	notifier        domain.Notifier
	logger          *slog.Logger
	contextTimeout  time.Duration
}

// NewVoteService wires the vote tally and finalization operations.
func NewVoteService(
	eventRepo domain.EventRepository,
	optionRepo domain.VenueOptionRepository,
	voteRepo domain.VoteRepository,
	participantRepo domain.ParticipantRepository,
	places domain.PlaceReader,
	notifier domain.Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.VoteService {
	return &voteService{
		eventRepo:       eventRepo,
		optionRepo:      optionRepo,
		voteRepo:        voteRepo,
		participantRepo: participantRepo,
		places:          places,
		notifier:        notifier,
		logger:          logger,
		contextTimeout:  timeout,
	}
}

func (s *voteService) CastVote(ctx context.Context, eventID, optionID, voterID string, value float64, comment *string) (*domain.Vote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.StatusVoting {
		return nil, domain.ErrInvalidOperation
	}

	option, err := s.optionRepo.GetByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if option.EventID != eventID {
		return nil, domain.ErrNotFound
	}

	if err := s.ensureCanVote(ctx, event, voterID); err != nil {
		return nil, err
	}

	now := time.Now()
	vote := &domain.Vote{
		EventID:   eventID,
		OptionID:  optionID,
		VoterID:   voterID,
		Value:     value,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The (event_id, voter_id) unique constraint makes this a move, never a
	// duplicate, even under concurrent re-votes.
	if err := s.voteRepo.Upsert(ctx, vote); err != nil {
		return nil, fmt.Errorf("upsert vote: %w", err)
	}
	return vote, nil
}

// ensureCanVote allows the organizer and accepted participants.
func (s *voteService) ensureCanVote(ctx context.Context, event *domain.Event, voterID string) error {
	if voterID == event.OrganizerID {
		return nil
	}
	p, err := s.participantRepo.GetByEventAndUser(ctx, event.ID, voterID)
	if err != nil {
		return domain.ErrForbidden
	}
	if p.InvitationStatus != domain.InvitationAccepted {
		return domain.ErrForbidden
	}
	return nil
}

func (s *voteService) GetVoteStats(ctx context.Context, eventID string) ([]*domain.OptionTally, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	options, err := s.optionRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list venue options: %w", err)
	}
	tallies, err := s.voteRepo.TallyByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}

	byOption := make(map[string]*domain.OptionTally, len(tallies))
	for _, t := range tallies {
		byOption[t.OptionID] = t
	}

	// One tally per option, zeros included, in the deterministic ranking
	// order.
	domain.RankVenueOptions(options)
	out := make([]*domain.OptionTally, 0, len(options))
	for _, o := range options {
		if t, ok := byOption[o.ID]; ok {
			out = append(out, t)
			continue
		}
		out = append(out, &domain.OptionTally{OptionID: o.ID})
	}
	return out, nil
}

func (s *voteService) ListRecommendations(ctx context.Context, eventID string) ([]*domain.VenueOption, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	options, err := s.optionRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list venue options: %w", err)
	}
	if options == nil {
		options = []*domain.VenueOption{}
	}
	domain.RankVenueOptions(options)
	return options, nil
}

func (s *voteService) Finalize(ctx context.Context, eventID, optionID, organizerID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if organizerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	if event.Status != domain.StatusVoting {
		return nil, domain.ErrInvalidTransition
	}

	option, err := s.optionRepo.GetByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if option.EventID != eventID {
		return nil, domain.ErrNotFound
	}

	// Internal options must still resolve against the place collaborator; a
	// stale reference cannot be confirmed. Lookup outages are another matter:
	// the option snapshot already carries what confirmation needs, so they
	// log instead of blocking.
	if option.PlaceID != nil {
		if _, err := s.places.GetByID(ctx, *option.PlaceID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrInvalidOperation
			}
			s.logger.WarnContext(ctx, "place lookup failed", "place_id", *option.PlaceID, "err", err)
		}
	}

	expected := event.Version
	// Purely external selections keep FinalPlaceID null, the option record
	// carries the snapshot.
	event.FinalPlaceID = option.PlaceID
	cmds, err := event.TransitionTo(domain.StatusConfirmed, domain.TransitionInput{Now: time.Now()})
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, event, expected); err != nil {
		return nil, err
	}
	s.dispatchNotifications(ctx, event, cmds)
	return event, nil
}

func (s *voteService) dispatchNotifications(ctx context.Context, event *domain.Event, cmds []domain.Command) {
	for _, cmd := range cmds {
		if cmd.Kind != domain.CommandNotifyParticipants {
			continue
		}
		participants, err := s.participantRepo.ListByEventID(ctx, event.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "list participants for notify failed", "event_id", event.ID, "err", err)
			continue
		}
		for _, p := range participants {
			if p.InvitationStatus != domain.InvitationAccepted {
				continue
			}
			if err := s.notifier.Notify(ctx, p.UserID, event.ID, cmd.Notification); err != nil {
				s.logger.WarnContext(ctx, "notify failed", "user_id", p.UserID, "event_id", event.ID, "err", err)
			}
		}
	}
}
