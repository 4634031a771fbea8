package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatherly/internal/domain"
)

type waitlistService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	waitlistRepo    domain.WaitlistRepository
	notifier        domain.Notifier
	logger          *slog.Logger
	contextTimeout  time.Duration
}

// NewWaitlistService wires the capacity-constrained waitlist operations.
func NewWaitlistService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	waitlistRepo domain.WaitlistRepository,
	notifier domain.Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.WaitlistService {
	return &waitlistService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		waitlistRepo:    waitlistRepo,
		notifier:        notifier,
		logger:          logger,
		contextTimeout:  timeout,
	}
}

func (s *waitlistService) Join(ctx context.Context, eventID, userID string, priority *int, notes *string) (*domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status.IsTerminal() {
		return nil, domain.ErrInvalidOperation
	}
	// Waitlisting an uncapped event is meaningless: no slot ever frees.
	if event.MaxAttendees == nil {
		return nil, domain.ErrInvalidOperation
	}

	if p, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		if p.InvitationStatus == domain.InvitationAccepted {
			return nil, domain.ErrInvalidOperation
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	if _, err := s.waitlistRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get waitlist entry: %w", err)
	}

	prio := 0
	if priority != nil {
		prio = *priority
	} else {
		next, err := s.waitlistRepo.NextPriority(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("next waitlist priority: %w", err)
		}
		prio = next
	}

	now := time.Now()
	entry := &domain.WaitlistEntry{
		EventID:   eventID,
		UserID:    userID,
		Priority:  prio,
		Status:    domain.WaitlistWaiting,
		Notes:     notes,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if err := s.waitlistRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create waitlist entry: %w", err)
	}
	return entry, nil
}

func (s *waitlistService) List(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	entries, err := s.waitlistRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	if entries == nil {
		entries = []*domain.WaitlistEntry{}
	}
	return entries, nil
}

func (s *waitlistService) Promote(ctx context.Context, eventID, userID, callerID string) (*domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	entry, err := s.waitlistRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	// Organizer override: out-of-order promotion is permitted here, unlike
	// the automatic path.
	return s.promoteEntry(ctx, event, entry)
}

func (s *waitlistService) PromoteHead(ctx context.Context, event *domain.Event) (*domain.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.MaxAttendees == nil || event.Status.IsTerminal() {
		return nil, nil
	}
	head, err := s.waitlistRepo.HeadOfQueue(ctx, event.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("head of queue: %w", err)
	}
	return s.promoteEntry(ctx, event, head)
}

// promoteEntry enforces capacity, makes the user an accepted participant,
// and flips the entry to promoted. The entry status is written last: if any
// participant write fails the entry stays waiting, so the next promotion
// attempt picks the same user up again instead of dropping them.
func (s *waitlistService) promoteEntry(ctx context.Context, event *domain.Event, entry *domain.WaitlistEntry) (*domain.WaitlistEntry, error) {
	if entry.Status != domain.WaitlistWaiting {
		return nil, domain.ErrInvalidOperation
	}

	now := time.Now()
	alreadyAccepted := false
	p, err := s.participantRepo.GetByEventAndUser(ctx, event.ID, entry.UserID)
	switch {
	case err == nil:
		alreadyAccepted = p.InvitationStatus == domain.InvitationAccepted
	case errors.Is(err, domain.ErrNotFound):
		p = nil
	default:
		return nil, fmt.Errorf("get participant: %w", err)
	}

	// A previous attempt may have accepted the user and then failed before
	// updating the entry; in that case only the entry flip remains.
	if !alreadyAccepted {
		if event.MaxAttendees != nil {
			accepted, err := s.participantRepo.CountAccepted(ctx, event.ID)
			if err != nil {
				return nil, fmt.Errorf("count accepted participants: %w", err)
			}
			if accepted >= *event.MaxAttendees {
				return nil, domain.ErrCapacityExceeded
			}
		}
		if p == nil {
			if err := s.participantRepo.Create(ctx, domain.NewParticipant(event.ID, entry.UserID, now)); err != nil {
				return nil, fmt.Errorf("create participant: %w", err)
			}
		}
		if _, err := s.participantRepo.UpdateStatus(ctx, event.ID, entry.UserID, domain.InvitationAccepted, now); err != nil {
			return nil, fmt.Errorf("accept promoted participant: %w", err)
		}
	}

	if err := s.waitlistRepo.UpdateStatus(ctx, entry.ID, domain.WaitlistPromoted, now); err != nil {
		return nil, fmt.Errorf("promote waitlist entry: %w", err)
	}

	entry.Status = domain.WaitlistPromoted
	entry.UpdatedAt = now
	if err := s.notifier.Notify(ctx, entry.UserID, event.ID, domain.NotifyWaitlistPromoted); err != nil {
		s.logger.WarnContext(ctx, "notify failed", "user_id", entry.UserID, "event_id", event.ID, "err", err)
	}
	return entry, nil
}

func (s *waitlistService) ExpireForEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.waitlistRepo.ExpireWaiting(ctx, eventID, time.Now())
}
