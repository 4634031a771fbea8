package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatherly/internal/domain"
)

type checkInService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	checkInRepo     domain.CheckInRepository
	feedbackRepo    domain.FeedbackRepository
	contextTimeout  time.Duration
}

// NewCheckInService wires attendance tracking and feedback collection.
func NewCheckInService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	checkInRepo domain.CheckInRepository,
	feedbackRepo domain.FeedbackRepository,
	timeout time.Duration,
) domain.CheckInService {
	return &checkInService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		checkInRepo:     checkInRepo,
		feedbackRepo:    feedbackRepo,
		contextTimeout:  timeout,
	}
}

func (s *checkInService) CheckIn(ctx context.Context, eventID, userID string, lat, lng *float64) (*domain.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.StatusConfirmed && event.Status != domain.StatusCompleted {
		return nil, domain.ErrInvalidOperation
	}
	if err := s.ensureAccepted(ctx, eventID, userID); err != nil {
		return nil, err
	}
	if _, err := s.checkInRepo.GetByEventAndUser(ctx, eventID, userID); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get check-in: %w", err)
	}

	// Geolocation is advisory only; no proximity enforcement here.
	c := &domain.CheckIn{
		EventID:     eventID,
		UserID:      userID,
		Lat:         lat,
		Lng:         lng,
		CheckedInAt: time.Now(),
	}
	if err := s.checkInRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create check-in: %w", err)
	}
	return c, nil
}

func (s *checkInService) ListCheckIns(ctx context.Context, eventID, callerID string) ([]*domain.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	checkIns, err := s.checkInRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	if checkIns == nil {
		checkIns = []*domain.CheckIn{}
	}
	return checkIns, nil
}

func (s *checkInService) SubmitFeedback(ctx context.Context, eventID, userID string, rating int, comment *string) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, fmt.Errorf("rating must be between %d and %d: %w", domain.MinRating, domain.MaxRating, domain.ErrInvalidInput)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.StatusCompleted {
		return nil, domain.ErrInvalidOperation
	}
	if err := s.ensureAccepted(ctx, eventID, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	f := &domain.Feedback{
		EventID:   eventID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Resubmission updates the existing row via the (event_id, user_id)
	// constraint.
	if err := s.feedbackRepo.Upsert(ctx, f); err != nil {
		return nil, fmt.Errorf("upsert feedback: %w", err)
	}
	return f, nil
}

func (s *checkInService) ListFeedback(ctx context.Context, eventID, callerID string) ([]*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if callerID != event.OrganizerID {
		return nil, domain.ErrForbidden
	}
	feedback, err := s.feedbackRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	if feedback == nil {
		feedback = []*domain.Feedback{}
	}
	return feedback, nil
}

func (s *checkInService) ensureAccepted(ctx context.Context, eventID, userID string) error {
	p, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return domain.ErrForbidden
	}
	if p.InvitationStatus != domain.InvitationAccepted {
		return domain.ErrForbidden
	}
	return nil
}
