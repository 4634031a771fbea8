package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatherly/internal/domain"
)

type recurrenceService struct {
	templateRepo   domain.RecurringTemplateRepository
	eventRepo      domain.EventRepository
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewRecurrenceService wires template CRUD and the occurrence scheduler.
func NewRecurrenceService(
	templateRepo domain.RecurringTemplateRepository,
	eventRepo domain.EventRepository,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RecurrenceService {
	return &recurrenceService{
		templateRepo:   templateRepo,
		eventRepo:      eventRepo,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *recurrenceService) CreateTemplate(ctx context.Context, t *domain.RecurringEventTemplate) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if t.OrganizerID == "" || t.Title == "" {
		return domain.ErrInvalidInput
	}
	if err := t.Validate(); err != nil {
		return err
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return s.templateRepo.Create(ctx, t)
}

func (s *recurrenceService) GetTemplate(ctx context.Context, templateID, callerID string) (*domain.RecurringEventTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.ownedTemplate(ctx, templateID, callerID)
}

func (s *recurrenceService) ListMyTemplates(ctx context.Context, organizerID string) ([]*domain.RecurringEventTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	templates, err := s.templateRepo.ListByOrganizerID(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if templates == nil {
		templates = []*domain.RecurringEventTemplate{}
	}
	return templates, nil
}

func (s *recurrenceService) UpdateTemplate(ctx context.Context, t *domain.RecurringEventTemplate, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.ownedTemplate(ctx, t.ID, callerID); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.UpdatedAt = time.Now()
	return s.templateRepo.Update(ctx, t)
}

func (s *recurrenceService) ToggleTemplate(ctx context.Context, templateID, callerID string, active bool) (*domain.RecurringEventTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.ownedTemplate(ctx, templateID, callerID); err != nil {
		return nil, err
	}
	return s.templateRepo.SetActive(ctx, templateID, active, time.Now())
}

func (s *recurrenceService) DeleteTemplate(ctx context.Context, templateID, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.ownedTemplate(ctx, templateID, callerID); err != nil {
		return err
	}
	return s.templateRepo.Delete(ctx, templateID)
}

func (s *recurrenceService) ownedTemplate(ctx context.Context, templateID, callerID string) (*domain.RecurringEventTemplate, error) {
	t, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if t.OrganizerID != callerID {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

func (s *recurrenceService) CreateFromTemplate(ctx context.Context, templateID, callerID string, occurrence time.Time) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	t, err := s.ownedTemplate(ctx, templateID, callerID)
	if err != nil {
		return nil, err
	}
	return s.materialize(ctx, t, occurrence)
}

func (s *recurrenceService) GenerateDueOccurrences(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	templates, err := s.templateRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}

	var created []*domain.Event
	for _, t := range templates {
		if !t.AutoCreateEvents {
			continue
		}
		events, err := s.generateForTemplate(ctx, t, now)
		if err != nil {
			// Templates are independent; one failing must not starve the
			// rest.
			s.logger.ErrorContext(ctx, "occurrence generation failed", "template_id", t.ID, "err", err)
			continue
		}
		created = append(created, events...)
	}
	return created, nil
}

func (s *recurrenceService) generateForTemplate(ctx context.Context, t *domain.RecurringEventTemplate, now time.Time) ([]*domain.Event, error) {
	from := t.StartDate
	if t.LastGeneratedDate != nil {
		next := t.LastGeneratedDate.AddDate(0, 0, 1)
		if next.After(from) {
			from = next
		}
	}
	to := now.AddDate(0, 0, t.DaysInAdvance)

	var created []*domain.Event
	last := time.Time{}
	for _, occ := range t.Occurrences(from, to) {
		event, err := s.materialize(ctx, t, occ)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				last = occ
				continue
			}
			return created, err
		}
		created = append(created, event)
		last = occ
	}
	if !last.IsZero() {
		if err := s.templateRepo.SetLastGenerated(ctx, t.ID, last); err != nil {
			return created, fmt.Errorf("record last generated date: %w", err)
		}
	}
	return created, nil
}

// materialize creates one event from the template for the given occurrence.
// The (template, occurrence date) key makes it idempotent: the pre-check
// handles repeat runs cheaply and the unique index settles races.
func (s *recurrenceService) materialize(ctx context.Context, t *domain.RecurringEventTemplate, occurrence time.Time) (*domain.Event, error) {
	exists, err := s.eventRepo.ExistsOccurrence(ctx, t.ID, occurrence)
	if err != nil {
		return nil, fmt.Errorf("check occurrence: %w", err)
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}

	now := time.Now()
	event := domain.NewEvent(t.OrganizerID, t.Title, t.Description, t.EventType,
		occurrence, t.Timezone, t.DurationMinutes, t.ExpectedAttendees, now)
	event.MaxAttendees = t.MaxAttendees
	templateID := t.ID
	occ := occurrence
	event.RecurringTemplateID = &templateID
	event.OccurrenceDate = &occ

	// Nobody is invited by default; invitations are a separate action.
	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create occurrence event: %w", err)
	}
	return event, nil
}
