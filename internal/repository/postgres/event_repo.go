package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gatherly/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `
	id, organizer_id, title, description, event_type, status,
	scheduled_date, timezone, duration_minutes, expected_attendees,
	max_attendees, budget_min, budget_max, acceptance_threshold, is_private,
	cancellation_reason, reschedule_count, final_place_id,
	recurring_template_id, occurrence_date,
	confirmed_at, cancelled_at, completed_at,
	version, created_at, updated_at
`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (
			organizer_id, title, description, event_type, status,
			scheduled_date, timezone, duration_minutes, expected_attendees,
			max_attendees, budget_min, budget_max, acceptance_threshold, is_private,
			final_place_id, recurring_template_id, occurrence_date,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, version
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.OrganizerID, e.Title, e.Description, e.EventType, e.Status,
		e.ScheduledDate, e.Timezone, e.DurationMinutes, e.ExpectedAttendees,
		e.MaxAttendees, e.BudgetMin, e.BudgetMax, e.AcceptanceThreshold, e.IsPrivate,
		e.FinalPlaceID, e.RecurringTemplateID, e.OccurrenceDate,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID, &e.Version)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func scanEvent(row interface{ Scan(...interface{}) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull sql.NullString
	var maxNull sql.NullInt64
	var budgetMinNull, budgetMaxNull sql.NullFloat64
	var reasonNull, placeNull, templateNull sql.NullString
	var occurrenceNull, confirmedNull, cancelledNull, completedNull sql.NullTime
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Title, &descNull, &e.EventType, &e.Status,
		&e.ScheduledDate, &e.Timezone, &e.DurationMinutes, &e.ExpectedAttendees,
		&maxNull, &budgetMinNull, &budgetMaxNull, &e.AcceptanceThreshold, &e.IsPrivate,
		&reasonNull, &e.RescheduleCount, &placeNull,
		&templateNull, &occurrenceNull,
		&confirmedNull, &cancelledNull, &completedNull,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = descNull.String
	}
	if maxNull.Valid {
		m := int(maxNull.Int64)
		e.MaxAttendees = &m
	}
	if budgetMinNull.Valid {
		e.BudgetMin = &budgetMinNull.Float64
	}
	if budgetMaxNull.Valid {
		e.BudgetMax = &budgetMaxNull.Float64
	}
	if reasonNull.Valid {
		e.CancellationReason = &reasonNull.String
	}
	if placeNull.Valid {
		e.FinalPlaceID = &placeNull.String
	}
	if templateNull.Valid {
		e.RecurringTemplateID = &templateNull.String
	}
	if occurrenceNull.Valid {
		e.OccurrenceDate = &occurrenceNull.Time
	}
	if confirmedNull.Valid {
		e.ConfirmedAt = &confirmedNull.Time
	}
	if cancelledNull.Valid {
		e.CancelledAt = &cancelledNull.Time
	}
	if completedNull.Valid {
		e.CompletedAt = &completedNull.Time
	}
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update writes the aggregate only when the stored version still matches
// expectedVersion, bumping the version in the same statement. A missed match
// is disambiguated with a follow-up existence check.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event, expectedVersion int) error {
	query := `
		UPDATE events SET
			title = $1, description = $2, event_type = $3, status = $4,
			scheduled_date = $5, timezone = $6, duration_minutes = $7, expected_attendees = $8,
			max_attendees = $9, budget_min = $10, budget_max = $11, acceptance_threshold = $12,
			is_private = $13, cancellation_reason = $14, reschedule_count = $15,
			final_place_id = $16, confirmed_at = $17, cancelled_at = $18, completed_at = $19,
			version = version + 1, updated_at = $20
		WHERE id = $21 AND version = $22
		RETURNING version
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.EventType, e.Status,
		e.ScheduledDate, e.Timezone, e.DurationMinutes, e.ExpectedAttendees,
		e.MaxAttendees, e.BudgetMin, e.BudgetMax, e.AcceptanceThreshold,
		e.IsPrivate, e.CancellationReason, e.RescheduleCount,
		e.FinalPlaceID, e.ConfirmedAt, e.CancelledAt, e.CompletedAt,
		e.UpdatedAt, e.ID, expectedVersion,
	).Scan(&e.Version)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var exists bool
	if checkErr := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, e.ID).Scan(&exists); checkErr != nil {
		return checkErr
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *eventRepository) ExistsOccurrence(ctx context.Context, templateID string, occurrenceDate time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM events
			WHERE recurring_template_id = $1 AND occurrence_date = $2
		)
	`
	var exists bool
	err := r.DB.QueryRowContext(ctx, query, templateID, occurrenceDate).Scan(&exists)
	return exists, err
}
