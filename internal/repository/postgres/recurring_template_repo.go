package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"gatherly/internal/domain"
)

type recurringTemplateRepository struct {
	DB *sql.DB
}

func NewRecurringTemplateRepository(db *sql.DB) domain.RecurringTemplateRepository {
	return &recurringTemplateRepository{DB: db}
}

const templateColumns = `
	id, organizer_id, title, description, event_type, timezone,
	duration_minutes, expected_attendees, max_attendees,
	pattern, recur_interval, days_of_week, day_of_month, month_of_year,
	start_date, end_date, occurrence_count, days_in_advance,
	auto_create_events, active, last_generated_date, created_at, updated_at
`

func weekdaysToInts(days []time.Weekday) []int64 {
	out := make([]int64, len(days))
	for i, d := range days {
		out[i] = int64(d)
	}
	return out
}

func intsToWeekdays(vals []int64) []time.Weekday {
	if len(vals) == 0 {
		return nil
	}
	out := make([]time.Weekday, len(vals))
	for i, v := range vals {
		out[i] = time.Weekday(v)
	}
	return out
}

func (r *recurringTemplateRepository) Create(ctx context.Context, t *domain.RecurringEventTemplate) error {
	query := `
		INSERT INTO recurring_event_templates (
			organizer_id, title, description, event_type, timezone,
			duration_minutes, expected_attendees, max_attendees,
			pattern, recur_interval, days_of_week, day_of_month, month_of_year,
			start_date, end_date, occurrence_count, days_in_advance,
			auto_create_events, active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		t.OrganizerID, t.Title, t.Description, t.EventType, t.Timezone,
		t.DurationMinutes, t.ExpectedAttendees, t.MaxAttendees,
		t.Pattern, t.Interval, pq.Array(weekdaysToInts(t.DaysOfWeek)), t.DayOfMonth, int(t.MonthOfYear),
		t.StartDate, t.EndDate, t.OccurrenceCount, t.DaysInAdvance,
		t.AutoCreateEvents, t.Active, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
}

func scanTemplate(row interface{ Scan(...interface{}) error }) (*domain.RecurringEventTemplate, error) {
	t := &domain.RecurringEventTemplate{}
	var descNull sql.NullString
	var maxNull, countNull, monthNull sql.NullInt64
	var endNull, lastNull sql.NullTime
	var days pq.Int64Array
	err := row.Scan(
		&t.ID, &t.OrganizerID, &t.Title, &descNull, &t.EventType, &t.Timezone,
		&t.DurationMinutes, &t.ExpectedAttendees, &maxNull,
		&t.Pattern, &t.Interval, &days, &t.DayOfMonth, &monthNull,
		&t.StartDate, &endNull, &countNull, &t.DaysInAdvance,
		&t.AutoCreateEvents, &t.Active, &lastNull, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		t.Description = descNull.String
	}
	if maxNull.Valid {
		m := int(maxNull.Int64)
		t.MaxAttendees = &m
	}
	if monthNull.Valid {
		t.MonthOfYear = time.Month(monthNull.Int64)
	}
	if endNull.Valid {
		t.EndDate = &endNull.Time
	}
	if countNull.Valid {
		c := int(countNull.Int64)
		t.OccurrenceCount = &c
	}
	if lastNull.Valid {
		t.LastGeneratedDate = &lastNull.Time
	}
	t.DaysOfWeek = intsToWeekdays(days)
	return t, nil
}

func (r *recurringTemplateRepository) GetByID(ctx context.Context, id string) (*domain.RecurringEventTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_event_templates WHERE id = $1`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *recurringTemplateRepository) listQuery(ctx context.Context, query string, args ...interface{}) ([]*domain.RecurringEventTemplate, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	templates := make([]*domain.RecurringEventTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *recurringTemplateRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.RecurringEventTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_event_templates WHERE organizer_id = $1 ORDER BY created_at DESC`
	return r.listQuery(ctx, query, organizerID)
}

func (r *recurringTemplateRepository) ListActive(ctx context.Context) ([]*domain.RecurringEventTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_event_templates WHERE active ORDER BY created_at ASC`
	return r.listQuery(ctx, query)
}

func (r *recurringTemplateRepository) Update(ctx context.Context, t *domain.RecurringEventTemplate) error {
	query := `
		UPDATE recurring_event_templates SET
			title = $2, description = $3, event_type = $4, timezone = $5,
			duration_minutes = $6, expected_attendees = $7, max_attendees = $8,
			pattern = $9, recur_interval = $10, days_of_week = $11, day_of_month = $12,
			month_of_year = $13, start_date = $14, end_date = $15, occurrence_count = $16,
			days_in_advance = $17, auto_create_events = $18, updated_at = $19
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, t.EventType, t.Timezone,
		t.DurationMinutes, t.ExpectedAttendees, t.MaxAttendees,
		t.Pattern, t.Interval, pq.Array(weekdaysToInts(t.DaysOfWeek)), t.DayOfMonth,
		int(t.MonthOfYear), t.StartDate, t.EndDate, t.OccurrenceCount,
		t.DaysInAdvance, t.AutoCreateEvents, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *recurringTemplateRepository) SetActive(ctx context.Context, id string, active bool, now time.Time) (*domain.RecurringEventTemplate, error) {
	query := `
		UPDATE recurring_event_templates SET active = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + templateColumns
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, id, active, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *recurringTemplateRepository) SetLastGenerated(ctx context.Context, id string, lastGenerated time.Time) error {
	query := `UPDATE recurring_event_templates SET last_generated_date = $2 WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id, lastGenerated)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *recurringTemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM recurring_event_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
