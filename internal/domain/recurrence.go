package domain

import (
	"context"
	"time"
)

// RecurrencePattern is the closed set of recurrence kinds.
type RecurrencePattern string

const (
	RecurDaily   RecurrencePattern = "daily"
	RecurWeekly  RecurrencePattern = "weekly"
	RecurMonthly RecurrencePattern = "monthly"
	RecurYearly  RecurrencePattern = "yearly"
)

// RecurringEventTemplate is a rule from which concrete events are
// materialized. Templates do not move through the event lifecycle themselves;
// each generated event starts in the inviting state with nobody invited.
// swagger:model RecurringEventTemplate
type RecurringEventTemplate struct {
	ID                string            `json:"id"`
	OrganizerID       string            `json:"organizer_id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	EventType         string            `json:"event_type"`
	Timezone          string            `json:"timezone"`
	DurationMinutes   int               `json:"duration_minutes"`
	ExpectedAttendees int               `json:"expected_attendees"`
	MaxAttendees      *int              `json:"max_attendees,omitempty"`
	Pattern           RecurrencePattern `json:"pattern"`
	Interval          int               `json:"interval"`
	DaysOfWeek        []time.Weekday    `json:"days_of_week,omitempty"`
	DayOfMonth        int               `json:"day_of_month,omitempty"`
	MonthOfYear       time.Month        `json:"month_of_year,omitempty"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           *time.Time        `json:"end_date,omitempty"`
	OccurrenceCount   *int              `json:"occurrence_count,omitempty"`
	DaysInAdvance     int               `json:"days_in_advance"`
	AutoCreateEvents  bool              `json:"auto_create_events"`
	Active            bool              `json:"active"`
	LastGeneratedDate *time.Time        `json:"last_generated_date,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Validate checks the pattern-specific required fields.
func (t *RecurringEventTemplate) Validate() error {
	switch t.Pattern {
	case RecurDaily:
	case RecurWeekly:
		if len(t.DaysOfWeek) == 0 {
			return ErrInvalidInput
		}
	case RecurMonthly:
		if t.DayOfMonth < 1 || t.DayOfMonth > 31 {
			return ErrInvalidInput
		}
	case RecurYearly:
		if t.MonthOfYear < time.January || t.MonthOfYear > time.December {
			return ErrInvalidInput
		}
		if t.DayOfMonth < 1 || t.DayOfMonth > 31 {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	if t.StartDate.IsZero() || t.DaysInAdvance < 0 {
		return ErrInvalidInput
	}
	return nil
}

// interval returns the step between occurrences, defaulting to 1.
func (t *RecurringEventTemplate) interval() int {
	if t.Interval < 1 {
		return 1
	}
	return t.Interval
}

const maxOccurrenceScan = 10000

// Occurrences expands the rule into the concrete occurrence times within
// [from, to], keeping the time of day of StartDate. The enumeration always
// starts at StartDate so the OccurrenceCount bound is stable across calls, and
// stops at EndDate when set. Pure: safe to call concurrently.
func (t *RecurringEventTemplate) Occurrences(from, to time.Time) []time.Time {
	var out []time.Time
	count := 0
	emit := func(occ time.Time) bool {
		if occ.After(to) {
			return false
		}
		if t.EndDate != nil && occ.After(*t.EndDate) {
			return false
		}
		count++
		if t.OccurrenceCount != nil && count > *t.OccurrenceCount {
			return false
		}
		if !occ.Before(from) && !occ.Before(t.StartDate) {
			out = append(out, occ)
		}
		return true
	}

	switch t.Pattern {
	case RecurDaily:
		for i := 0; i < maxOccurrenceScan; i++ {
			occ := t.StartDate.AddDate(0, 0, i*t.interval())
			if !emit(occ) {
				return out
			}
		}
	case RecurWeekly:
		week := startOfWeek(t.StartDate)
		for i := 0; i < maxOccurrenceScan; i++ {
			base := week.AddDate(0, 0, i*t.interval()*7)
			stop := false
			for d := 0; d < 7; d++ {
				day := base.AddDate(0, 0, d)
				if day.Before(t.StartDate) || !weekdayIncluded(t.DaysOfWeek, day.Weekday()) {
					continue
				}
				if !emit(day) {
					stop = true
					break
				}
			}
			if stop {
				return out
			}
		}
	case RecurMonthly:
		y0, m0, _ := t.StartDate.Date()
		for i := 0; i < maxOccurrenceScan; i++ {
			// Month arithmetic by index: AddDate would normalize Jan 31 + 1
			// month into March and skip February entirely.
			total := y0*12 + int(m0) - 1 + i*t.interval()
			occ := dayInMonth(total/12, time.Month(total%12+1), t.DayOfMonth, t.StartDate)
			if occ.Before(t.StartDate) {
				continue
			}
			if !emit(occ) {
				return out
			}
		}
	case RecurYearly:
		for i := 0; i < maxOccurrenceScan; i++ {
			occ := dayInMonth(t.StartDate.Year()+i*t.interval(), t.MonthOfYear, t.DayOfMonth, t.StartDate)
			if occ.Before(t.StartDate) {
				continue
			}
			if !emit(occ) {
				return out
			}
		}
	}
	return out
}

// startOfWeek returns the Monday of the week containing d, at d's time of day.
func startOfWeek(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func weekdayIncluded(days []time.Weekday, wd time.Weekday) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// dayInMonth builds a time on the given day of the month, clamped to the
// month's length (Jan 31 -> Feb 28), keeping ref's time of day and location.
func dayInMonth(year int, month time.Month, day int, ref time.Time) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, ref.Location()).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day,
		ref.Hour(), ref.Minute(), ref.Second(), 0, ref.Location())
}

// RecurringTemplateRepository defines storage operations for templates.
type RecurringTemplateRepository interface {
	Create(ctx context.Context, t *RecurringEventTemplate) error
	GetByID(ctx context.Context, id string) (*RecurringEventTemplate, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*RecurringEventTemplate, error)
	ListActive(ctx context.Context) ([]*RecurringEventTemplate, error)
	Update(ctx context.Context, t *RecurringEventTemplate) error
	SetActive(ctx context.Context, id string, active bool, now time.Time) (*RecurringEventTemplate, error)
	SetLastGenerated(ctx context.Context, id string, lastGenerated time.Time) error
	Delete(ctx context.Context, id string) error
}

// RecurrenceService defines template CRUD and the occurrence scheduler.
type RecurrenceService interface {
	CreateTemplate(ctx context.Context, t *RecurringEventTemplate) error
	GetTemplate(ctx context.Context, templateID, callerID string) (*RecurringEventTemplate, error)
	ListMyTemplates(ctx context.Context, organizerID string) ([]*RecurringEventTemplate, error)
	UpdateTemplate(ctx context.Context, t *RecurringEventTemplate, callerID string) error
	ToggleTemplate(ctx context.Context, templateID, callerID string, active bool) (*RecurringEventTemplate, error)
	DeleteTemplate(ctx context.Context, templateID, callerID string) error
	// CreateFromTemplate materializes a single event for the given date,
	// regardless of AutoCreateEvents. Still idempotent per (template, date).
	CreateFromTemplate(ctx context.Context, templateID, callerID string, occurrence time.Time) (*Event, error)
	// GenerateDueOccurrences materializes every due occurrence for every
	// active template with AutoCreateEvents enabled. Idempotent: re-running
	// with the same clock creates nothing new. Returns the created events.
	GenerateDueOccurrences(ctx context.Context, now time.Time) ([]*Event, error)
}
