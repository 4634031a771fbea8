package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gatherly/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// In-memory fakes implementing the domain repository interfaces. They mirror
// the storage-layer contracts the postgres package provides: version-checked
// event updates, unique (event, user) rows, priority-ordered queue head.

type memEventRepo struct {
	mu     sync.Mutex
	seq    int
	events map[string]*domain.Event
	err    error
}

func newMemEventRepo(events ...*domain.Event) *memEventRepo {
	r := &memEventRepo{events: map[string]*domain.Event{}}
	for _, e := range events {
		if e.Version == 0 {
			e.Version = 1
		}
		cp := *e
		r.events[e.ID] = &cp
	}
	return r
}

func (r *memEventRepo) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, e := range r.events {
		if event.RecurringTemplateID != nil && e.RecurringTemplateID != nil &&
			*e.RecurringTemplateID == *event.RecurringTemplateID &&
			e.OccurrenceDate != nil && event.OccurrenceDate != nil &&
			e.OccurrenceDate.Equal(*event.OccurrenceDate) {
			return domain.ErrAlreadyExists
		}
	}
	r.seq++
	if event.ID == "" {
		event.ID = fmt.Sprintf("ev-%d", r.seq)
	}
	event.Version = 1
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *memEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEventRepo) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.events {
		if e.OrganizerID == organizerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memEventRepo) Update(ctx context.Context, event *domain.Event, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrConflict
	}
	event.Version = expectedVersion + 1
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *memEventRepo) ExistsOccurrence(ctx context.Context, templateID string, occurrenceDate time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.RecurringTemplateID != nil && *e.RecurringTemplateID == templateID &&
			e.OccurrenceDate != nil && e.OccurrenceDate.Equal(occurrenceDate) {
			return true, nil
		}
	}
	return false, nil
}

type memParticipantRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*domain.Participant // eventID:userID

	// Injectable write failures for error-path tests.
	createErr error
	updateErr error
}

func newMemParticipantRepo() *memParticipantRepo {
	return &memParticipantRepo{rows: map[string]*domain.Participant{}}
}

func pkey(eventID, userID string) string { return eventID + ":" + userID }

func (r *memParticipantRepo) Create(ctx context.Context, p *domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.rows[pkey(p.EventID, p.UserID)]; ok {
		return domain.ErrAlreadyExists
	}
	r.seq++
	p.ID = fmt.Sprintf("pt-%d", r.seq)
	cp := *p
	r.rows[pkey(p.EventID, p.UserID)] = &cp
	return nil
}

func (r *memParticipantRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[pkey(eventID, userID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memParticipantRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Participant
	for _, p := range r.rows {
		if p.EventID == eventID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memParticipantRepo) UpdateStatus(ctx context.Context, eventID, userID string, status domain.InvitationStatus, respondedAt time.Time) (*domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	p, ok := r.rows[pkey(eventID, userID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.InvitationStatus = status
	p.RespondedAt = &respondedAt
	p.UpdatedAt = respondedAt
	cp := *p
	return &cp, nil
}

func (r *memParticipantRepo) CountAccepted(ctx context.Context, eventID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.rows {
		if p.EventID == eventID && p.InvitationStatus == domain.InvitationAccepted {
			n++
		}
	}
	return n, nil
}

type memOptionRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*domain.VenueOption
}

func newMemOptionRepo(options ...*domain.VenueOption) *memOptionRepo {
	r := &memOptionRepo{rows: map[string]*domain.VenueOption{}}
	for _, o := range options {
		cp := *o
		r.rows[o.ID] = &cp
	}
	return r
}

func (r *memOptionRepo) CreateBatch(ctx context.Context, options []*domain.VenueOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range options {
		r.seq++
		if o.ID == "" {
			o.ID = fmt.Sprintf("opt-%d", r.seq)
		}
		cp := *o
		r.rows[o.ID] = &cp
	}
	return nil
}

func (r *memOptionRepo) GetByID(ctx context.Context, optionID string) (*domain.VenueOption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rows[optionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOptionRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.VenueOption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.VenueOption
	for _, o := range r.rows {
		if o.EventID == eventID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memOptionRepo) CountByEventID(ctx context.Context, eventID string) (int, error) {
	list, _ := r.ListByEventID(ctx, eventID)
	return len(list), nil
}

func (r *memOptionRepo) DeleteByEventID(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.rows {
		if o.EventID == eventID {
			delete(r.rows, id)
		}
	}
	return nil
}

type memVoteRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*domain.Vote // eventID:voterID
}

func newMemVoteRepo() *memVoteRepo { return &memVoteRepo{rows: map[string]*domain.Vote{}} }

func (r *memVoteRepo) Upsert(ctx context.Context, vote *domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pkey(vote.EventID, vote.VoterID)
	if existing, ok := r.rows[key]; ok {
		existing.OptionID = vote.OptionID
		existing.Value = vote.Value
		existing.Comment = vote.Comment
		existing.UpdatedAt = vote.UpdatedAt
		vote.ID = existing.ID
		return nil
	}
	r.seq++
	vote.ID = fmt.Sprintf("vote-%d", r.seq)
	cp := *vote
	r.rows[key] = &cp
	return nil
}

func (r *memVoteRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Vote
	for _, v := range r.rows {
		if v.EventID == eventID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVoteRepo) TallyByEventID(ctx context.Context, eventID string) ([]*domain.OptionTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byOption := map[string]*domain.OptionTally{}
	for _, v := range r.rows {
		if v.EventID != eventID {
			continue
		}
		t, ok := byOption[v.OptionID]
		if !ok {
			t = &domain.OptionTally{OptionID: v.OptionID}
			byOption[v.OptionID] = t
		}
		t.TotalVotes++
		t.VoteScore += v.Value
	}
	var out []*domain.OptionTally
	for _, t := range byOption {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OptionID < out[j].OptionID })
	return out, nil
}

func (r *memVoteRepo) CountByEventID(ctx context.Context, eventID string) (int, error) {
	list, _ := r.ListByEventID(ctx, eventID)
	return len(list), nil
}

type memWaitlistRepo struct {
	mu   sync.Mutex
	seq  int
	rows []*domain.WaitlistEntry
}

func newMemWaitlistRepo() *memWaitlistRepo { return &memWaitlistRepo{} }

func (r *memWaitlistRepo) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.EventID == entry.EventID && e.UserID == entry.UserID {
			return domain.ErrAlreadyExists
		}
	}
	r.seq++
	entry.ID = fmt.Sprintf("wl-%d", r.seq)
	cp := *entry
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memWaitlistRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.EventID == eventID && e.UserID == userID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memWaitlistRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WaitlistEntry
	for _, e := range r.rows {
		if e.EventID == eventID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memWaitlistRepo) HeadOfQueue(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var head *domain.WaitlistEntry
	for _, e := range r.rows {
		if e.EventID != eventID || e.Status != domain.WaitlistWaiting {
			continue
		}
		if head == nil || e.Priority < head.Priority ||
			(e.Priority == head.Priority && e.JoinedAt.Before(head.JoinedAt)) {
			head = e
		}
	}
	if head == nil {
		return nil, domain.ErrNotFound
	}
	cp := *head
	return &cp, nil
}

func (r *memWaitlistRepo) NextPriority(ctx context.Context, eventID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 1
	for _, e := range r.rows {
		if e.EventID == eventID && e.Priority >= next {
			next = e.Priority + 1
		}
	}
	return next, nil
}

func (r *memWaitlistRepo) UpdateStatus(ctx context.Context, entryID string, status domain.WaitlistStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.ID == entryID {
			e.Status = status
			e.UpdatedAt = now
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memWaitlistRepo) ExpireWaiting(ctx context.Context, eventID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.EventID == eventID && e.Status == domain.WaitlistWaiting {
			e.Status = domain.WaitlistExpired
			e.UpdatedAt = now
		}
	}
	return nil
}

type memTemplateRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*domain.RecurringEventTemplate
}

func newMemTemplateRepo(templates ...*domain.RecurringEventTemplate) *memTemplateRepo {
	r := &memTemplateRepo{rows: map[string]*domain.RecurringEventTemplate{}}
	for _, t := range templates {
		cp := *t
		r.rows[t.ID] = &cp
	}
	return r
}

func (r *memTemplateRepo) Create(ctx context.Context, t *domain.RecurringEventTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("tpl-%d", r.seq)
	}
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *memTemplateRepo) GetByID(ctx context.Context, id string) (*domain.RecurringEventTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTemplateRepo) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.RecurringEventTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RecurringEventTemplate
	for _, t := range r.rows {
		if t.OrganizerID == organizerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTemplateRepo) ListActive(ctx context.Context) ([]*domain.RecurringEventTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RecurringEventTemplate
	for _, t := range r.rows {
		if t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTemplateRepo) Update(ctx context.Context, t *domain.RecurringEventTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[t.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *t
	r.rows[t.ID] = &cp
	return nil
}

func (r *memTemplateRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) (*domain.RecurringEventTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t.Active = active
	t.UpdatedAt = now
	cp := *t
	return &cp, nil
}

func (r *memTemplateRepo) SetLastGenerated(ctx context.Context, id string, lastGenerated time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	lg := lastGenerated
	t.LastGeneratedDate = &lg
	return nil
}

func (r *memTemplateRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type memCheckInRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*domain.CheckIn
}

func newMemCheckInRepo() *memCheckInRepo { return &memCheckInRepo{rows: map[string]*domain.CheckIn{}} }

func (r *memCheckInRepo) Create(ctx context.Context, c *domain.CheckIn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pkey(c.EventID, c.UserID)
	if _, ok := r.rows[key]; ok {
		return domain.ErrAlreadyExists
	}
	r.seq++
	c.ID = fmt.Sprintf("ci-%d", r.seq)
	cp := *c
	r.rows[key] = &cp
	return nil
}

func (r *memCheckInRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.CheckIn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[pkey(eventID, userID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCheckInRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.CheckIn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CheckIn
	for _, c := range r.rows {
		if c.EventID == eventID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memFeedbackRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*domain.Feedback
}

func newMemFeedbackRepo() *memFeedbackRepo {
	return &memFeedbackRepo{rows: map[string]*domain.Feedback{}}
}

func (r *memFeedbackRepo) Upsert(ctx context.Context, f *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pkey(f.EventID, f.UserID)
	if existing, ok := r.rows[key]; ok {
		existing.Rating = f.Rating
		existing.Comment = f.Comment
		existing.UpdatedAt = f.UpdatedAt
		f.ID = existing.ID
		return nil
	}
	r.seq++
	f.ID = fmt.Sprintf("fb-%d", r.seq)
	cp := *f
	r.rows[key] = &cp
	return nil
}

func (r *memFeedbackRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[pkey(eventID, userID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFeedbackRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Feedback
	for _, f := range r.rows {
		if f.EventID == eventID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memUserRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{rows: map[string]*domain.User{}}
	for _, u := range users {
		cp := *u
		r.rows[u.ID] = &cp
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	cp := *user
	r.rows[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// Collaborator stubs.

type stubPrefAggregator struct {
	prefs *domain.PreferenceSet
	err   error
	calls int
}

func (s *stubPrefAggregator) Aggregate(ctx context.Context, eventID string) (*domain.PreferenceSet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.prefs == nil {
		return &domain.PreferenceSet{EventID: eventID}, nil
	}
	return s.prefs, nil
}

type stubRecommender struct {
	options []*domain.VenueOption
	err     error
	calls   int
}

func (s *stubRecommender) Generate(ctx context.Context, eventID string, prefs *domain.PreferenceSet, lat, lng, radiusKm *float64) ([]*domain.VenueOption, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*domain.VenueOption, len(s.options))
	for i, o := range s.options {
		cp := *o
		out[i] = &cp
	}
	return out, nil
}

// stubPlaceReader resolves any place ID unless marked missing or failing.
type stubPlaceReader struct {
	missing map[string]bool
	err     error
}

func (s *stubPlaceReader) GetByID(ctx context.Context, placeID string) (*domain.Place, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.missing[placeID] {
		return nil, domain.ErrNotFound
	}
	return &domain.Place{ID: placeID}, nil
}

type sentNotification struct {
	UserID  string
	EventID string
	Kind    domain.NotificationKind
}

type recordNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordNotifier) Notify(ctx context.Context, userID, eventID string, kind domain.NotificationKind) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, EventID: eventID, Kind: kind})
	return nil
}

func (n *recordNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Kind
	}
	return out
}

type noopTestMailer struct{}

func (noopTestMailer) SendEventInvitation(ctx context.Context, data *domain.EventInvitationEmailData) error {
	return nil
}
