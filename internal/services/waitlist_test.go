package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatherly/internal/domain"
)

type waitlistFixture struct {
	svc          domain.WaitlistService
	events       *memEventRepo
	participants *memParticipantRepo
	waitlist     *memWaitlistRepo
	notifier     *recordNotifier
}

func newWaitlistFixture(t *testing.T, events ...*domain.Event) *waitlistFixture {
	t.Helper()
	f := &waitlistFixture{
		events:       newMemEventRepo(events...),
		participants: newMemParticipantRepo(),
		waitlist:     newMemWaitlistRepo(),
		notifier:     &recordNotifier{},
	}
	f.svc = NewWaitlistService(f.events, f.participants, f.waitlist, f.notifier, testLogger(), time.Second)
	return f
}

func cappedEvent(id string, max int) *domain.Event {
	e := testEvent(id, domain.StatusInviting)
	e.MaxAttendees = &max
	return e
}

func TestWaitlistJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns insertion-order priorities", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 2))

		first, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil)
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		second, err := f.svc.Join(ctx, "ev-1", "user-b", nil, nil)
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if first.Priority >= second.Priority {
			t.Errorf("priorities = %d, %d; want strictly increasing", first.Priority, second.Priority)
		}
		if first.Status != domain.WaitlistWaiting || second.Status != domain.WaitlistWaiting {
			t.Error("new entries should be waiting")
		}
	})

	t.Run("explicit priority jumps the queue", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 2))
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		zero := 0
		vip, err := f.svc.Join(ctx, "ev-1", "user-vip", &zero, nil)
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}

		head, err := f.waitlist.HeadOfQueue(ctx, "ev-1")
		if err != nil {
			t.Fatalf("HeadOfQueue() error = %v", err)
		}
		if head.ID != vip.ID {
			t.Errorf("head = %s, want the lower-priority entry %s", head.ID, vip.ID)
		}
	})

	t.Run("uncapped event is rejected", func(t *testing.T) {
		f := newWaitlistFixture(t, testEvent("ev-1", domain.StatusInviting))
		_, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil)
		if !errors.Is(err, domain.ErrInvalidOperation) {
			t.Fatalf("Join() error = %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("terminal event is rejected", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 2))
		stored, _ := f.events.GetByID(ctx, "ev-1")
		stored.Status = domain.StatusCancelled
		if err := f.events.Update(ctx, stored, stored.Version); err != nil {
			t.Fatalf("seed cancel: %v", err)
		}

		_, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil)
		if !errors.Is(err, domain.ErrInvalidOperation) {
			t.Fatalf("Join() error = %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("accepted participant cannot wait", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 2))
		p := domain.NewParticipant("ev-1", "user-a", time.Now())
		if err := f.participants.Create(ctx, p); err != nil {
			t.Fatalf("seed participant: %v", err)
		}
		if _, err := f.participants.UpdateStatus(ctx, "ev-1", "user-a", domain.InvitationAccepted, time.Now()); err != nil {
			t.Fatalf("accept: %v", err)
		}

		_, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil)
		if !errors.Is(err, domain.ErrInvalidOperation) {
			t.Fatalf("Join() error = %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("joining twice is rejected", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 2))
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		_, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("Join() error = %v, want ErrAlreadyExists", err)
		}
	})
}

func TestWaitlistPromote(t *testing.T) {
	ctx := context.Background()

	t.Run("organizer promotes out of order", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 3))
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if _, err := f.svc.Join(ctx, "ev-1", "user-b", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}

		entry, err := f.svc.Promote(ctx, "ev-1", "user-b", "org-1")
		if err != nil {
			t.Fatalf("Promote() error = %v", err)
		}
		if entry.Status != domain.WaitlistPromoted {
			t.Errorf("entry status = %s, want promoted", entry.Status)
		}
		p, err := f.participants.GetByEventAndUser(ctx, "ev-1", "user-b")
		if err != nil {
			t.Fatalf("get participant: %v", err)
		}
		if p.InvitationStatus != domain.InvitationAccepted {
			t.Errorf("participant status = %s, want accepted", p.InvitationStatus)
		}
		kinds := f.notifier.kinds()
		if len(kinds) != 1 || kinds[0] != domain.NotifyWaitlistPromoted {
			t.Errorf("notifications = %v, want one waitlist_promoted", kinds)
		}
	})

	t.Run("only the organizer promotes by name", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 3))
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		_, err := f.svc.Promote(ctx, "ev-1", "user-a", "user-a")
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("Promote() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("capacity is enforced even for the organizer", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 1))
		p := domain.NewParticipant("ev-1", "user-full", time.Now())
		if err := f.participants.Create(ctx, p); err != nil {
			t.Fatalf("seed participant: %v", err)
		}
		if _, err := f.participants.UpdateStatus(ctx, "ev-1", "user-full", domain.InvitationAccepted, time.Now()); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}

		_, err := f.svc.Promote(ctx, "ev-1", "user-a", "org-1")
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("Promote() error = %v, want ErrCapacityExceeded", err)
		}
		entry, _ := f.waitlist.GetByEventAndUser(ctx, "ev-1", "user-a")
		if entry.Status != domain.WaitlistWaiting {
			t.Errorf("entry status = %s, want still waiting", entry.Status)
		}
	})

	t.Run("failed participant write keeps the entry waiting", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 3))
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		f.participants.createErr = errors.New("connection reset")

		if _, err := f.svc.Promote(ctx, "ev-1", "user-a", "org-1"); err == nil {
			t.Fatal("Promote() succeeded despite participant write failure")
		}
		entry, _ := f.waitlist.GetByEventAndUser(ctx, "ev-1", "user-a")
		if entry.Status != domain.WaitlistWaiting {
			t.Fatalf("entry status = %s, want still waiting for retry", entry.Status)
		}

		// The retry after the outage promotes the same user.
		f.participants.createErr = nil
		promoted, err := f.svc.Promote(ctx, "ev-1", "user-a", "org-1")
		if err != nil {
			t.Fatalf("retry Promote() error = %v", err)
		}
		if promoted.Status != domain.WaitlistPromoted {
			t.Errorf("entry status = %s, want promoted", promoted.Status)
		}
		p, err := f.participants.GetByEventAndUser(ctx, "ev-1", "user-a")
		if err != nil || p.InvitationStatus != domain.InvitationAccepted {
			t.Errorf("participant = %+v, %v; want accepted", p, err)
		}
	})

	t.Run("accepted user from an interrupted attempt is re-promotable", func(t *testing.T) {
		// An earlier attempt accepted the participant but crashed before
		// flipping the entry. The retry must finish without a capacity error
		// even though the user already holds the last slot.
		f := newWaitlistFixture(t, cappedEvent("ev-1", 1))
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if err := f.participants.Create(ctx, domain.NewParticipant("ev-1", "user-a", time.Now())); err != nil {
			t.Fatalf("seed participant: %v", err)
		}
		if _, err := f.participants.UpdateStatus(ctx, "ev-1", "user-a", domain.InvitationAccepted, time.Now()); err != nil {
			t.Fatalf("accept: %v", err)
		}

		entry, err := f.svc.Promote(ctx, "ev-1", "user-a", "org-1")
		if err != nil {
			t.Fatalf("Promote() error = %v", err)
		}
		if entry.Status != domain.WaitlistPromoted {
			t.Errorf("entry status = %s, want promoted", entry.Status)
		}
	})

	t.Run("promoted entry cannot be promoted again", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 3))
		if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if _, err := f.svc.Promote(ctx, "ev-1", "user-a", "org-1"); err != nil {
			t.Fatalf("Promote() error = %v", err)
		}
		_, err := f.svc.Promote(ctx, "ev-1", "user-a", "org-1")
		if !errors.Is(err, domain.ErrInvalidOperation) {
			t.Fatalf("second Promote() error = %v, want ErrInvalidOperation", err)
		}
	})
}

func TestPromoteHead(t *testing.T) {
	ctx := context.Background()

	t.Run("equal priorities break ties by join time", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 2))
		earlier := time.Now().Add(-time.Hour)
		later := time.Now()
		seed := func(user string, joined time.Time) {
			t.Helper()
			if err := f.waitlist.Create(ctx, &domain.WaitlistEntry{
				EventID: "ev-1", UserID: user, Priority: 5,
				Status: domain.WaitlistWaiting, JoinedAt: joined, UpdatedAt: joined,
			}); err != nil {
				t.Fatalf("seed entry: %v", err)
			}
		}
		seed("user-late", later)
		seed("user-early", earlier)

		event, _ := f.events.GetByID(ctx, "ev-1")
		entry, err := f.svc.PromoteHead(ctx, event)
		if err != nil {
			t.Fatalf("PromoteHead() error = %v", err)
		}
		if entry == nil || entry.UserID != "user-early" {
			t.Errorf("promoted = %+v, want the earlier joiner", entry)
		}
	})

	t.Run("empty queue is not an error", func(t *testing.T) {
		f := newWaitlistFixture(t, cappedEvent("ev-1", 2))
		event, _ := f.events.GetByID(ctx, "ev-1")
		entry, err := f.svc.PromoteHead(ctx, event)
		if err != nil || entry != nil {
			t.Fatalf("PromoteHead() = %+v, %v; want nil, nil", entry, err)
		}
	})

	t.Run("uncapped event is a no-op", func(t *testing.T) {
		f := newWaitlistFixture(t, testEvent("ev-1", domain.StatusInviting))
		event, _ := f.events.GetByID(ctx, "ev-1")
		entry, err := f.svc.PromoteHead(ctx, event)
		if err != nil || entry != nil {
			t.Fatalf("PromoteHead() = %+v, %v; want nil, nil", entry, err)
		}
	})
}

func TestExpireForEvent(t *testing.T) {
	ctx := context.Background()
	f := newWaitlistFixture(t, cappedEvent("ev-1", 2))
	if _, err := f.svc.Join(ctx, "ev-1", "user-a", nil, nil); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := f.svc.Join(ctx, "ev-1", "user-b", nil, nil); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := f.svc.Promote(ctx, "ev-1", "user-a", "org-1"); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}

	if err := f.svc.ExpireForEvent(ctx, "ev-1"); err != nil {
		t.Fatalf("ExpireForEvent() error = %v", err)
	}
	a, _ := f.waitlist.GetByEventAndUser(ctx, "ev-1", "user-a")
	if a.Status != domain.WaitlistPromoted {
		t.Errorf("promoted entry status = %s, must not be expired", a.Status)
	}
	b, _ := f.waitlist.GetByEventAndUser(ctx, "ev-1", "user-b")
	if b.Status != domain.WaitlistExpired {
		t.Errorf("waiting entry status = %s, want expired", b.Status)
	}
}
