package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

func storedEvent(id string, ts time.Time) *domain.ErrorEvent {
	return &domain.ErrorEvent{ID: id, Timestamp: ts, Message: "boom", Type: "Error"}
}

func TestEventStore_AddAndGet(t *testing.T) {
	s := NewEventStore()
	now := time.Now()

	s.Add(storedEvent("a", now))
	s.Add(storedEvent("b", now.Add(time.Second)))

	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	ev, ok := s.Get("a")
	if !ok || ev.ID != "a" {
		t.Fatalf("Get(a) = %v, %t", ev, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get on unknown ID should report false")
	}
}

func TestEventStore_Since(t *testing.T) {
	s := NewEventStore()
	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Add(storedEvent(fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	got := s.Since(base.Add(5 * time.Minute))
	if len(got) != 5 {
		t.Fatalf("Since returned %d events, want 5", len(got))
	}
	if got[0].ID != "e5" {
		t.Errorf("first event = %s, want e5", got[0].ID)
	}
}

func TestEventStore_OutOfOrderInsert(t *testing.T) {
	s := NewEventStore()
	base := time.Now()

	s.Add(storedEvent("late", base.Add(2*time.Minute)))
	s.Add(storedEvent("early", base))
	s.Add(storedEvent("mid", base.Add(time.Minute)))

	got := s.Since(base)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	order := []string{got[0].ID, got[1].ID, got[2].ID}
	want := []string{"early", "mid", "late"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEventStore_Around(t *testing.T) {
	s := NewEventStore()
	base := time.Now()

	s.Add(storedEvent("before", base.Add(-10*time.Minute)))
	s.Add(storedEvent("near1", base.Add(-2*time.Minute)))
	s.Add(storedEvent("center", base))
	s.Add(storedEvent("near2", base.Add(3*time.Minute)))
	s.Add(storedEvent("after", base.Add(10*time.Minute)))

	got := s.Around(base, 5*time.Minute, "center")
	if len(got) != 2 {
		t.Fatalf("Around returned %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.ID == "center" || ev.ID == "before" || ev.ID == "after" {
			t.Errorf("unexpected event %s in window", ev.ID)
		}
	}
}

func TestEventStore_PruneOlderThan(t *testing.T) {
	s := NewEventStore()
	base := time.Now()
	for i := 0; i < 6; i++ {
		s.Add(storedEvent(fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Hour)))
	}

	pruned := s.PruneOlderThan(base.Add(3 * time.Hour))
	if pruned != 3 {
		t.Fatalf("pruned = %d, want 3", pruned)
	}
	if s.Len() != 3 {
		t.Fatalf("len after prune = %d, want 3", s.Len())
	}
	if _, ok := s.Get("e0"); ok {
		t.Error("pruned event should be gone from the ID index too")
	}
	if _, ok := s.Get("e3"); !ok {
		t.Error("surviving event should remain retrievable")
	}

	if again := s.PruneOlderThan(base.Add(3 * time.Hour)); again != 0 {
		t.Errorf("second prune removed %d events, want 0", again)
	}
}
