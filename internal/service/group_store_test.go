package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/errwatch/errwatch-backend/internal/domain"
	"github.com/errwatch/errwatch-backend/internal/events"
)

func groupEvent(fp, userID string, ts time.Time) *domain.ErrorEvent {
	return &domain.ErrorEvent{
		ID:          fmt.Sprintf("%s-%d", fp, ts.UnixNano()),
		Fingerprint: fp,
		Timestamp:   ts,
		Message:     "boom",
		Type:        "Error",
		Severity:    domain.SeverityMedium,
		Context:     domain.ErrorContext{UserID: userID, Environment: "test", Version: "1.0"},
	}
}

func TestGroupStore_UpsertCreatesAndCounts(t *testing.T) {
	s := NewGroupStore(100, nil)
	now := time.Now()

	snap, isNew := s.Upsert(groupEvent("fp1", "u1", now))
	if !isNew {
		t.Fatal("first upsert should report a new group")
	}
	if snap.Count != 1 {
		t.Fatalf("count = %d, want 1", snap.Count)
	}
	if snap.Status != domain.StatusUnresolved {
		t.Errorf("status = %s, want unresolved", snap.Status)
	}

	snap, isNew = s.Upsert(groupEvent("fp1", "u2", now.Add(time.Second)))
	if isNew {
		t.Fatal("second upsert should not report a new group")
	}
	if snap.Count != 2 {
		t.Fatalf("count = %d, want 2", snap.Count)
	}
	if snap.AffectedUsers != 2 {
		t.Errorf("affected users = %d, want 2", snap.AffectedUsers)
	}
	if !snap.FirstSeen.Equal(now) {
		t.Errorf("firstSeen moved: %v", snap.FirstSeen)
	}
}

func TestGroupStore_CountNeverDecreasesAcrossOccurrenceCap(t *testing.T) {
	s := NewGroupStore(5, nil)
	now := time.Now()

	var last GroupSnapshot
	for i := 0; i < 20; i++ {
		last, _ = s.Upsert(groupEvent("fp1", "", now.Add(time.Duration(i)*time.Second)))
	}

	if last.Count != 20 {
		t.Fatalf("count = %d, want 20 (cap must not clamp totals)", last.Count)
	}
	detail, ok := s.Detail("fp1", 0)
	if !ok {
		t.Fatal("group missing")
	}
	if len(detail.RecentOccurrences) != 5 {
		t.Fatalf("retained occurrences = %d, want 5", len(detail.RecentOccurrences))
	}
}

func TestGroupStore_ConcurrentUpsertsPublishMonotonicCounts(t *testing.T) {
	bus := events.NewBus(512)
	s := NewGroupStore(100, bus)

	var (
		mu     sync.Mutex
		counts []int64
	)
	bus.Register(events.SubscriberFunc{
		Listen: []string{events.TopicErrorGrouped},
		Fn: func(_ context.Context, evt events.Event) {
			p, ok := evt.Payload.(events.GroupedPayload)
			if !ok || p.Fingerprint != "fp1" {
				return
			}
			mu.Lock()
			counts = append(counts, p.Count)
			mu.Unlock()
		},
	})

	const workers, perWorker = 8, 25
	now := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.Upsert(groupEvent("fp1", "", now))
			}
		}()
	}
	wg.Wait()
	bus.Close()

	if len(counts) != workers*perWorker {
		t.Fatalf("received %d grouped events, want %d", len(counts), workers*perWorker)
	}
	for i, c := range counts {
		if c != int64(i+1) {
			t.Fatalf("counts[%d] = %d, want %d: concurrent captures reached the bus out of order", i, c, i+1)
		}
	}
}

func TestGroupStore_UpsertPublishesCapturedBeforeGrouped(t *testing.T) {
	bus := events.NewBus(16)
	s := NewGroupStore(100, bus)

	var order []string
	bus.Register(events.SubscriberFunc{
		Listen: []string{events.TopicErrorCaptured, events.TopicErrorGrouped},
		Fn: func(_ context.Context, evt events.Event) {
			order = append(order, evt.Type)
		},
	})

	s.Upsert(groupEvent("fp1", "u1", time.Now()))
	bus.Close()

	want := []string{events.TopicErrorCaptured, events.TopicErrorGrouped}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Fatalf("delivery order = %v, want %v", order, want)
	}
}

func TestGroupStore_ResolveIdempotent(t *testing.T) {
	s := NewGroupStore(100, nil)
	s.Upsert(groupEvent("fp1", "u1", time.Now()))

	req := domain.ResolveRequest{ResolvedBy: "alice", Reason: "fixed", Version: "1.1"}
	if !s.Resolve("fp1", req) {
		t.Fatal("resolve on known group should succeed")
	}
	detail, _ := s.Detail("fp1", 0)
	if detail.Status != domain.StatusResolved {
		t.Fatalf("status = %s, want resolved", detail.Status)
	}
	if detail.Resolution == nil || detail.Resolution.ResolvedBy != "alice" {
		t.Fatalf("resolution = %+v", detail.Resolution)
	}
	first := detail.Resolution.Timestamp

	// Resolving again succeeds without rewriting the resolution
	if !s.Resolve("fp1", domain.ResolveRequest{ResolvedBy: "bob"}) {
		t.Fatal("second resolve should still report success")
	}
	detail, _ = s.Detail("fp1", 0)
	if detail.Resolution.ResolvedBy != "alice" || !detail.Resolution.Timestamp.Equal(first) {
		t.Error("second resolve must not overwrite the original resolution")
	}

	if s.Resolve("nope", req) {
		t.Error("resolve on unknown fingerprint should fail")
	}
}

func TestGroupStore_AssignAndNotes(t *testing.T) {
	s := NewGroupStore(100, nil)
	s.Upsert(groupEvent("fp1", "", time.Now()))

	if !s.Assign("fp1", "bob") {
		t.Fatal("assign failed")
	}
	if s.Assign("nope", "bob") {
		t.Error("assign on unknown fingerprint should fail")
	}

	if !s.AddNote("fp1", "seen in staging too", "carol") {
		t.Fatal("add note failed")
	}
	if s.AddNote("nope", "x", "y") {
		t.Error("note on unknown fingerprint should fail")
	}

	detail, _ := s.Detail("fp1", 0)
	if detail.Assignee != "bob" || detail.Status != domain.StatusAssigned {
		t.Errorf("assignee = %s status = %s", detail.Assignee, detail.Status)
	}
	if len(detail.Notes) != 1 || detail.Notes[0].Author != "carol" {
		t.Fatalf("notes = %+v", detail.Notes)
	}
	if detail.Notes[0].ID == "" {
		t.Error("note should get an ID")
	}
}

func TestGroupStore_TopGroupsOrdering(t *testing.T) {
	s := NewGroupStore(100, nil)
	now := time.Now()

	for i := 0; i < 5; i++ {
		s.Upsert(groupEvent("busy", "", now.Add(time.Duration(i)*time.Second)))
	}
	s.Upsert(groupEvent("quiet", "", now))
	s.Upsert(groupEvent("recent", "", now.Add(time.Minute)))

	top := s.TopGroups(now.Add(-time.Hour), 10)
	if len(top) != 3 {
		t.Fatalf("got %d groups, want 3", len(top))
	}
	if top[0].Fingerprint != "busy" {
		t.Errorf("top group = %s, want busy", top[0].Fingerprint)
	}
	// Tie on count=1: most recently seen wins
	if top[1].Fingerprint != "recent" {
		t.Errorf("second group = %s, want recent", top[1].Fingerprint)
	}

	limited := s.TopGroups(now.Add(-time.Hour), 2)
	if len(limited) != 2 {
		t.Errorf("limit not applied, got %d", len(limited))
	}

	// Groups not seen since the cutoff are excluded
	none := s.TopGroups(now.Add(2*time.Hour), 10)
	if len(none) != 0 {
		t.Errorf("expected no groups after future cutoff, got %d", len(none))
	}
}

func TestGroupStore_DetailIsACopy(t *testing.T) {
	s := NewGroupStore(100, nil)
	now := time.Now()
	s.Upsert(groupEvent("fp1", "u1", now))

	detail, _ := s.Detail("fp1", 10)
	detail.Tags = append(detail.Tags, "mutated")
	detail.Environments[0] = "changed"

	fresh, _ := s.Detail("fp1", 10)
	for _, tag := range fresh.Tags {
		if tag == "mutated" {
			t.Error("mutating a detail view must not affect the store")
		}
	}
	if fresh.Environments[0] != "test" {
		t.Error("environment list leaked internal state")
	}
}

func TestGroupStore_StaleFingerprintsAndDelete(t *testing.T) {
	s := NewGroupStore(100, nil)
	now := time.Now()

	s.Upsert(groupEvent("old", "", now.Add(-48*time.Hour)))
	s.Upsert(groupEvent("fresh", "", now))

	stale := s.StaleFingerprints(now.Add(-24 * time.Hour))
	if len(stale) != 1 || stale[0] != "old" {
		t.Fatalf("stale = %v, want [old]", stale)
	}

	s.Delete("old")
	if _, ok := s.Detail("old", 0); ok {
		t.Error("deleted group should be gone")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}
