package service

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/errwatch/errwatch-backend/internal/domain"
	"github.com/errwatch/errwatch-backend/internal/events"
)

const groupShardCount = 32

// GroupStore maps fingerprints to aggregate group state. Sharded so that
// captures of distinct fingerprints proceed in parallel while captures of
// one fingerprint remain atomic.
type GroupStore struct {
	shards         [groupShardCount]groupShard
	maxOccurrences int
	bus            *events.Bus
	now            func() time.Time
}

type groupShard struct {
	mu     sync.RWMutex
	groups map[string]*domain.ErrorGroup

	// Bus events staged under mu and flushed under pubMu, so publishes
	// reach the queue in mutation order without holding mu across a
	// potentially blocking send.
	pubMu  sync.Mutex
	outbox []events.Event
}

// NewGroupStore creates a group store. bus may be nil in tests.
func NewGroupStore(maxOccurrences int, bus *events.Bus) *GroupStore {
	if maxOccurrences <= 0 {
		maxOccurrences = 100
	}
	s := &GroupStore{
		maxOccurrences: maxOccurrences,
		bus:            bus,
		now:            time.Now,
	}
	for i := range s.shards {
		s.shards[i].groups = make(map[string]*domain.ErrorGroup)
	}
	return s
}

func (s *GroupStore) shard(fingerprint string) *groupShard {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return &s.shards[h.Sum32()%groupShardCount]
}

// enqueue stages a bus event. Caller must hold shard.mu; the staged order
// is the mutation order, which flush preserves on the wire.
func (s *GroupStore) enqueue(shard *groupShard, evtType string, payload any) {
	if s.bus == nil {
		return
	}
	shard.outbox = append(shard.outbox, events.Event{Type: evtType, Payload: payload})
}

// flush publishes a shard's staged events. pubMu serializes flushers so that
// whoever wins takes the whole outbox in staged order; a later mutation of
// the same fingerprint cannot reach the bus ahead of an earlier one. shard.mu
// is never held across the queue send, so a subscriber reading the store
// cannot wedge a full queue.
func (s *GroupStore) flush(shard *groupShard) {
	if s.bus == nil {
		return
	}
	shard.pubMu.Lock()
	defer shard.pubMu.Unlock()

	shard.mu.Lock()
	pending := shard.outbox
	shard.outbox = nil
	shard.mu.Unlock()

	for _, evt := range pending {
		_ = s.bus.Publish(context.Background(), evt)
	}
}

// GroupSnapshot is the consistent view of a group taken at upsert time,
// used for synchronous alert evaluation
type GroupSnapshot struct {
	Fingerprint   string
	Title         string
	FirstSeen     time.Time
	LastSeen      time.Time
	Count         int64
	Severity      domain.Severity
	Status        domain.GroupStatus
	AffectedUsers int
}

// Upsert creates the group on first sight of a fingerprint, otherwise
// updates aggregate state. Returns a snapshot consistent with this event.
// The error_captured and error_grouped events are staged while the shard
// is still locked, so a subscriber sees counts for one fingerprint in
// monotonic order even under concurrent captures.
func (s *GroupStore) Upsert(event *domain.ErrorEvent) (GroupSnapshot, bool) {
	shard := s.shard(event.Fingerprint)
	shard.mu.Lock()

	group, exists := shard.groups[event.Fingerprint]
	if !exists {
		group = &domain.ErrorGroup{
			Fingerprint:   event.Fingerprint,
			Title:         buildTitle(event),
			FirstSeen:     event.Timestamp,
			LastSeen:      event.Timestamp,
			Severity:      event.Severity,
			Status:        domain.StatusUnresolved,
			Tags:          append([]string(nil), event.Tags...),
			AffectedUsers: make(map[string]struct{}),
			Environments:  make(map[string]struct{}),
			Versions:      make(map[string]struct{}),
		}
		shard.groups[event.Fingerprint] = group
	}

	group.LastSeen = event.Timestamp
	group.Count++
	group.Severity = event.Severity

	if event.Context.UserID != "" {
		group.AffectedUsers[event.Context.UserID] = struct{}{}
	}
	if event.Context.Environment != "" {
		group.Environments[event.Context.Environment] = struct{}{}
	}
	if event.Context.Version != "" {
		group.Versions[event.Context.Version] = struct{}{}
	}

	group.Occurrences = append(group.Occurrences, domain.Occurrence{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		UserID:    event.Context.UserID,
		Context:   event.Context,
	})
	if len(group.Occurrences) > s.maxOccurrences {
		group.Occurrences = group.Occurrences[len(group.Occurrences)-s.maxOccurrences:]
	}

	snap := GroupSnapshot{
		Fingerprint:   group.Fingerprint,
		Title:         group.Title,
		FirstSeen:     group.FirstSeen,
		LastSeen:      group.LastSeen,
		Count:         group.Count,
		Severity:      group.Severity,
		Status:        group.Status,
		AffectedUsers: len(group.AffectedUsers),
	}
	s.enqueue(shard, events.TopicErrorCaptured, event)
	s.enqueue(shard, events.TopicErrorGrouped, events.GroupedPayload{
		Fingerprint: event.Fingerprint,
		Count:       snap.Count,
		IsNew:       !exists,
		Event:       event,
	})
	shard.mu.Unlock()
	s.flush(shard)

	return snap, !exists
}

// Resolve marks a group resolved. Returns false for an unknown fingerprint.
// Resolving an already-resolved group is a no-op and reports success.
func (s *GroupStore) Resolve(fingerprint string, req domain.ResolveRequest) bool {
	shard := s.shard(fingerprint)
	shard.mu.Lock()

	group, ok := shard.groups[fingerprint]
	if !ok {
		shard.mu.Unlock()
		return false
	}
	if group.Status == domain.StatusResolved {
		shard.mu.Unlock()
		return true
	}

	resolution := domain.Resolution{
		Timestamp:  s.now(),
		ResolvedBy: req.ResolvedBy,
		Reason:     req.Reason,
		Version:    req.Version,
	}
	group.Status = domain.StatusResolved
	group.Resolution = &resolution
	s.enqueue(shard, events.TopicErrorResolved, events.ResolvedPayload{
		Fingerprint: fingerprint,
		Resolution:  resolution,
	})
	shard.mu.Unlock()
	s.flush(shard)
	return true
}

// Assign sets the group's assignee. Returns false for an unknown fingerprint.
func (s *GroupStore) Assign(fingerprint, assignee string) bool {
	shard := s.shard(fingerprint)
	shard.mu.Lock()

	group, ok := shard.groups[fingerprint]
	if !ok {
		shard.mu.Unlock()
		return false
	}
	group.Assignee = assignee
	group.Status = domain.StatusAssigned
	s.enqueue(shard, events.TopicErrorAssigned, events.AssignedPayload{
		Fingerprint: fingerprint,
		Assignee:    assignee,
	})
	shard.mu.Unlock()
	s.flush(shard)
	return true
}

// AddNote appends a triage note. Returns false for an unknown fingerprint.
func (s *GroupStore) AddNote(fingerprint, content, author string) bool {
	shard := s.shard(fingerprint)
	shard.mu.Lock()

	group, ok := shard.groups[fingerprint]
	if !ok {
		shard.mu.Unlock()
		return false
	}
	note := domain.Note{
		ID:        uuid.New().String(),
		Content:   content,
		Author:    author,
		Timestamp: s.now(),
	}
	group.Notes = append(group.Notes, note)
	s.enqueue(shard, events.TopicNoteAdded, events.NotePayload{
		Fingerprint: fingerprint,
		Note:        note,
	})
	shard.mu.Unlock()
	s.flush(shard)
	return true
}

// TopGroups returns groups seen since the given time, ordered by count
// descending, ties broken by most recent lastSeen
func (s *GroupStore) TopGroups(since time.Time, limit int) []domain.TopError {
	if limit <= 0 {
		limit = 10
	}

	var top []domain.TopError
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.RLock()
		for _, g := range shard.groups {
			if g.LastSeen.Before(since) {
				continue
			}
			top = append(top, domain.TopError{
				Fingerprint:   g.Fingerprint,
				Title:         g.Title,
				Count:         g.Count,
				AffectedUsers: len(g.AffectedUsers),
				LastSeen:      g.LastSeen,
				Severity:      g.Severity,
				Status:        g.Status,
			})
		}
		shard.mu.RUnlock()
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].LastSeen.After(top[j].LastSeen)
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

// Detail returns a copied detail view of a group, including its most
// recent occurrences (capped at recentLimit)
func (s *GroupStore) Detail(fingerprint string, recentLimit int) (*domain.GroupDetailResponse, bool) {
	shard := s.shard(fingerprint)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	group, ok := shard.groups[fingerprint]
	if !ok {
		return nil, false
	}

	recent := group.Occurrences
	if recentLimit > 0 && len(recent) > recentLimit {
		recent = recent[len(recent)-recentLimit:]
	}

	detail := &domain.GroupDetailResponse{
		Fingerprint:       group.Fingerprint,
		Title:             group.Title,
		FirstSeen:         group.FirstSeen,
		LastSeen:          group.LastSeen,
		Count:             group.Count,
		Severity:          group.Severity,
		Status:            group.Status,
		Assignee:          group.Assignee,
		Tags:              append([]string(nil), group.Tags...),
		AffectedUsers:     len(group.AffectedUsers),
		Environments:      setToSlice(group.Environments),
		Versions:          setToSlice(group.Versions),
		RecentOccurrences: append([]domain.Occurrence(nil), recent...),
		Notes:             append([]domain.Note(nil), group.Notes...),
	}
	if group.Resolution != nil {
		r := *group.Resolution
		detail.Resolution = &r
	}
	return detail, true
}

// Count returns a group's event count, or 0 when unknown
func (s *GroupStore) Count(fingerprint string) int64 {
	shard := s.shard(fingerprint)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	if g, ok := shard.groups[fingerprint]; ok {
		return g.Count
	}
	return 0
}

// FirstSeen returns when a fingerprint was first captured
func (s *GroupStore) FirstSeen(fingerprint string) (time.Time, bool) {
	shard := s.shard(fingerprint)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	if g, ok := shard.groups[fingerprint]; ok {
		return g.FirstSeen, true
	}
	return time.Time{}, false
}

// StaleFingerprints returns fingerprints whose lastSeen is before cutoff.
// Used by the retention sweeper; collected under read locks per shard so
// concurrent captures stay unblocked.
func (s *GroupStore) StaleFingerprints(cutoff time.Time) []string {
	var stale []string
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.RLock()
		for fp, g := range shard.groups {
			if g.LastSeen.Before(cutoff) {
				stale = append(stale, fp)
			}
		}
		shard.mu.RUnlock()
	}
	return stale
}

// Delete removes a group. Only the retention sweeper calls this.
func (s *GroupStore) Delete(fingerprint string) {
	shard := s.shard(fingerprint)
	shard.mu.Lock()
	delete(shard.groups, fingerprint)
	shard.mu.Unlock()
}

// Len returns the number of active groups
func (s *GroupStore) Len() int {
	n := 0
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.RLock()
		n += len(shard.groups)
		shard.mu.RUnlock()
	}
	return n
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
