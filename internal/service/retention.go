package service

import (
	"context"
	"time"

	"github.com/errwatch/errwatch-backend/pkg/logger"
)

// RetentionSweeper periodically evicts events and groups older than the
// retention horizon. It is the only component allowed to delete group
// state; group and stats-window entries for a fingerprint are removed
// together so no orphaned window survives.
type RetentionSweeper struct {
	events    *EventStore
	groups    *GroupStore
	stats     *StatsAggregator
	retention time.Duration
	task      *RepeatingTask
	now       func() time.Time
}

// NewRetentionSweeper creates a sweeper; Start begins the periodic sweep
func NewRetentionSweeper(events *EventStore, groups *GroupStore, stats *StatsAggregator, retention, interval time.Duration) *RetentionSweeper {
	s := &RetentionSweeper{
		events:    events,
		groups:    groups,
		stats:     stats,
		retention: retention,
		now:       time.Now,
	}
	s.task = NewRepeatingTask("retention_sweep", interval, s.Sweep)
	return s
}

// Start launches the periodic sweep
func (s *RetentionSweeper) Start() { s.task.Start() }

// Stop halts the sweep, letting an in-flight pass finish
func (s *RetentionSweeper) Stop() { s.task.Stop() }

// Sweep performs one eviction pass
func (s *RetentionSweeper) Sweep(_ context.Context) {
	cutoff := s.now().Add(-s.retention)

	pruned := s.events.PruneOlderThan(cutoff)

	stale := s.groups.StaleFingerprints(cutoff)
	for _, fp := range stale {
		s.groups.Delete(fp)
		s.stats.Delete(fp)
	}

	if pruned > 0 || len(stale) > 0 {
		logger.Info("retention sweep: pruned %d events, evicted %d groups", pruned, len(stale))
	}
}
