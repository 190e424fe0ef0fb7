package service

import (
	"sync"
	"time"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

// StatsAggregator maintains per-fingerprint sliding-window rate buckets.
// Memory per fingerprint is bounded to aggregationWindow/bucketWidth (+1)
// buckets no matter how fast events arrive.
type StatsAggregator struct {
	mu      sync.RWMutex
	windows map[string]*domain.StatsWindow

	aggregationWindow time.Duration
	bucketWidth       time.Duration
}

// NewStatsAggregator creates an aggregator with the given horizon and
// bucket width (defaults: 5 minutes / 1 minute)
func NewStatsAggregator(aggregationWindow, bucketWidth time.Duration) *StatsAggregator {
	if aggregationWindow <= 0 {
		aggregationWindow = 5 * time.Minute
	}
	if bucketWidth <= 0 {
		bucketWidth = time.Minute
	}
	return &StatsAggregator{
		windows:           make(map[string]*domain.StatsWindow),
		aggregationWindow: aggregationWindow,
		bucketWidth:       bucketWidth,
	}
}

// Record updates the current bucket for the event's fingerprint: prunes
// buckets older than the horizon, then increments the bucket covering now.
func (a *StatsAggregator) Record(event *domain.ErrorEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.windows[event.Fingerprint]
	if !ok {
		w = &domain.StatsWindow{Fingerprint: event.Fingerprint}
		a.windows[event.Fingerprint] = w
	}

	now := event.Timestamp
	horizon := now.Add(-a.aggregationWindow)

	// Drop expired buckets (they are ordered oldest first)
	keep := 0
	for keep < len(w.Buckets) && !w.Buckets[keep].Timestamp.After(horizon) {
		keep++
	}
	if keep > 0 {
		w.Buckets = append(w.Buckets[:0], w.Buckets[keep:]...)
	}

	// Find or open the bucket covering now
	var bucket *domain.StatsBucket
	if n := len(w.Buckets); n > 0 {
		last := &w.Buckets[n-1]
		if now.Sub(last.Timestamp) < a.bucketWidth {
			bucket = last
		}
	}
	if bucket == nil {
		w.Buckets = append(w.Buckets, domain.StatsBucket{
			Timestamp:   now,
			UniqueUsers: make(map[string]struct{}),
			Severity:    event.Severity,
		})
		bucket = &w.Buckets[len(w.Buckets)-1]
	}

	bucket.Count++
	if event.Context.UserID != "" {
		bucket.UniqueUsers[event.Context.UserID] = struct{}{}
	}
}

// RecentCount sums event counts across the last n buckets of a fingerprint
func (a *StatsAggregator) RecentCount(fingerprint string, n int) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	w, ok := a.windows[fingerprint]
	if !ok {
		return 0
	}
	buckets := w.Buckets
	if n > 0 && len(buckets) > n {
		buckets = buckets[len(buckets)-n:]
	}
	var total int64
	for i := range buckets {
		total += buckets[i].Count
	}
	return total
}

// BucketCount returns how many live buckets a fingerprint currently holds
func (a *StatsAggregator) BucketCount(fingerprint string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if w, ok := a.windows[fingerprint]; ok {
		return len(w.Buckets)
	}
	return 0
}

// Delete removes a fingerprint's window. Called by the retention sweeper
// together with the group deletion so no orphaned window survives.
func (a *StatsAggregator) Delete(fingerprint string) {
	a.mu.Lock()
	delete(a.windows, fingerprint)
	a.mu.Unlock()
}

// Len returns the number of tracked fingerprints
func (a *StatsAggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.windows)
}
