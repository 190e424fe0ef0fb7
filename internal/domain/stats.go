package domain

import "time"

// StatsBucket is one fixed-width time slice of per-fingerprint rate statistics
type StatsBucket struct {
	Timestamp   time.Time           `json:"timestamp"`
	Count       int64               `json:"count"`
	UniqueUsers map[string]struct{} `json:"-"`
	Severity    Severity            `json:"severity"`
}

// StatsWindow is the pruned bucket list for one fingerprint.
// Derived state: fully reconstructable from event history.
type StatsWindow struct {
	Fingerprint string        `json:"fingerprint"`
	Buckets     []StatsBucket `json:"buckets"`
}

// ErrorStatsResponse is the aggregate stats view for a time range
type ErrorStatsResponse struct {
	TimeRange        string           `json:"time_range"`
	TotalErrors      int              `json:"total_errors"`
	UniqueErrors     int              `json:"unique_errors"`
	AffectedUsers    int              `json:"affected_users"`
	ErrorsByType     map[string]int   `json:"errors_by_type"`
	ErrorsBySeverity map[Severity]int `json:"errors_by_severity"`
	ErrorsOverTime   map[int64]int    `json:"errors_over_time"` // hourly buckets, unix seconds
	TopErrors        []TopError       `json:"top_errors"`
}
