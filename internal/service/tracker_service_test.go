package service

import (
	"testing"
	"time"

	"github.com/errwatch/errwatch-backend/internal/config"
	"github.com/errwatch/errwatch-backend/internal/domain"
)

func newTestTracker(t *testing.T) *TrackerService {
	t.Helper()
	cfg := config.TrackingConfig{
		Environment:        "test",
		Version:            "1.0.0",
		MaxStackTraceDepth: 50,
		AggregationWindow:  5 * time.Minute,
		BucketWidth:        time.Minute,
		MaxOccurrences:     100,
	}
	stats := NewStatsAggregator(cfg.AggregationWindow, cfg.BucketWidth)
	return NewTrackerService(
		cfg,
		NewEventStore(),
		NewGroupStore(cfg.MaxOccurrences, nil),
		stats,
		NewAlertEngine(stats, nil),
	)
}

func captureRequest(userID string) domain.CaptureRequest {
	return domain.CaptureRequest{
		Message: "Cannot read property 'name' of undefined",
		Type:    "TypeError",
		Stack:   "TypeError: Cannot read property 'name' of undefined\n    at getUser (src/users.js:15:3)",
		Context: domain.ErrorContext{UserID: userID, UserInput: "{}"},
	}
}

func TestTracker_CaptureGroupsRepeats(t *testing.T) {
	tracker := newTestTracker(t)

	var fp string
	for i := 0; i < 3; i++ {
		resp := tracker.Capture(captureRequest("U1"))
		if resp.ErrorID == "" || resp.Fingerprint == "" {
			t.Fatalf("capture response incomplete: %+v", resp)
		}
		if fp == "" {
			fp = resp.Fingerprint
		} else if resp.Fingerprint != fp {
			t.Fatalf("repeat capture produced new fingerprint %s != %s", resp.Fingerprint, fp)
		}
	}

	detail, ok := tracker.GetErrorDetails(fp)
	if !ok {
		t.Fatal("group missing after capture")
	}
	if detail.Count != 3 {
		t.Errorf("group count = %d, want 3", detail.Count)
	}
	if detail.AffectedUsers != 1 {
		t.Errorf("affected users = %d, want 1", detail.AffectedUsers)
	}
	if detail.Severity != domain.SeverityMedium {
		t.Errorf("severity = %s, want medium", detail.Severity)
	}
	if detail.Status != domain.StatusUnresolved {
		t.Errorf("status = %s, want unresolved", detail.Status)
	}
}

func TestTracker_CaptureDefaultsMissingFields(t *testing.T) {
	tracker := newTestTracker(t)

	resp := tracker.Capture(domain.CaptureRequest{Message: "minimal"})
	detail, ok := tracker.GetErrorDetails(resp.Fingerprint)
	if !ok {
		t.Fatal("group missing")
	}
	if detail.SampleError == nil {
		t.Fatal("sample error missing")
	}
	// Type defaults, environment/version come from the tracker config
	if want := "Error: minimal in Unknown"; detail.Title != want {
		t.Errorf("title = %q, want %q", detail.Title, want)
	}
	if len(detail.Environments) != 1 || detail.Environments[0] != "test" {
		t.Errorf("environments = %v", detail.Environments)
	}
	if len(detail.Versions) != 1 || detail.Versions[0] != "1.0.0" {
		t.Errorf("versions = %v", detail.Versions)
	}
}

func TestTracker_CriticalSeverityFromMessage(t *testing.T) {
	tracker := newTestTracker(t)

	resp := tracker.Capture(domain.CaptureRequest{
		Message: "unauthorized access to admin panel",
		Type:    "Error",
	})
	detail, _ := tracker.GetErrorDetails(resp.Fingerprint)
	if detail.Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical", detail.Severity)
	}
}

func TestTracker_GetErrorStats(t *testing.T) {
	tracker := newTestTracker(t)

	for i := 0; i < 3; i++ {
		tracker.Capture(captureRequest("U1"))
	}
	tracker.Capture(domain.CaptureRequest{
		Message: "database connection lost",
		Type:    "Error",
		Context: domain.ErrorContext{UserID: "U2"},
	})

	stats := tracker.GetErrorStats("1h")
	if stats.TimeRange != "1h" {
		t.Errorf("time range = %s", stats.TimeRange)
	}
	if stats.TotalErrors != 4 {
		t.Errorf("total errors = %d, want 4", stats.TotalErrors)
	}
	if stats.UniqueErrors != 2 {
		t.Errorf("unique errors = %d, want 2", stats.UniqueErrors)
	}
	if stats.AffectedUsers != 2 {
		t.Errorf("affected users = %d, want 2", stats.AffectedUsers)
	}
	if stats.ErrorsByType["TypeError"] != 3 {
		t.Errorf("TypeError count = %d, want 3", stats.ErrorsByType["TypeError"])
	}
	if stats.ErrorsBySeverity[domain.SeverityHigh] != 1 {
		t.Errorf("high severity count = %d, want 1", stats.ErrorsBySeverity[domain.SeverityHigh])
	}
	if len(stats.TopErrors) != 2 {
		t.Errorf("top errors = %d entries, want 2", len(stats.TopErrors))
	}
	if stats.TopErrors[0].Count != 3 {
		t.Errorf("top error count = %d, want 3", stats.TopErrors[0].Count)
	}
}

func TestTracker_StatsUnknownRangeFallsBack(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.Capture(captureRequest("U1"))

	stats := tracker.GetErrorStats("3 weeks")
	if stats.TimeRange != "24h" {
		t.Errorf("unknown range should fall back to 24h, got %s", stats.TimeRange)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("total errors = %d, want 1", stats.TotalErrors)
	}
}

func TestTracker_GetTopErrors(t *testing.T) {
	tracker := newTestTracker(t)

	for i := 0; i < 5; i++ {
		tracker.Capture(captureRequest("U1"))
	}
	tracker.Capture(domain.CaptureRequest{Message: "rare failure", Type: "Error"})

	top := tracker.GetTopErrors(time.Now().Add(-time.Hour), 1)
	if len(top) != 1 {
		t.Fatalf("got %d groups, want 1", len(top))
	}
	if top[0].Count != 5 {
		t.Errorf("top count = %d, want 5", top[0].Count)
	}
}

func TestTracker_DetailsIncludeSample(t *testing.T) {
	tracker := newTestTracker(t)
	resp := tracker.Capture(captureRequest("U1"))

	detail, ok := tracker.GetErrorDetails(resp.Fingerprint)
	if !ok {
		t.Fatal("details missing")
	}
	if detail.SampleError == nil {
		t.Fatal("sample error missing")
	}
	if detail.SampleError.Message != "Cannot read property 'name' of undefined" {
		t.Errorf("sample message = %q", detail.SampleError.Message)
	}
	if detail.SampleError.Stack == "" {
		t.Error("sample should carry the raw stack")
	}

	if _, ok := tracker.GetErrorDetails("does-not-exist"); ok {
		t.Error("unknown fingerprint should report not found")
	}
}

func TestTracker_SampleIsOldestRetainedOccurrence(t *testing.T) {
	tracker := newTestTracker(t)

	first := tracker.Capture(domain.CaptureRequest{
		Message: "query timeout after 30ms",
		Type:    "TimeoutError",
	})
	second := tracker.Capture(domain.CaptureRequest{
		Message: "query timeout after 4500ms",
		Type:    "TimeoutError",
	})
	if first.Fingerprint != second.Fingerprint {
		t.Fatal("digit-normalized messages should share a fingerprint")
	}

	detail, ok := tracker.GetErrorDetails(first.Fingerprint)
	if !ok || detail.SampleError == nil {
		t.Fatal("sample error missing")
	}
	if detail.SampleError.Message != "query timeout after 30ms" {
		t.Errorf("sample message = %q, want the first occurrence", detail.SampleError.Message)
	}
}

func TestTracker_ManagementOperations(t *testing.T) {
	tracker := newTestTracker(t)
	resp := tracker.Capture(captureRequest("U1"))
	fp := resp.Fingerprint

	if !tracker.AssignError(fp, "bob") {
		t.Fatal("assign failed")
	}
	if !tracker.AddNote(fp, "happens during deploys", "carol") {
		t.Fatal("note failed")
	}
	if !tracker.ResolveError(fp, domain.ResolveRequest{ResolvedBy: "bob", Reason: "fixed"}) {
		t.Fatal("resolve failed")
	}

	detail, _ := tracker.GetErrorDetails(fp)
	if detail.Status != domain.StatusResolved {
		t.Errorf("status = %s, want resolved", detail.Status)
	}
	if detail.Assignee != "bob" || len(detail.Notes) != 1 {
		t.Errorf("assignee = %s notes = %d", detail.Assignee, len(detail.Notes))
	}

	if tracker.ResolveError("nope", domain.ResolveRequest{}) {
		t.Error("resolve on unknown fingerprint should fail")
	}
	if tracker.AssignError("nope", "x") {
		t.Error("assign on unknown fingerprint should fail")
	}
	if tracker.AddNote("nope", "x", "y") {
		t.Error("note on unknown fingerprint should fail")
	}
}
