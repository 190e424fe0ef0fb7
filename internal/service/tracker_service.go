package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/errwatch/errwatch-backend/internal/config"
	"github.com/errwatch/errwatch-backend/internal/domain"
	"github.com/errwatch/errwatch-backend/pkg/cache"
	"github.com/errwatch/errwatch-backend/pkg/logger"
)

// Recognized stats time ranges
var statsRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// TrackerService is the error tracking engine's front door: capture,
// query, and management operations over the in-memory stores.
type TrackerService struct {
	cfg    config.TrackingConfig
	parser *StackParser
	events *EventStore
	groups *GroupStore
	stats  *StatsAggregator
	alerts *AlertEngine
	cache  cache.Service

	now func() time.Time
}

// NewTrackerService wires the engine components together
func NewTrackerService(
	cfg config.TrackingConfig,
	eventStore *EventStore,
	groups *GroupStore,
	stats *StatsAggregator,
	alerts *AlertEngine,
) *TrackerService {
	return &TrackerService{
		cfg:    cfg,
		parser: NewStackParser(cfg.MaxStackTraceDepth),
		events: eventStore,
		groups: groups,
		stats:  stats,
		alerts: alerts,
		now:    time.Now,
	}
}

// SetCache sets the optional Redis read cache for query results
func (s *TrackerService) SetCache(c cache.Service) {
	s.cache = c
}

// Capture ingests one error. Malformed input is defaulted, never rejected:
// a missing stack yields an empty frame list, a missing type a generic one.
// Group upsert, stats update, and alert evaluation complete before return,
// so the caller observes consistent state immediately. Bus publication of
// error_captured and error_grouped happens inside the group store, where
// per-fingerprint ordering is enforced.
func (s *TrackerService) Capture(req domain.CaptureRequest) domain.CaptureResponse {
	event := s.processError(req)
	event.Fingerprint = Fingerprint(event)

	s.events.Add(event)
	snap, isNew := s.groups.Upsert(event)
	s.stats.Record(event)
	fired := s.alerts.Evaluate(snap, event)

	observeCapture(event.Severity, len(fired), isNew)
	setGroupGauges(s.groups.Len(), s.events.Len())

	s.log(event).Debug().
		Str("type", event.Type).
		Str("severity", string(event.Severity)).
		Int64("group_count", snap.Count).
		Int("alerts", len(fired)).
		Msg("error captured")

	return domain.CaptureResponse{
		ErrorID:     event.ID,
		Fingerprint: event.Fingerprint,
	}
}

// processError normalizes the raw payload into an immutable ErrorEvent
func (s *TrackerService) processError(req domain.CaptureRequest) *domain.ErrorEvent {
	now := s.now()

	errType := req.Type
	if errType == "" {
		errType = "Error"
	}

	ctx := req.Context
	if ctx.Environment == "" {
		ctx.Environment = s.cfg.Environment
	}
	if ctx.Version == "" {
		ctx.Version = s.cfg.Version
	}

	return &domain.ErrorEvent{
		ID:           uuid.New().String(),
		Timestamp:    now,
		Message:      req.Message,
		Type:         errType,
		Code:         req.Code,
		RawStack:     req.Stack,
		ParsedFrames: s.parser.Parse(req.Stack),
		Context:      ctx,
		Severity:     CalculateSeverity(errType, req.Message, req.Code, ctx),
		Tags:         extractTags(req.Code, ctx),
		Metadata:     extractMetadata(ctx),
	}
}

// GetErrorStats aggregates capture activity over a named time range.
// Unknown ranges fall back to 24h, matching the chosen default surface.
func (s *TrackerService) GetErrorStats(timeRange string) *domain.ErrorStatsResponse {
	rangeDur, ok := statsRanges[timeRange]
	if !ok {
		timeRange = "24h"
		rangeDur = statsRanges[timeRange]
	}

	if s.cache != nil && s.cache.IsAvailable() {
		var cached domain.ErrorStatsResponse
		if err := s.cache.Get(context.Background(), cache.PrefixStats+timeRange, &cached); err == nil {
			return &cached
		}
	}

	start := s.now().Add(-rangeDur)
	recent := s.events.Since(start)

	byType := make(map[string]int)
	bySeverity := make(map[domain.Severity]int)
	overTime := make(map[int64]int)
	fingerprints := make(map[string]struct{})
	users := make(map[string]struct{})

	for _, ev := range recent {
		byType[ev.Type]++
		bySeverity[ev.Severity]++
		hour := ev.Timestamp.Truncate(time.Hour).Unix()
		overTime[hour]++
		fingerprints[ev.Fingerprint] = struct{}{}
		if ev.Context.UserID != "" {
			users[ev.Context.UserID] = struct{}{}
		}
	}

	resp := &domain.ErrorStatsResponse{
		TimeRange:        timeRange,
		TotalErrors:      len(recent),
		UniqueErrors:     len(fingerprints),
		AffectedUsers:    len(users),
		ErrorsByType:     byType,
		ErrorsBySeverity: bySeverity,
		ErrorsOverTime:   overTime,
		TopErrors:        s.groups.TopGroups(start, 10),
	}

	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.SetStats(context.Background(), timeRange, resp); err != nil {
			logger.Warn("stats cache write failed: %v", err)
		}
	}
	return resp
}

// GetTopErrors returns groups active since the given time ranked by count
func (s *TrackerService) GetTopErrors(since time.Time, limit int) []domain.TopError {
	return s.groups.TopGroups(since, limit)
}

// GetErrorDetails returns the full group view with recent occurrences and
// one sample event, or false for an unknown fingerprint
func (s *TrackerService) GetErrorDetails(fingerprint string) (*domain.GroupDetailResponse, bool) {
	if s.cache != nil && s.cache.IsAvailable() {
		var cached domain.GroupDetailResponse
		if err := s.cache.Get(context.Background(), cache.PrefixDetail+fingerprint, &cached); err == nil {
			return &cached, true
		}
	}

	detail, ok := s.groups.Detail(fingerprint, 10)
	if !ok {
		return nil, false
	}

	// Sample the oldest retained occurrence: it stays stable while the
	// group keeps recurring, so repeated detail fetches show one exemplar
	if len(detail.RecentOccurrences) > 0 {
		if sample, ok := s.events.Get(detail.RecentOccurrences[0].ID); ok {
			detail.SampleError = &domain.SampleError{
				Message: sample.Message,
				Stack:   sample.RawStack,
				Context: sample.Context,
			}
		}
	}

	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.SetGroupDetail(context.Background(), fingerprint, detail); err != nil {
			logger.Warn("detail cache write failed: %v", err)
		}
	}
	return detail, true
}

// ResolveError marks a group resolved; false when the fingerprint is unknown
func (s *TrackerService) ResolveError(fingerprint string, req domain.ResolveRequest) bool {
	ok := s.groups.Resolve(fingerprint, req)
	if ok {
		s.invalidateDetail(fingerprint)
		// Cached stats embed group status in their top lists
		if s.cache != nil && s.cache.IsAvailable() {
			if err := s.cache.InvalidateStats(context.Background()); err != nil {
				logger.Warn("stats cache invalidation failed: %v", err)
			}
		}
	} else {
		flog := logger.WithFingerprint(fingerprint)
		flog.Warn().Msg("resolve requested for unknown fingerprint")
	}
	return ok
}

// AssignError assigns a group; false when the fingerprint is unknown
func (s *TrackerService) AssignError(fingerprint, assignee string) bool {
	ok := s.groups.Assign(fingerprint, assignee)
	if ok {
		s.invalidateDetail(fingerprint)
	} else {
		flog := logger.WithFingerprint(fingerprint)
		flog.Warn().Msg("assign requested for unknown fingerprint")
	}
	return ok
}

// AddNote annotates a group; false when the fingerprint is unknown
func (s *TrackerService) AddNote(fingerprint, content, author string) bool {
	ok := s.groups.AddNote(fingerprint, content, author)
	if ok {
		s.invalidateDetail(fingerprint)
	}
	return ok
}

func (s *TrackerService) invalidateDetail(fingerprint string) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}
	if err := s.cache.InvalidateGroupDetail(context.Background(), fingerprint); err != nil {
		logger.Warn("detail cache invalidation failed: %v", err)
	}
}

func (s *TrackerService) log(event *domain.ErrorEvent) *zerolog.Logger {
	l := logger.WithFingerprint(event.Fingerprint)
	return &l
}
