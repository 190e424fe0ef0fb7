package service

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/errwatch/errwatch-backend/internal/domain"
	"github.com/errwatch/errwatch-backend/internal/events"
	"github.com/errwatch/errwatch-backend/pkg/logger"
)

// Analyzer thresholds
const (
	timeAnomalyFactor      = 3.0
	problematicUserErrors  = 10
	correlationWindow      = 5 * time.Minute
	correlationMinConf     = 0.7
	correlationMinCount    = 5
	impactDailyThreshold   = 100.0
	trendingMinCount       = 5
	highErrorRatePerHour   = 50
	patternRetention       = 7 * 24 * time.Hour
	strongCorrelationFloor = 0.5
	reportEntryLimit       = 10
)

type timePattern struct {
	hourly      [24]int64
	daily       [7]int64
	lastUpdated time.Time
}

type userPattern struct {
	errorTypes  map[string]int
	totalErrors int64
	firstError  time.Time
	lastUpdated time.Time
}

type regionPattern struct {
	count       int64
	errors      map[string]int64
	lastUpdated time.Time
}

type correlation struct {
	count      int64
	confidence float64
}

// AnalyzerService runs best-effort pattern and correlation analysis over
// capture events. All of its state is derived and may be dropped without
// correctness loss.
type AnalyzerService struct {
	events *EventStore
	groups *GroupStore
	bus    *events.Bus

	mu           sync.Mutex
	timePatterns map[string]*timePattern
	userPatterns map[string]*userPattern
	regions      map[string]*regionPattern
	correlations map[string]*correlation

	task *RepeatingTask
	now  func() time.Time
}

// NewAnalyzerService creates the analyzer and registers it on the bus for
// inline per-capture analysis
func NewAnalyzerService(eventStore *EventStore, groups *GroupStore, bus *events.Bus, interval time.Duration) *AnalyzerService {
	a := &AnalyzerService{
		events:       eventStore,
		groups:       groups,
		bus:          bus,
		timePatterns: make(map[string]*timePattern),
		userPatterns: make(map[string]*userPattern),
		regions:      make(map[string]*regionPattern),
		correlations: make(map[string]*correlation),
		now:          time.Now,
	}
	a.task = NewRepeatingTask("periodic_analysis", interval, a.runPeriodic)
	if bus != nil {
		bus.Register(a)
	}
	return a
}

// Topics implements events.Subscriber
func (a *AnalyzerService) Topics() []string {
	return []string{events.TopicErrorCaptured}
}

// Handle implements events.Subscriber: inline analysis on every capture
func (a *AnalyzerService) Handle(_ context.Context, evt events.Event) {
	event, ok := evt.Payload.(*domain.ErrorEvent)
	if !ok {
		return
	}
	a.Analyze(event)
}

// Start launches the periodic analysis task
func (a *AnalyzerService) Start() { a.task.Start() }

// Stop halts periodic analysis
func (a *AnalyzerService) Stop() { a.task.Stop() }

// Analyze runs all inline detectors against one event
func (a *AnalyzerService) Analyze(event *domain.ErrorEvent) {
	a.analyzeTimePatterns(event)
	a.analyzeUserPatterns(event)
	a.analyzeGeographicPatterns(event)
	a.findCorrelations(event)
	a.predictImpact(event)
}

func (a *AnalyzerService) emit(topic string, payload any) {
	if a.bus == nil {
		return
	}
	_ = a.bus.Publish(context.Background(), events.Event{Type: topic, Payload: payload})
}

// analyzeTimePatterns maintains hour-of-day and day-of-week histograms per
// fingerprint and flags an hour whose count exceeds 3x the daily average
func (a *AnalyzerService) analyzeTimePatterns(event *domain.ErrorEvent) {
	hour := event.Timestamp.Hour()
	weekday := int(event.Timestamp.Weekday())

	a.mu.Lock()
	p, ok := a.timePatterns[event.Fingerprint]
	if !ok {
		p = &timePattern{}
		a.timePatterns[event.Fingerprint] = p
	}
	p.hourly[hour]++
	p.daily[weekday]++
	p.lastUpdated = event.Timestamp

	var total int64
	for _, c := range p.hourly {
		total += c
	}
	avg := float64(total) / 24
	anomalous := float64(p.hourly[hour]) > avg*timeAnomalyFactor
	count := p.hourly[hour]
	a.mu.Unlock()

	if anomalous {
		a.emit(events.TopicPatternDetected, domain.PatternDetection{
			Type:        domain.PatternTimeAnomaly,
			Fingerprint: event.Fingerprint,
			Hour:        hour,
			Count:       count,
			Average:     avg,
		})
	}
}

// analyzeUserPatterns tracks per-user error-type histograms and flags
// users racking up more than the threshold of total errors
func (a *AnalyzerService) analyzeUserPatterns(event *domain.ErrorEvent) {
	userID := event.Context.UserID
	if userID == "" {
		return
	}

	a.mu.Lock()
	p, ok := a.userPatterns[userID]
	if !ok {
		p = &userPattern{
			errorTypes: make(map[string]int),
			firstError: event.Timestamp,
		}
		a.userPatterns[userID] = p
	}
	p.errorTypes[event.Type]++
	p.totalErrors++
	p.lastUpdated = event.Timestamp

	problematic := p.totalErrors > problematicUserErrors
	var typesCopy map[string]int
	total := p.totalErrors
	if problematic {
		typesCopy = make(map[string]int, len(p.errorTypes))
		for k, v := range p.errorTypes {
			typesCopy[k] = v
		}
	}
	a.mu.Unlock()

	if problematic {
		a.emit(events.TopicPatternDetected, domain.PatternDetection{
			Type:       domain.PatternProblematicUser,
			UserID:     userID,
			Count:      total,
			ErrorTypes: typesCopy,
		})
	}
}

// analyzeGeographicPatterns tallies errors by coarse region. Real GeoIP
// resolution belongs to an external collaborator; private ranges map to
// "local" and everything else to "unknown".
func (a *AnalyzerService) analyzeGeographicPatterns(event *domain.ErrorEvent) {
	if event.Context.IP == "" {
		return
	}
	region := regionFromIP(event.Context.IP)

	a.mu.Lock()
	p, ok := a.regions[region]
	if !ok {
		p = &regionPattern{errors: make(map[string]int64)}
		a.regions[region] = p
	}
	p.count++
	p.errors[event.Fingerprint]++
	p.lastUpdated = event.Timestamp
	a.mu.Unlock()
}

func regionFromIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed != nil && (parsed.IsPrivate() || parsed.IsLoopback()) {
		return "local"
	}
	return "unknown"
}

// findCorrelations scans events in a ±5-minute window around the new event
// and maintains pairwise co-occurrence counters. Confidence is pair count
// over the larger of the two groups' totals. O(window size) per event.
func (a *AnalyzerService) findCorrelations(event *domain.ErrorEvent) {
	nearby := a.events.Around(event.Timestamp, correlationWindow, event.ID)

	type hit struct {
		key   string
		pair  [2]string
		count int64
		conf  float64
	}
	var hits []hit

	a.mu.Lock()
	for _, other := range nearby {
		if other.Fingerprint == event.Fingerprint {
			continue
		}
		key := correlationKey(event.Fingerprint, other.Fingerprint)
		c, ok := a.correlations[key]
		if !ok {
			c = &correlation{}
			a.correlations[key] = c
		}
		c.count++

		largest := max(a.groups.Count(event.Fingerprint), a.groups.Count(other.Fingerprint))
		if largest < 1 {
			largest = 1
		}
		c.confidence = float64(c.count) / float64(largest)

		if c.confidence > correlationMinConf && c.count > correlationMinCount {
			pair := [2]string{event.Fingerprint, other.Fingerprint}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			hits = append(hits, hit{key: key, pair: pair, count: c.count, conf: c.confidence})
		}
	}
	a.mu.Unlock()

	for _, h := range hits {
		a.emit(events.TopicCorrelationDetected, domain.CorrelationDetection{
			Fingerprints: h.pair,
			Confidence:   h.conf,
			Count:        h.count,
		})
	}
}

func correlationKey(fpA, fpB string) string {
	if fpA > fpB {
		fpA, fpB = fpB, fpA
	}
	return fpA + "::" + fpB
}

// predictImpact projects a group's daily volume from its rate so far
func (a *AnalyzerService) predictImpact(event *domain.ErrorEvent) {
	firstSeen, ok := a.groups.FirstSeen(event.Fingerprint)
	if !ok {
		return
	}
	hours := a.now().Sub(firstSeen).Hours()
	if hours <= 0 {
		return
	}

	hourlyRate := float64(a.groups.Count(event.Fingerprint)) / hours
	projected := hourlyRate * 24

	if projected > impactDailyThreshold {
		a.emit(events.TopicImpactPrediction, domain.ImpactPrediction{
			Fingerprint:         event.Fingerprint,
			ProjectedDailyCount: projected,
			Severity:            "high",
			Recommendation:      "Immediate attention required",
		})
	}
}

// runPeriodic is the scheduled analysis pass
func (a *AnalyzerService) runPeriodic(_ context.Context) {
	a.GenerateInsights()
	a.cleanupOldPatterns()
}

// GenerateInsights produces actionable findings from current state and
// emits them as one insights_generated batch when any exist
func (a *AnalyzerService) GenerateInsights() []domain.Insight {
	var insights []domain.Insight

	top := a.groups.TopGroups(time.Time{}, 1)
	if len(top) > 0 && top[0].Count > trendingMinCount {
		insights = append(insights, domain.Insight{
			Type:        "trending_error",
			Title:       "Most frequent error",
			Description: fmt.Sprintf("%s has occurred %d times", top[0].Title, top[0].Count),
			Actionable:  true,
			Priority:    string(top[0].Severity),
		})
	}

	lastHour := a.events.Since(a.now().Add(-time.Hour))
	if len(lastHour) > highErrorRatePerHour {
		insights = append(insights, domain.Insight{
			Type:        "high_error_rate",
			Title:       "High error rate detected",
			Description: fmt.Sprintf("%d errors in the last hour", len(lastHour)),
			Actionable:  true,
			Priority:    "high",
		})
	}

	if len(insights) > 0 {
		a.emit(events.TopicInsightsGenerated, insights)
		logger.Info("analysis generated %d insights", len(insights))
	}
	return insights
}

// cleanupOldPatterns drops pattern state not updated within the retention
// window so derived state cannot grow without bound
func (a *AnalyzerService) cleanupOldPatterns() {
	cutoff := a.now().Add(-patternRetention)

	a.mu.Lock()
	defer a.mu.Unlock()

	for fp, p := range a.timePatterns {
		if p.lastUpdated.Before(cutoff) {
			delete(a.timePatterns, fp)
		}
	}
	for id, p := range a.userPatterns {
		if p.lastUpdated.Before(cutoff) {
			delete(a.userPatterns, id)
		}
	}
	for region, p := range a.regions {
		if p.lastUpdated.Before(cutoff) {
			delete(a.regions, region)
		}
	}
}

// GetAnalysisReport summarizes the analyzer's derived state
func (a *AnalyzerService) GetAnalysisReport() *domain.AnalysisReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	patterns := make([]domain.PatternSummary, 0, len(a.timePatterns)+len(a.userPatterns))
	for fp, p := range a.timePatterns {
		var total int64
		for _, c := range p.hourly {
			total += c
		}
		patterns = append(patterns, domain.PatternSummary{
			Key:         "time:" + fp,
			TotalErrors: total,
			LastUpdated: p.lastUpdated,
		})
	}
	for id, p := range a.userPatterns {
		patterns = append(patterns, domain.PatternSummary{
			Key:         "user:" + id,
			TotalErrors: p.totalErrors,
			LastUpdated: p.lastUpdated,
		})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].TotalErrors != patterns[j].TotalErrors {
			return patterns[i].TotalErrors > patterns[j].TotalErrors
		}
		return patterns[i].Key < patterns[j].Key
	})
	if len(patterns) > reportEntryLimit {
		patterns = patterns[:reportEntryLimit]
	}

	var strong []domain.CorrelationSummary
	for key, c := range a.correlations {
		if c.confidence > strongCorrelationFloor {
			strong = append(strong, domain.CorrelationSummary{
				Key:        key,
				Count:      c.count,
				Confidence: c.confidence,
			})
		}
	}
	sort.Slice(strong, func(i, j int) bool {
		if strong[i].Confidence != strong[j].Confidence {
			return strong[i].Confidence > strong[j].Confidence
		}
		return strings.Compare(strong[i].Key, strong[j].Key) < 0
	})
	if len(strong) > reportEntryLimit {
		strong = strong[:reportEntryLimit]
	}

	return &domain.AnalysisReport{
		PatternsDetected:   len(a.timePatterns) + len(a.userPatterns) + len(a.regions),
		CorrelationsFound:  len(a.correlations),
		TopPatterns:        patterns,
		StrongCorrelations: strong,
	}
}
