package service

import (
	"context"
	"time"

	"github.com/errwatch/errwatch-backend/internal/domain"
	"github.com/errwatch/errwatch-backend/internal/events"
	"github.com/errwatch/errwatch-backend/pkg/logger"
)

// Default rule thresholds
const (
	highFrequencyBuckets   = 5
	highFrequencyThreshold = 10
)

// RuleContext is the state a rule predicate evaluates against: the group
// snapshot taken by the capture that triggered evaluation, plus the event.
type RuleContext struct {
	Group       GroupSnapshot
	Event       *domain.ErrorEvent
	RecentCount int64 // events in the last highFrequencyBuckets buckets
}

// AlertRule is a named pure predicate with its alert metadata
type AlertRule struct {
	Name      string
	Severity  domain.AlertSeverity
	Message   string
	Condition func(RuleContext) bool
}

// AlertEngine evaluates registered rules synchronously after each capture.
// Every satisfied rule emits one alert; the engine never suppresses
// repeats (downstream notification transports rate-limit).
type AlertEngine struct {
	rules []AlertRule
	stats *StatsAggregator
	bus   *events.Bus
}

// NewAlertEngine creates an engine with the default rule set registered
func NewAlertEngine(stats *StatsAggregator, bus *events.Bus) *AlertEngine {
	e := &AlertEngine{stats: stats, bus: bus}
	e.registerDefaultRules()
	return e
}

// Register adds a rule. Rules are process-wide and registered at startup.
func (e *AlertEngine) Register(rule AlertRule) {
	e.rules = append(e.rules, rule)
}

func (e *AlertEngine) registerDefaultRules() {
	e.Register(AlertRule{
		Name:     "high_frequency",
		Severity: domain.AlertWarning,
		Message:  "High error frequency detected",
		Condition: func(rc RuleContext) bool {
			return rc.RecentCount > highFrequencyThreshold
		},
	})
	e.Register(AlertRule{
		Name:     "critical_error",
		Severity: domain.AlertCritical,
		Message:  "Critical error occurred",
		Condition: func(rc RuleContext) bool {
			// Fires on every critical occurrence, not just the first
			return rc.Event.Severity == domain.SeverityCritical
		},
	})
	e.Register(AlertRule{
		Name:     "new_error",
		Severity: domain.AlertInfo,
		Message:  "New error type detected",
		Condition: func(rc RuleContext) bool {
			return rc.Group.Count == 1
		},
	})
}

// Evaluate runs every rule against the just-updated state. Returns the
// alerts fired so the capture path can report them synchronously.
func (e *AlertEngine) Evaluate(snap GroupSnapshot, event *domain.ErrorEvent) []domain.Alert {
	rc := RuleContext{
		Group:       snap,
		Event:       event,
		RecentCount: e.stats.RecentCount(event.Fingerprint, highFrequencyBuckets),
	}

	var fired []domain.Alert
	for _, rule := range e.rules {
		if !rule.Condition(rc) {
			continue
		}
		alert := domain.Alert{
			Rule:        rule.Name,
			Severity:    rule.Severity,
			Message:     rule.Message,
			Fingerprint: event.Fingerprint,
			Event:       event,
			Timestamp:   time.Now(),
		}
		fired = append(fired, alert)

		flog := logger.WithFingerprint(event.Fingerprint)
		flog.Warn().
			Str("rule", rule.Name).
			Str("severity", string(rule.Severity)).
			Msg("alert triggered")

		if e.bus != nil {
			_ = e.bus.Publish(context.Background(), events.Event{
				Type:    events.TopicAlertTriggered,
				Payload: alert,
			})
		}
	}
	return fired
}
