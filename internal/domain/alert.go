package domain

import "time"

// AlertSeverity classifies emitted alerts (distinct from error severity)
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is emitted when a rule condition holds after a capture.
// Alerts are not stored by the engine; delivery and suppression belong
// to downstream notification consumers.
type Alert struct {
	Rule        string        `json:"rule"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	Fingerprint string        `json:"fingerprint"`
	Event       *ErrorEvent   `json:"event,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}
