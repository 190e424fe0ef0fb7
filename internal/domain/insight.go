package domain

import "time"

// Pattern analysis output types
const (
	PatternTimeAnomaly     = "time_anomaly"
	PatternProblematicUser = "problematic_user"
)

// PatternDetection is an inline analysis finding
type PatternDetection struct {
	Type        string         `json:"type"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	Hour        int            `json:"hour,omitempty"`
	Count       int64          `json:"count"`
	Average     float64        `json:"average,omitempty"`
	ErrorTypes  map[string]int `json:"error_types,omitempty"`
}

// CorrelationDetection reports two fingerprints that co-occur in time
type CorrelationDetection struct {
	Fingerprints [2]string `json:"fingerprints"`
	Confidence   float64   `json:"confidence"`
	Count        int64     `json:"count"`
}

// ImpactPrediction projects a fingerprint's daily volume from its rate so far
type ImpactPrediction struct {
	Fingerprint         string  `json:"fingerprint"`
	ProjectedDailyCount float64 `json:"projected_daily_count"`
	Severity            string  `json:"severity"`
	Recommendation      string  `json:"recommendation"`
}

// Insight is an actionable finding produced by periodic analysis
type Insight struct {
	Type        string `json:"type"` // "trending_error", "high_error_rate"
	Title       string `json:"title"`
	Description string `json:"description"`
	Actionable  bool   `json:"actionable"`
	Priority    string `json:"priority"`
}

// CorrelationSummary is a reportable pairwise correlation entry
type CorrelationSummary struct {
	Key        string  `json:"key"` // sorted fingerprint pair joined by "::"
	Count      int64   `json:"count"`
	Confidence float64 `json:"confidence"`
}

// PatternSummary is a reportable pattern entry
type PatternSummary struct {
	Key         string    `json:"key"`
	TotalErrors int64     `json:"total_errors"`
	LastUpdated time.Time `json:"last_updated"`
}

// AnalysisReport is the analyzer's read-only status view
type AnalysisReport struct {
	PatternsDetected   int                  `json:"patterns_detected"`
	CorrelationsFound  int                  `json:"correlations_found"`
	TopPatterns        []PatternSummary     `json:"top_patterns"`
	StrongCorrelations []CorrelationSummary `json:"strong_correlations"`
}
