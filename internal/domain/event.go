package domain

import "time"

// Severity classifies how damaging an error is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// StackFrame is a single parsed stack trace frame
type StackFrame struct {
	Function string `json:"function"`
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	InApp    bool   `json:"in_app"`
}

// ErrorContext carries request/user context attached to a captured error.
// All fields are optional.
type ErrorContext struct {
	UserID      string `json:"user_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	TraceID     string `json:"trace_id,omitempty"`
	URL         string `json:"url,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	IP          string `json:"ip,omitempty"`
	Component   string `json:"component,omitempty"`
	Operation   string `json:"operation,omitempty"`
	Environment string `json:"environment,omitempty"`
	Version     string `json:"version,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	UserInput   string `json:"user_input,omitempty"`
	Duration    int64  `json:"duration_ms,omitempty"`
}

// ErrorMetadata holds derived runtime/client metadata
type ErrorMetadata struct {
	Browser        string `json:"browser,omitempty"`
	OS             string `json:"os,omitempty"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes,omitempty"`
	NumGoroutine   int    `json:"num_goroutine,omitempty"`
	GoVersion      string `json:"go_version,omitempty"`
}

// ErrorEvent is a single captured error occurrence. Immutable once created
// except for Fingerprint, which is assigned during grouping.
type ErrorEvent struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Message      string        `json:"message"`
	Type         string        `json:"type"`
	Code         string        `json:"code,omitempty"`
	RawStack     string        `json:"raw_stack,omitempty"`
	ParsedFrames []StackFrame  `json:"parsed_frames,omitempty"`
	Fingerprint  string        `json:"fingerprint,omitempty"`
	Context      ErrorContext  `json:"context"`
	Severity     Severity      `json:"severity"`
	Tags         []string      `json:"tags,omitempty"`
	Metadata     ErrorMetadata `json:"metadata"`
}

// CaptureRequest is the ingest API payload
type CaptureRequest struct {
	Message string       `json:"message"`
	Type    string       `json:"type"`
	Code    string       `json:"code,omitempty"`
	Stack   string       `json:"stack,omitempty"`
	Context ErrorContext `json:"context"`
}

// CaptureResponse is returned from the ingest endpoint
type CaptureResponse struct {
	ErrorID     string `json:"error_id"`
	Fingerprint string `json:"fingerprint"`
}
