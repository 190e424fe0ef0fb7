package domain

import "time"

// GroupStatus is the triage state of an error group
type GroupStatus string

const (
	StatusUnresolved   GroupStatus = "unresolved"
	StatusAcknowledged GroupStatus = "acknowledged"
	StatusAssigned     GroupStatus = "assigned"
	StatusResolved     GroupStatus = "resolved"
)

// Occurrence is a lightweight reference to one event in a group's recent ring
type Occurrence struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	UserID    string       `json:"user_id,omitempty"`
	Context   ErrorContext `json:"context"`
}

// Note is a triage annotation on a group
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// Resolution records how a group was resolved
type Resolution struct {
	Timestamp  time.Time `json:"timestamp"`
	ResolvedBy string    `json:"resolved_by,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Version    string    `json:"version,omitempty"`
}

// ErrorGroup aggregates all events sharing one fingerprint.
// Invariants: Count >= len(Occurrences); LastSeen >= FirstSeen.
type ErrorGroup struct {
	Fingerprint   string              `json:"fingerprint"`
	Title         string              `json:"title"`
	FirstSeen     time.Time           `json:"first_seen"`
	LastSeen      time.Time           `json:"last_seen"`
	Count         int64               `json:"count"`
	Severity      Severity            `json:"severity"`
	Status        GroupStatus         `json:"status"`
	Assignee      string              `json:"assignee,omitempty"`
	Tags          []string            `json:"tags,omitempty"`
	AffectedUsers map[string]struct{} `json:"-"`
	Environments  map[string]struct{} `json:"-"`
	Versions      map[string]struct{} `json:"-"`
	Occurrences   []Occurrence        `json:"-"`
	Notes         []Note              `json:"notes,omitempty"`
	Resolution    *Resolution         `json:"resolution,omitempty"`
}

// ResolveRequest is the management API payload for resolving a group
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Reason     string `json:"reason"`
	Version    string `json:"version"`
}

// AssignRequest is the management API payload for assigning a group
type AssignRequest struct {
	Assignee string `json:"assignee" binding:"required"`
}

// AddNoteRequest is the management API payload for annotating a group
type AddNoteRequest struct {
	Content string `json:"content" binding:"required"`
	Author  string `json:"author"`
}

// TopError is a compact group summary for ranked lists
type TopError struct {
	Fingerprint   string      `json:"fingerprint"`
	Title         string      `json:"title"`
	Count         int64       `json:"count"`
	AffectedUsers int         `json:"affected_users"`
	LastSeen      time.Time   `json:"last_seen"`
	Severity      Severity    `json:"severity"`
	Status        GroupStatus `json:"status"`
}

// SampleError is the representative event embedded in a group detail view
type SampleError struct {
	Message string       `json:"message"`
	Stack   string       `json:"stack,omitempty"`
	Context ErrorContext `json:"context"`
}

// GroupDetailResponse is the full group view returned by the detail endpoint
type GroupDetailResponse struct {
	Fingerprint       string       `json:"fingerprint"`
	Title             string       `json:"title"`
	FirstSeen         time.Time    `json:"first_seen"`
	LastSeen          time.Time    `json:"last_seen"`
	Count             int64        `json:"count"`
	Severity          Severity     `json:"severity"`
	Status            GroupStatus  `json:"status"`
	Assignee          string       `json:"assignee,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
	AffectedUsers     int          `json:"affected_users"`
	Environments      []string     `json:"environments"`
	Versions          []string     `json:"versions"`
	RecentOccurrences []Occurrence `json:"recent_occurrences"`
	Notes             []Note       `json:"notes,omitempty"`
	Resolution        *Resolution  `json:"resolution,omitempty"`
	SampleError       *SampleError `json:"sample_error,omitempty"`
}
