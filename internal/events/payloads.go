package events

import "github.com/errwatch/errwatch-backend/internal/domain"

// GroupedPayload accompanies error_grouped events
type GroupedPayload struct {
	Fingerprint string             `json:"fingerprint"`
	Count       int64              `json:"count"`
	IsNew       bool               `json:"is_new"`
	Event       *domain.ErrorEvent `json:"event,omitempty"`
}

// ResolvedPayload accompanies error_resolved events
type ResolvedPayload struct {
	Fingerprint string            `json:"fingerprint"`
	Resolution  domain.Resolution `json:"resolution"`
}

// AssignedPayload accompanies error_assigned events
type AssignedPayload struct {
	Fingerprint string `json:"fingerprint"`
	Assignee    string `json:"assignee"`
}

// NotePayload accompanies note_added events
type NotePayload struct {
	Fingerprint string      `json:"fingerprint"`
	Note        domain.Note `json:"note"`
}
