package alerting

import (
	"maps"
	"slices"
	"time"
)

// Note is a timestamped free-form annotation on an alert. Notes are
// append-only.
type Note struct {
	At   time.Time `json:"at"`
	By   string    `json:"by"`
	Text string    `json:"text"`
}

// Alert is a materialized occurrence of a rule condition being true, or an
// ad hoc report. It has its own lifecycle independent of the condition that
// created it and is never deleted for the life of the process.
type Alert struct {
	ID       string    `json:"id"`
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"` // may be raised by escalation
	Status   Status    `json:"status"`

	Title   string         `json:"title"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Source  string         `json:"source,omitempty"` // rule id for rule-driven alerts

	TriggeredAt    time.Time  `json:"triggered_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	EscalatedAt    *time.Time `json:"escalated_at,omitempty"` // first escalation only

	AssignedTo string            `json:"assigned_to,omitempty"`
	Notes      []Note            `json:"notes,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// clone returns a deep copy so callers can read alert state without holding
// the store lock.
func (a *Alert) clone() *Alert {
	c := *a
	c.Details = maps.Clone(a.Details)
	c.Metadata = maps.Clone(a.Metadata)
	c.Notes = slices.Clone(a.Notes)
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	if a.EscalatedAt != nil {
		t := *a.EscalatedAt
		c.EscalatedAt = &t
	}
	return &c
}

// Draft is the caller-supplied portion of a new alert. The store assigns
// identity, status and the trigger timestamp.
type Draft struct {
	Type     AlertType
	Severity Severity
	Title    string
	Message  string
	Details  map[string]any
	Source   string
	Metadata map[string]string
}
