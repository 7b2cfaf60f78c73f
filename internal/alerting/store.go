package alerting

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlertNotFound is returned when an operation references an unknown
	// alert id.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidTransition is returned when a lifecycle operation is not
	// permitted from the alert's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Statistics summarizes the store. Resolved counts both terminal states, so
// Active + Resolved always equals Total.
type Statistics struct {
	Total      int               `json:"total"`
	Active     int               `json:"active"`
	Resolved   int               `json:"resolved"`
	BySeverity map[Severity]int  `json:"by_severity"`
	ByType     map[AlertType]int `json:"by_type"`
}

// Store holds every alert for the life of the process and enforces the
// lifecycle state machine. All methods are safe for concurrent use; reads
// return deep copies.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewStore creates an empty alert store.
func NewStore() *Store {
	return &Store{alerts: make(map[string]*Alert)}
}

// Create materializes a new alert from the draft: it assigns a unique id,
// sets status triggered and stamps the trigger time.
func (s *Store) Create(draft Draft) *Alert {
	alert := &Alert{
		ID:          uuid.NewString(),
		Type:        draft.Type,
		Severity:    draft.Severity,
		Status:      StatusTriggered,
		Title:       draft.Title,
		Message:     draft.Message,
		Details:     draft.Details,
		Source:      draft.Source,
		Metadata:    draft.Metadata,
		TriggeredAt: time.Now(),
	}
	s.mu.Lock()
	s.alerts[alert.ID] = alert
	s.mu.Unlock()
	return alert.clone()
}

// Get returns the alert with the given id.
func (s *Store) Get(id string) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, exists := s.alerts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return alert.clone(), nil
}

// Acknowledge moves an alert to acknowledged and assigns it to actor.
// Only triggered and escalated alerts can be acknowledged.
func (s *Store) Acknowledge(id, actor string) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, exists := s.alerts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	if !canTransition(alert.Status, StatusAcknowledged) {
		return nil, fmt.Errorf("%w: cannot acknowledge alert in status %q", ErrInvalidTransition, alert.Status)
	}
	now := time.Now()
	alert.Status = StatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.AssignedTo = actor
	return alert.clone(), nil
}

// Resolve terminates an alert from any non-terminal status, appending a
// timestamped note when one is provided.
func (s *Store) Resolve(id, actor, note string) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, exists := s.alerts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	if !canTransition(alert.Status, StatusResolved) {
		return nil, fmt.Errorf("%w: cannot resolve alert in status %q", ErrInvalidTransition, alert.Status)
	}
	now := time.Now()
	alert.Status = StatusResolved
	alert.ResolvedAt = &now
	if note != "" {
		alert.Notes = append(alert.Notes, Note{At: now, By: actor, Text: note})
	}
	return alert.clone(), nil
}

// SetStatus performs an explicit operator transition (investigating,
// false_positive). Resolve and Acknowledge have dedicated methods because
// they carry extra side effects.
func (s *Store) SetStatus(id string, status Status, actor string) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, exists := s.alerts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	if !canTransition(alert.Status, status) {
		return nil, fmt.Errorf("%w: cannot move alert from %q to %q", ErrInvalidTransition, alert.Status, status)
	}
	now := time.Now()
	alert.Status = status
	if status == StatusFalsePositive {
		alert.ResolvedAt = &now
	}
	if actor != "" {
		alert.AssignedTo = actor
	}
	return alert.clone(), nil
}

// Escalate moves an unresolved alert to escalated, stamping the first
// escalation time and raising severity when the level's severity is higher.
// Returns ok=false (and no error) when the alert is already terminal: a
// timer firing after resolve is expected and silently skipped.
func (s *Store) Escalate(id string, level EscalationLevel) (*Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, exists := s.alerts[id]
	if !exists {
		return nil, false
	}
	if alert.Status.Terminal() {
		return nil, false
	}
	alert.Status = StatusEscalated
	if alert.EscalatedAt == nil {
		now := time.Now()
		alert.EscalatedAt = &now
	}
	if level.Severity.Above(alert.Severity) {
		alert.Severity = level.Severity
	}
	return alert.clone(), true
}

// AppendNote adds a timestamped note to an alert.
func (s *Store) AppendNote(id, actor, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, exists := s.alerts[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	alert.Notes = append(alert.Notes, Note{At: time.Now(), By: actor, Text: text})
	return nil
}

// Active returns all alerts not in a terminal status.
func (s *Store) Active() []*Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Alert
	for _, alert := range s.alerts {
		if !alert.Status.Terminal() {
			out = append(out, alert.clone())
		}
	}
	return out
}

// Statistics computes aggregate counts by full scan, which is fine at
// in-memory scale.
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Statistics{
		BySeverity: make(map[Severity]int),
		ByType:     make(map[AlertType]int),
	}
	for _, alert := range s.alerts {
		stats.Total++
		if alert.Status.Terminal() {
			stats.Resolved++
		} else {
			stats.Active++
		}
		stats.BySeverity[alert.Severity]++
		stats.ByType[alert.Type]++
	}
	return stats
}
