package alerting

import (
	"sync"
	"time"

	"github.com/driveloop/driveloop/internal/logger"
)

// EscalateFunc is invoked when an escalation level's deadline passes.
type EscalateFunc func(alertID string, levelIndex int, level EscalationLevel)

// Scheduler arms deferred, cancelable escalation timers keyed by alert id.
// Timers fire asynchronously relative to the evaluation loop; a timer racing
// a resolve may produce at most one redundant notification, which the
// escalation contract tolerates.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string][]*time.Timer
	fire   EscalateFunc
	log    logger.Logger
}

// NewScheduler creates a scheduler delivering due levels to fire.
func NewScheduler(fire EscalateFunc, log logger.Logger) *Scheduler {
	return &Scheduler{
		timers: make(map[string][]*time.Timer),
		fire:   fire,
		log:    log,
	}
}

// Arm schedules one timer per policy level at triggeredAt + level.After.
// Levels whose deadline already passed never fire; with process-lifetime
// state that only happens for misconfigured zero delays.
func (s *Scheduler) Arm(alertID string, triggeredAt time.Time, policy *EscalationPolicy) {
	if policy == nil || len(policy.Levels) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, level := range policy.Levels {
		delay := time.Until(triggeredAt.Add(level.After))
		if delay < 0 {
			continue
		}
		idx, lvl := i, level
		timer := time.AfterFunc(delay, func() {
			s.log.Debug("escalation level due",
				logger.String("alert_id", alertID),
				logger.Int("level", idx))
			s.fire(alertID, idx, lvl)
		})
		s.timers[alertID] = append(s.timers[alertID], timer)
	}
}

// Disarm cancels every still-pending timer for the alert. Idempotent:
// disarming an id with no armed timers is a no-op, and stopping an
// already-fired timer does nothing.
func (s *Scheduler) Disarm(alertID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers[alertID] {
		timer.Stop()
	}
	delete(s.timers, alertID)
}

// DisarmAll cancels every pending timer. Called on shutdown.
func (s *Scheduler) DisarmAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timers := range s.timers {
		for _, timer := range timers {
			timer.Stop()
		}
		delete(s.timers, id)
	}
}

// Armed returns the number of timers held for the alert, fired or not.
// Used by statistics and tests.
func (s *Scheduler) Armed(alertID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[alertID])
}
