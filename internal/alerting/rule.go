package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/driveloop/driveloop/internal/logger"
)

// Condition is a predicate over a metrics snapshot. A panicking condition is
// recovered by the registry and treated as not satisfied.
type Condition func(Snapshot) bool

// EscalationLevel is one step of an escalation policy. It fires at
// TriggeredAt + After if the alert is still unresolved.
type EscalationLevel struct {
	After    time.Duration // time since trigger at which this level fires
	Severity Severity      // severity assigned at this level (only ever raises)
	Channels []Channel     // channel set re-notified at this level
	Notify   []string      // specific recipients notified directly
}

// EscalationPolicy is an ordered sequence of levels. Each level fires at most
// once per alert, and only while the alert is unresolved.
type EscalationPolicy struct {
	Levels []EscalationLevel
}

// Rule is a named condition over a metrics snapshot plus the severity,
// channels, cooldown and escalation policy applied when it is satisfied.
type Rule struct {
	ID          string
	Name        string
	Type        AlertType
	Condition   Condition
	Severity    Severity
	Channels    []Channel
	Cooldown    time.Duration // suppression window after a fire
	AutoResolve bool          // resolve open alerts when the condition clears
	Escalation  *EscalationPolicy
	Enabled     bool
}

// Registry owns the rule set. The manager only reads it via Evaluate.
type Registry struct {
	mu        sync.RWMutex
	rules     map[string]*Rule
	order     []string // insertion order, for deterministic evaluation
	cooldowns *CooldownTracker
	log       logger.Logger
}

// NewRegistry creates an empty rule registry sharing the given cooldown
// tracker with the manager.
func NewRegistry(cooldowns *CooldownTracker, log logger.Logger) *Registry {
	return &Registry{
		rules:     make(map[string]*Rule),
		cooldowns: cooldowns,
		log:       log,
	}
}

// Add inserts or replaces a rule by id. Last write wins.
func (r *Registry) Add(rule *Rule) error {
	if rule == nil || rule.ID == "" || rule.Condition == nil {
		return fmt.Errorf("invalid rule: id and condition are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[rule.ID]; !exists {
		r.order = append(r.order, rule.ID)
	}
	r.rules[rule.ID] = rule
	return nil
}

// Remove deletes a rule by id. No-op if absent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[id]; !exists {
		return
	}
	delete(r.rules, id)
	for i, rid := range r.order {
		if rid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// SetEnabled toggles a rule. No-op if absent.
func (r *Registry) SetEnabled(id string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule, exists := r.rules[id]; exists {
		rule.Enabled = enabled
	}
}

// Get returns a copy of the rule with the given id, or nil. Copies keep
// readers safe from a concurrent SetEnabled on the live rule.
func (r *Registry) Get(id string) *Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, exists := r.rules[id]
	if !exists {
		return nil
	}
	c := *rule
	return &c
}

// List returns copies of all rules in insertion order.
func (r *Registry) List() []*Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Rule, 0, len(r.order))
	for _, id := range r.order {
		c := *r.rules[id]
		out = append(out, &c)
	}
	return out
}

// Evaluate runs every enabled rule's condition against the snapshot and
// returns the satisfied rules. Rules whose cooldown has not expired are
// skipped before evaluation. A panic in one condition is recovered and
// logged without aborting evaluation of the remaining rules; the panicking
// rule does not enter cooldown.
func (r *Registry) Evaluate(snapshot Snapshot) []*Rule {
	// Enabled is mutated in place by SetEnabled, so it must be read while
	// still holding the lock. Conditions run outside the lock.
	r.mu.RLock()
	rules := make([]*Rule, 0, len(r.order))
	for _, id := range r.order {
		if rule := r.rules[id]; rule.Enabled {
			rules = append(rules, rule)
		}
	}
	r.mu.RUnlock()

	var satisfied []*Rule
	for _, rule := range rules {
		if r.cooldowns.Cooling(rule.ID) {
			continue
		}
		if hit, _ := r.evaluateOne(rule, snapshot); hit {
			satisfied = append(satisfied, rule)
		}
	}
	return satisfied
}

// ClearedAutoResolve returns the enabled auto-resolve rules whose condition
// is no longer satisfied by the snapshot. Cooldown state is ignored here:
// a cooling rule can still clear.
func (r *Registry) ClearedAutoResolve(snapshot Snapshot) []*Rule {
	r.mu.RLock()
	rules := make([]*Rule, 0, len(r.order))
	for _, id := range r.order {
		if rule := r.rules[id]; rule.Enabled && rule.AutoResolve {
			rules = append(rules, rule)
		}
	}
	r.mu.RUnlock()

	var cleared []*Rule
	for _, rule := range rules {
		satisfied, ok := r.evaluateOne(rule, snapshot)
		if ok && !satisfied {
			cleared = append(cleared, rule)
		}
	}
	return cleared
}

// evaluateOne isolates condition evaluation so one broken rule cannot take
// down the evaluation loop. ok is false when the condition panicked, so a
// broken rule is neither satisfied nor cleared.
func (r *Registry) evaluateOne(rule *Rule, snapshot Snapshot) (satisfied, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("rule condition panicked",
				logger.String("rule_id", rule.ID),
				logger.Any("panic", rec))
			satisfied, ok = false, false
		}
	}()
	return rule.Condition(snapshot), true
}
