package alerting

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// cooldownSweepInterval is how often expired cooldown entries are purged.
const cooldownSweepInterval = 5 * time.Minute

// CooldownTracker suppresses re-triggering of recently fired rules. Entries
// are keyed by rule id and expire on their own; nothing ever clears them
// explicitly.
type CooldownTracker struct {
	entries *gocache.Cache
}

// NewCooldownTracker creates an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{
		entries: gocache.New(gocache.NoExpiration, cooldownSweepInterval),
	}
}

// Cooling reports whether the rule is inside its suppression window.
func (c *CooldownTracker) Cooling(ruleID string) bool {
	_, found := c.entries.Get(ruleID)
	return found
}

// Begin starts the rule's suppression window at fire time. It is an atomic
// test-and-set: the first of two concurrent callers wins and the loser must
// not fire, so a rule can never double-fire inside its window. A rule with
// no cooldown always fires.
func (c *CooldownTracker) Begin(ruleID string, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	return c.entries.Add(ruleID, time.Now().Add(d), d) == nil
}
