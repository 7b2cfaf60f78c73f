package alerting

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firedLevels collects scheduler callbacks safely across goroutines.
type firedLevels struct {
	mu     sync.Mutex
	levels []int
}

func (f *firedLevels) record(_ string, levelIndex int, _ EscalationLevel) {
	f.mu.Lock()
	f.levels = append(f.levels, levelIndex)
	f.mu.Unlock()
}

func (f *firedLevels) snapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.levels))
	copy(out, f.levels)
	return out
}

func TestSchedulerFiresLevelsInOrder(t *testing.T) {
	t.Parallel()
	fired := &firedLevels{}
	s := NewScheduler(fired.record, testLogger())
	defer s.DisarmAll()

	policy := &EscalationPolicy{Levels: []EscalationLevel{
		{After: 10 * time.Millisecond},
		{After: 30 * time.Millisecond},
	}}
	s.Arm("a1", time.Now(), policy)
	assert.Equal(t, 2, s.Armed("a1"))

	require.Eventually(t, func() bool { return len(fired.snapshot()) == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0, 1}, fired.snapshot())
}

func TestSchedulerDisarmCancelsPendingLevels(t *testing.T) {
	t.Parallel()
	fired := &firedLevels{}
	s := NewScheduler(fired.record, testLogger())

	policy := &EscalationPolicy{Levels: []EscalationLevel{
		{After: 10 * time.Millisecond},
		{After: 500 * time.Millisecond},
	}}
	s.Arm("a1", time.Now(), policy)

	require.Eventually(t, func() bool { return len(fired.snapshot()) == 1 },
		time.Second, 5*time.Millisecond)
	s.Disarm("a1")
	assert.Equal(t, 0, s.Armed("a1"))

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, []int{0}, fired.snapshot(), "level 1 was disarmed and must not fire")
}

func TestSchedulerDisarmIsIdempotent(t *testing.T) {
	t.Parallel()
	s := NewScheduler(func(string, int, EscalationLevel) {}, testLogger())

	s.Disarm("never-armed")
	s.Arm("a1", time.Now(), &EscalationPolicy{Levels: []EscalationLevel{{After: time.Hour}}})
	s.Disarm("a1")
	s.Disarm("a1")
	assert.Equal(t, 0, s.Armed("a1"))
}

func TestSchedulerSkipsPassedDeadlines(t *testing.T) {
	t.Parallel()
	fired := &firedLevels{}
	s := NewScheduler(fired.record, testLogger())
	defer s.DisarmAll()

	// Trigger time far in the past: the first level's deadline has passed
	// and is skipped, the second still lies ahead.
	policy := &EscalationPolicy{Levels: []EscalationLevel{
		{After: time.Minute},
		{After: 2 * time.Hour},
	}}
	s.Arm("a1", time.Now().Add(-time.Hour), policy)
	assert.Equal(t, 1, s.Armed("a1"))
	assert.Empty(t, fired.snapshot())
}

func TestSchedulerNilPolicyIsNoop(t *testing.T) {
	t.Parallel()
	s := NewScheduler(func(string, int, EscalationLevel) {}, testLogger())

	s.Arm("a1", time.Now(), nil)
	s.Arm("a1", time.Now(), &EscalationPolicy{})
	assert.Equal(t, 0, s.Armed("a1"))
}

func TestSchedulerDisarmAll(t *testing.T) {
	t.Parallel()
	fired := &firedLevels{}
	s := NewScheduler(fired.record, testLogger())

	policy := &EscalationPolicy{Levels: []EscalationLevel{{After: time.Hour}}}
	s.Arm("a1", time.Now(), policy)
	s.Arm("a2", time.Now(), policy)

	s.DisarmAll()
	assert.Equal(t, 0, s.Armed("a1"))
	assert.Equal(t, 0, s.Armed("a2"))
}
