package alerting

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// go-cache janitors live until their cache is finalized.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

func TestEventBusDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(16)
	defer bus.Stop()

	var mu sync.Mutex
	var first, second []EventType
	bus.Subscribe(func(e Event) {
		mu.Lock()
		first = append(first, e.Type)
		mu.Unlock()
	})
	bus.Subscribe(func(e Event) {
		mu.Lock()
		second = append(second, e.Type)
		mu.Unlock()
	})

	bus.Publish(Event{Type: EventTriggered})
	bus.Publish(Event{Type: EventResolved})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(first) == 2 && len(second) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventTriggered, EventResolved}, first)
	assert.Equal(t, []EventType{EventTriggered, EventResolved}, second)
}

func TestEventBusStampsPublishTime(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(1)
	defer bus.Stop()

	got := make(chan Event, 1)
	bus.Subscribe(func(e Event) { got <- e })

	bus.Publish(Event{Type: EventTriggered})
	select {
	case e := <-got:
		assert.WithinDuration(t, time.Now(), e.Timestamp, time.Second)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventBusSurvivesPanickingHandler(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(16)
	defer bus.Stop()

	var mu sync.Mutex
	var delivered int
	bus.Subscribe(func(Event) { panic("bad subscriber") })
	bus.Subscribe(func(Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	bus.Publish(Event{Type: EventTriggered})
	bus.Publish(Event{Type: EventEscalated})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 2
	}, time.Second, 5*time.Millisecond)
}

func TestEventBusDropsWhenBufferFull(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(1)

	release := make(chan struct{})
	var mu sync.Mutex
	var delivered int
	bus.Subscribe(func(Event) {
		<-release
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	// One event occupies the worker, one fills the buffer; the rest drop
	// without blocking this goroutine.
	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: EventTriggered})
	}
	close(release)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered >= 1 && delivered <= 3
	}, time.Second, 5*time.Millisecond)
	bus.Stop()
}

func TestEventBusStopIsIdempotentAndDiscardsLatePublishes(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(16)

	var mu sync.Mutex
	var delivered int
	bus.Subscribe(func(Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	bus.Publish(Event{Type: EventTriggered})
	bus.Stop()
	bus.Stop()
	bus.Publish(Event{Type: EventResolved}) // discarded

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 1
	}, time.Second, 5*time.Millisecond)
}
