package alerting

import (
	"sync"
	"time"
)

// EventType identifies a lifecycle event kind.
type EventType string

const (
	EventTriggered    EventType = "triggered"
	EventAcknowledged EventType = "acknowledged"
	EventResolved     EventType = "resolved"
	EventEscalated    EventType = "escalated"
)

// Event is a lifecycle notification published to in-process subscribers
// such as a live dashboard. The Alert is a snapshot taken at publish time.
type Event struct {
	Type      EventType `json:"type"`
	Alert     Alert     `json:"alert"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler processes lifecycle events.
type EventHandler func(Event)

// defaultEventBuffer is the capacity of the async event channel. Events are
// dropped if the buffer is full to avoid blocking publishers.
const defaultEventBuffer = 1000

// EventBus is an async pub/sub for lifecycle events. Publish is non-blocking:
// events go to a buffered channel and are delivered by a worker goroutine, so
// the evaluation loop and lifecycle operations are never blocked by slow
// subscribers.
type EventBus struct {
	handlers []EventHandler
	mu       sync.RWMutex
	eventCh  chan Event
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewEventBus creates an event bus with the given buffer capacity (<=0 uses
// the default) and starts its worker.
func NewEventBus(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	b := &EventBus{
		eventCh: make(chan Event, buffer),
		stopCh:  make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler for lifecycle events.
func (b *EventBus) Subscribe(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish enqueues an event for async delivery. Non-blocking: if the buffer
// is full the event is dropped. Events are silently discarded after Stop.
func (b *EventBus) Publish(event Event) {
	select {
	case <-b.stopCh:
		return
	default:
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	default:
		// Buffer full, drop rather than block publishers.
	}
}

// Stop shuts down the worker goroutine after draining queued events.
// Safe to call multiple times.
func (b *EventBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

func (b *EventBus) processLoop() {
	for {
		select {
		case event := <-b.eventCh:
			b.dispatch(event)
		case <-b.stopCh:
			for {
				select {
				case event := <-b.eventCh:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *EventBus) dispatch(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

// safeCall invokes a handler with panic recovery so one broken subscriber
// cannot kill the delivery goroutine.
func (b *EventBus) safeCall(handler EventHandler, event Event) {
	defer func() {
		recover() //nolint:errcheck // intentionally swallowed to keep bus alive
	}()
	handler(event)
}
