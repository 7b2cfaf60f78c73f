package notify

import (
	"context"
	"sync"
	"time"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/logger"
)

// defaultSendTimeout bounds a single channel attempt when no per-channel
// timeout is configured, so a stalled third party cannot occupy dispatch
// resources indefinitely.
const defaultSendTimeout = 10 * time.Second

// registration pairs a sender with its per-attempt timeout.
type registration struct {
	sender  Sender
	timeout time.Duration
}

// Dispatcher fans an alert out to every requested channel concurrently and
// waits for all attempts to finish. Failures are logged and counted, never
// returned as an error: a channel's failure must not prevent attempts on the
// others, and the overall call succeeds even when every channel fails.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[alerting.Channel]registration
	log      logger.Logger
	metrics  *Metrics
}

// NewDispatcher creates a dispatcher with no channels registered. metrics
// may be nil.
func NewDispatcher(log logger.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		channels: make(map[alerting.Channel]registration),
		log:      log,
		metrics:  metrics,
	}
}

// Register installs a sender for a channel. A non-positive timeout uses the
// default.
func (d *Dispatcher) Register(ch alerting.Channel, sender Sender, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	d.mu.Lock()
	d.channels[ch] = registration{sender: sender, timeout: timeout}
	d.mu.Unlock()
}

// Dispatch attempts delivery on every requested channel. The dashboard
// channel is an immediate success: its delivery is the in-process lifecycle
// event stream, with no external call. Channels with no registered sender
// are skipped silently (disabled by configuration).
func (d *Dispatcher) Dispatch(ctx context.Context, alert *alerting.Alert, channels []alerting.Channel) []alerting.Delivery {
	results := make([]alerting.Delivery, len(channels))
	var wg sync.WaitGroup

	for i, ch := range channels {
		if ch == alerting.ChannelDashboard {
			results[i] = alerting.Delivery{Channel: ch}
			continue
		}

		d.mu.RLock()
		reg, ok := d.channels[ch]
		d.mu.RUnlock()
		if !ok {
			results[i] = alerting.Delivery{Channel: ch, Skipped: true}
			d.log.Debug("notification channel not configured, skipping",
				logger.String("channel", string(ch)),
				logger.String("alert_id", alert.ID))
			continue
		}

		wg.Add(1)
		go func(i int, ch alerting.Channel, reg registration) {
			defer wg.Done()
			results[i] = d.attempt(ctx, ch, reg, alert)
		}(i, ch, reg)
	}
	wg.Wait()

	for _, res := range results {
		switch {
		case res.Skipped:
		case res.Err != nil:
			d.metrics.deliveryFailed(res.Channel)
			d.log.Error("notification delivery failed",
				logger.String("channel", string(res.Channel)),
				logger.String("alert_id", alert.ID),
				logger.Duration("elapsed", res.Elapsed),
				logger.Error(res.Err))
		default:
			d.metrics.deliverySent(res.Channel)
		}
	}
	return results
}

// attempt runs one send bounded by the channel's timeout. Senders that do
// not honor ctx (e.g. shoutrrr) are abandoned at the deadline; the result
// still records a failure.
func (d *Dispatcher) attempt(ctx context.Context, ch alerting.Channel, reg registration, alert *alerting.Alert) alerting.Delivery {
	start := time.Now()
	sendCtx, cancel := context.WithTimeout(ctx, reg.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				d.log.Error("notification sender panicked",
					logger.String("channel", string(ch)),
					logger.Any("panic", rec))
				done <- context.Canceled
			}
		}()
		done <- reg.sender.Send(sendCtx, alert)
	}()

	select {
	case err := <-done:
		return alerting.Delivery{Channel: ch, Err: err, Elapsed: time.Since(start)}
	case <-sendCtx.Done():
		return alerting.Delivery{Channel: ch, Err: sendCtx.Err(), Elapsed: time.Since(start)}
	}
}
