package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/logger"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func testAlert() *alerting.Alert {
	return &alerting.Alert{
		ID:          "a1",
		Type:        alerting.TypeErrorRate,
		Severity:    alerting.SeverityHigh,
		Status:      alerting.StatusTriggered,
		Title:       "High error rate",
		Message:     "error rate above threshold",
		TriggeredAt: time.Now(),
	}
}

// stubSender fails, blocks or succeeds on demand.
type stubSender struct {
	name  alerting.Channel
	err   error
	block chan struct{} // when non-nil, Send waits for it
	panic bool

	mu    sync.Mutex
	calls int
}

func (s *stubSender) Name() alerting.Channel { return s.name }

func (s *stubSender) Send(ctx context.Context, _ *alerting.Alert) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panic {
		panic("sender exploded")
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func (s *stubSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func byChannel(results []alerting.Delivery) map[alerting.Channel]alerting.Delivery {
	out := make(map[alerting.Channel]alerting.Delivery, len(results))
	for _, r := range results {
		out[r.Channel] = r
	}
	return out
}

func TestDispatchAttemptsEveryChannelDespiteFailures(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(testLogger(), nil)

	email := &stubSender{name: alerting.ChannelEmail}
	chat := &stubSender{name: alerting.ChannelChat, err: errors.New("chat gateway down")}
	pager := &stubSender{name: alerting.ChannelPager}
	d.Register(alerting.ChannelEmail, email, time.Second)
	d.Register(alerting.ChannelChat, chat, time.Second)
	d.Register(alerting.ChannelPager, pager, time.Second)

	results := d.Dispatch(context.Background(), testAlert(),
		[]alerting.Channel{alerting.ChannelEmail, alerting.ChannelChat, alerting.ChannelPager})
	require.Len(t, results, 3)

	got := byChannel(results)
	assert.NoError(t, got[alerting.ChannelEmail].Err)
	assert.Error(t, got[alerting.ChannelChat].Err)
	assert.NoError(t, got[alerting.ChannelPager].Err)

	// The chat failure did not prevent the other attempts.
	assert.Equal(t, 1, email.callCount())
	assert.Equal(t, 1, pager.callCount())
}

func TestDispatchUnregisteredChannelIsSkipped(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(testLogger(), nil)
	email := &stubSender{name: alerting.ChannelEmail}
	d.Register(alerting.ChannelEmail, email, time.Second)

	results := d.Dispatch(context.Background(), testAlert(),
		[]alerting.Channel{alerting.ChannelEmail, alerting.ChannelSMS})
	got := byChannel(results)
	assert.NoError(t, got[alerting.ChannelEmail].Err)
	assert.True(t, got[alerting.ChannelSMS].Skipped)
	assert.NoError(t, got[alerting.ChannelSMS].Err)
}

func TestDispatchDashboardAlwaysSucceeds(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(testLogger(), nil)

	results := d.Dispatch(context.Background(), testAlert(),
		[]alerting.Channel{alerting.ChannelDashboard})
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.False(t, results[0].Skipped)
}

func TestDispatchTimesOutStalledSender(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(testLogger(), nil)

	block := make(chan struct{})
	defer close(block)
	stalled := &stubSender{name: alerting.ChannelSMS, block: block}
	d.Register(alerting.ChannelSMS, stalled, 30*time.Millisecond)

	start := time.Now()
	results := d.Dispatch(context.Background(), testAlert(), []alerting.Channel{alerting.ChannelSMS})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatchRecoversPanickingSender(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(testLogger(), nil)

	d.Register(alerting.ChannelChat, &stubSender{name: alerting.ChannelChat, panic: true}, time.Second)
	d.Register(alerting.ChannelEmail, &stubSender{name: alerting.ChannelEmail}, time.Second)

	results := d.Dispatch(context.Background(), testAlert(),
		[]alerting.Channel{alerting.ChannelChat, alerting.ChannelEmail})
	got := byChannel(results)
	assert.Error(t, got[alerting.ChannelChat].Err)
	assert.NoError(t, got[alerting.ChannelEmail].Err)
}

func TestDispatchMisconfiguredChannelFailsEachAttempt(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(testLogger(), nil)
	d.Register(alerting.ChannelEmail,
		&misconfiguredSender{name: alerting.ChannelEmail, reason: "missing service URL"}, time.Second)

	results := d.Dispatch(context.Background(), testAlert(), []alerting.Channel{alerting.ChannelEmail})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrMisconfigured)
	assert.False(t, results[0].Skipped)
}

func TestFormatTitleIncludesSeverity(t *testing.T) {
	t.Parallel()
	title := formatTitle(testAlert())
	assert.Equal(t, "[HIGH] High error rate", title)
}
