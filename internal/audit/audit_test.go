package audit

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/logger"
)

func openTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec, err := Open(":memory:", logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func TestRecordAndListSecurityEvents(t *testing.T) {
	rec := openTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, rec.RecordSecurityEvent(ctx, alerting.SecurityEventRecord{
		Type:     "alert.security",
		Severity: "critical",
		SourceIP: "10.0.0.9",
		Message:  "Brute force detected: 42 failed logins",
		Details:  map[string]any{"failed_logins": 42},
		Action:   "alerted",
	}))
	require.NoError(t, rec.RecordSecurityEvent(ctx, alerting.SecurityEventRecord{
		Type:     "alert.security",
		Severity: "high",
		Message:  "Suspicious token reuse",
		Blocked:  true,
	}))

	events, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, "Suspicious token reuse", events[0].Message)
	assert.True(t, events[0].Blocked)
	assert.Equal(t, "10.0.0.9", events[1].SourceIP)
	assert.Contains(t, events[1].Details, "failed_logins")
	assert.False(t, events[1].CreatedAt.IsZero())
}

func TestRecentLimitAndDefault(t *testing.T) {
	rec := openTestRecorder(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.RecordSecurityEvent(ctx, alerting.SecurityEventRecord{
			Type:     "alert.security",
			Severity: "low",
			Message:  "probe",
		}))
	}

	events, err := rec.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = rec.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 5, "non-positive limit falls back to the default")
}
