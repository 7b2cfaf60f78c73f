package monitor

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/logger"
)

func testCollector() *Collector {
	return NewCollector(nil, time.Minute, "/",
		logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil))
}

func TestSnapshotIncludesRegisteredGauges(t *testing.T) {
	t.Parallel()
	c := testCollector()

	c.SetGauge(alerting.MetricErrorRate, 12.5)
	c.SetGauge(alerting.MetricFraudScore, 91)
	c.SetGauge(alerting.MetricErrorRate, 8.0) // last write wins

	s := c.Snapshot()
	v, ok := s.Float(alerting.MetricErrorRate)
	assert.True(t, ok)
	assert.Equal(t, 8.0, v)
	v, ok = s.Float(alerting.MetricFraudScore)
	assert.True(t, ok)
	assert.Equal(t, 91.0, v)
}

func TestSnapshotIncludesSystemMetrics(t *testing.T) {
	t.Parallel()
	s := testCollector().Snapshot()

	if v, ok := s.Float(alerting.MetricDiskUsage); ok {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
	if v, ok := s.Float(alerting.MetricMemoryUsage); ok {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestSnapshotOmitsCPUWhenSamplerReturnsNoData(t *testing.T) {
	t.Parallel()
	c := testCollector()
	c.cpuPercent = func(time.Duration, bool) ([]float64, error) {
		return nil, nil
	}

	s := c.Snapshot()
	_, ok := s.Float(alerting.MetricCPUUsage)
	assert.False(t, ok)
}

func TestSnapshotOmitsCPUOnSamplerError(t *testing.T) {
	t.Parallel()
	c := testCollector()
	c.cpuPercent = func(time.Duration, bool) ([]float64, error) {
		return nil, errors.New("procfs unavailable")
	}

	s := c.Snapshot()
	_, ok := s.Float(alerting.MetricCPUUsage)
	assert.False(t, ok)
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()
	c := testCollector()
	c.Stop()
	c.Stop()
}
