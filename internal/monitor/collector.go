// Package monitor produces metrics snapshots for rule evaluation: system
// metrics sampled via gopsutil plus application gauges (error rate, latency,
// threat counts) registered by the rest of the platform.
package monitor

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/logger"
)

// Collector gathers a snapshot on a fixed interval and feeds it to the
// alerting manager.
type Collector struct {
	manager  *alerting.Manager
	interval time.Duration
	diskPath string
	log      logger.Logger

	mu     sync.RWMutex
	gauges map[string]float64

	cpuPercent func(time.Duration, bool) ([]float64, error)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a collector; Start begins the evaluation loop.
func NewCollector(manager *alerting.Manager, interval time.Duration, diskPath string, log logger.Logger) *Collector {
	return &Collector{
		manager:    manager,
		interval:   interval,
		diskPath:   diskPath,
		log:        log,
		gauges:     make(map[string]float64),
		cpuPercent: cpu.Percent,
		stopCh:     make(chan struct{}),
	}
}

// SetGauge records an application metric for the next snapshot, e.g.
// error_rate or fraud_score. Producers call this from request paths.
func (c *Collector) SetGauge(name string, value float64) {
	c.mu.Lock()
	c.gauges[name] = value
	c.mu.Unlock()
}

// Snapshot assembles the current metrics snapshot: registered application
// gauges plus sampled system metrics. System sampling errors are logged and
// the corresponding keys omitted, so a broken probe never blocks evaluation.
func (c *Collector) Snapshot() alerting.Snapshot {
	c.mu.RLock()
	snapshot := alerting.Snapshot{}
	maps.Copy(snapshot, snapshotFromGauges(c.gauges))
	c.mu.RUnlock()

	if usage, err := disk.Usage(c.diskPath); err != nil {
		c.log.Warn("failed to sample disk usage", logger.Error(err))
	} else {
		snapshot[alerting.MetricDiskUsage] = usage.UsedPercent
	}
	if vm, err := mem.VirtualMemory(); err != nil {
		c.log.Warn("failed to sample memory usage", logger.Error(err))
	} else {
		snapshot[alerting.MetricMemoryUsage] = vm.UsedPercent
	}
	if percents, err := c.cpuPercent(0, false); err != nil {
		c.log.Warn("failed to sample cpu usage", logger.Error(err))
	} else if len(percents) == 0 {
		c.log.Warn("cpu sampler returned no data")
	} else {
		snapshot[alerting.MetricCPUUsage] = percents[0]
	}
	return snapshot
}

func snapshotFromGauges(gauges map[string]float64) alerting.Snapshot {
	s := make(alerting.Snapshot, len(gauges))
	for k, v := range gauges {
		s[k] = v
	}
	return s
}

// Start runs the evaluation loop until Stop is called.
func (c *Collector) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.manager.CheckRules(context.Background(), c.Snapshot())
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts the evaluation loop. Safe to call multiple times.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
