// Package watcher implements the deterministic, no-LLM pattern detector
// that scans the event log for failure spikes, timeout spikes, retry
// storms, and stalled tasks, surfacing each as a watcher.alert.* event.
package watcher

import "time"

// Config parameterizes a Watcher's scan thresholds and cadence.
type Config struct {
	// ScanInterval is the periodic scan cadence; zero defaults to 60s.
	ScanInterval time.Duration
	// FailureSpikeThreshold is the minimum worker.task.failed count in one
	// scan window that triggers watcher.alert.failure_spike.
	FailureSpikeThreshold int
	// TimeoutSpikeThreshold is the minimum count, among this window's
	// failures, whose error text names a timeout that triggers
	// watcher.alert.timeout_spike.
	TimeoutSpikeThreshold int
	// RetryStormThreshold is the minimum worker.task.progress count whose
	// phase/status/message mentions retry that triggers
	// watcher.alert.retry_storm.
	RetryStormThreshold int
	// StalledTaskTimeout is how long a worker.task.started may go without
	// a matching completed/failed before watcher.alert.stalled_task fires.
	StalledTaskTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ScanInterval <= 0 {
		c.ScanInterval = 60 * time.Second
	}
	if c.FailureSpikeThreshold <= 0 {
		c.FailureSpikeThreshold = 3
	}
	if c.TimeoutSpikeThreshold <= 0 {
		c.TimeoutSpikeThreshold = 3
	}
	if c.RetryStormThreshold <= 0 {
		c.RetryStormThreshold = 5
	}
	if c.StalledTaskTimeout <= 0 {
		c.StalledTaskTimeout = 5 * time.Minute
	}
	return c
}

// watcherActorID is the stable actor identity every alert event is emitted
// under.
const watcherActorID = "watcher:default"

type startInfo struct {
	seq uint64
	at  time.Time
}
