package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes worker liveness and the startup outcome.
type Snapshot struct {
	LastHeartbeat *time.Time `json:"last_heartbeat"`
	Startup       string     `json:"startup,omitempty"`
	ArmedZones    int        `json:"armed_zones"`
}

// Tracker records heartbeats and startup state for health endpoints.
type Tracker struct {
	mu            sync.RWMutex
	lastHeartbeat time.Time
	startup       string
	armedZones    int
	ready         bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordHeartbeat notes that the delivery worker is alive.
func (t *Tracker) RecordHeartbeat(at time.Time) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.lastHeartbeat = at.UTC()
	t.mu.Unlock()
}

// MarkReady records the result of the startup sequence. A degraded outcome
// such as a denied permission still counts as ready: the process is serving.
func (t *Tracker) MarkReady(startup string, armedZones int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.startup = startup
	t.armedZones = armedZones
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastHeartbeat.IsZero() {
		value := t.lastHeartbeat
		last = &value
	}
	return Snapshot{
		LastHeartbeat: last,
		Startup:       t.startup,
		ArmedZones:    t.armedZones,
	}
}

// Ready reports whether the startup sequence has finished.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last heartbeat arrived within 2x the heartbeat interval.
func (t *Tracker) Healthy(now time.Time, interval time.Duration) bool {
	if t == nil {
		return false
	}
	if interval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastHeartbeat.IsZero() {
		return false
	}
	return now.Sub(t.lastHeartbeat) <= 2*interval
}
