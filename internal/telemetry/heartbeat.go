package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"rescueops/internal/mission"
)

// Default heartbeat configuration, overridable via config.
const (
	DefaultHeartbeatTimeout       = 10 * time.Second
	DefaultHeartbeatCheckInterval = 1 * time.Second
)

// Heartbeat is the liveness record for one roster slot.
type Heartbeat struct {
	LastSeen            time.Time `json:"last_seen"`
	Connected           bool      `json:"connected"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Tracker keeps per-vehicle heartbeats behind its own lock. Vehicles start
// out connected; the first timeout scan flips them if they never report.
type Tracker struct {
	mu      sync.Mutex
	beats   map[mission.Role]*Heartbeat
	timeout time.Duration
	now     func() time.Time
}

// NewTracker initializes a heartbeat for every roster slot.
func NewTracker(timeout time.Duration) *Tracker {
	t := &Tracker{
		beats:   make(map[mission.Role]*Heartbeat, len(mission.Roles())),
		timeout: timeout,
		now:     time.Now,
	}
	for _, role := range mission.Roles() {
		t.beats[role] = &Heartbeat{LastSeen: t.now(), Connected: true}
	}
	return t
}

// Refresh records message receipt for a vehicle and reports whether this
// was a disconnected-to-connected transition.
func (t *Tracker) Refresh(role mission.Role) (reconnected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hb, ok := t.beats[role]
	if !ok {
		return false
	}
	reconnected = !hb.Connected
	hb.LastSeen = t.now()
	hb.Connected = true
	hb.ConsecutiveFailures = 0
	return reconnected
}

// Connected reports whether the vehicle is currently considered live:
// marked connected and seen within the timeout.
func (t *Tracker) Connected(role mission.Role) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	hb, ok := t.beats[role]
	return ok && hb.Connected && t.now().Sub(hb.LastSeen) <= t.timeout
}

// MarkStale flips every timed-out, still-connected vehicle to disconnected
// and returns the affected roles.
func (t *Tracker) MarkStale() []mission.Role {
	t.mu.Lock()
	defer t.mu.Unlock()
	var stale []mission.Role
	for _, role := range mission.Roles() {
		hb := t.beats[role]
		if hb.Connected && t.now().Sub(hb.LastSeen) > t.timeout {
			hb.Connected = false
			hb.ConsecutiveFailures++
			stale = append(stale, role)
		}
	}
	return stale
}

// Snapshot returns a copy of all heartbeat records.
func (t *Tracker) Snapshot() map[mission.Role]Heartbeat {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[mission.Role]Heartbeat, len(t.beats))
	for role, hb := range t.beats {
		out[role] = *hb
	}
	return out
}

// Monitor periodically scans heartbeats and marks silent vehicles
// disconnected. Reconnection is driven only by the ingestion pipeline.
type Monitor struct {
	tracker   *Tracker
	store     *Store
	publisher Publisher
	interval  time.Duration
}

// NewMonitor wires a tracker to the telemetry store and publisher.
func NewMonitor(tracker *Tracker, store *Store, publisher Publisher, interval time.Duration) *Monitor {
	return &Monitor{tracker: tracker, store: store, publisher: publisher, interval: interval}
}

// Run blocks until ctx is done, scanning every tick.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Scan()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Scan runs one heartbeat sweep. A snapshot is published only when at least
// one vehicle's state actually changed.
func (m *Monitor) Scan() {
	stale := m.tracker.MarkStale()
	if len(stale) == 0 {
		return
	}
	for _, role := range stale {
		log.Printf("[Heartbeat] vehicle %s timed out, marking disconnected", role)
		m.store.SetStatus(role, StatusDisconnected)
	}
	snap := m.store.Snapshot()
	if err := m.publisher.TelemetryUpdate(snap); err != nil {
		log.Printf("[Heartbeat] snapshot publish failed, falling back: %v", err)
		m.publisher.Notify("telemetry_update", snap)
	}
}
