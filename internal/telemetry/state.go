package telemetry

import (
	"sync"
	"time"

	"rescueops/internal/mission"
)

// Store holds the latest telemetry per roster slot behind its own lock.
type Store struct {
	mu    sync.Mutex
	state State
	now   func() time.Time
}

// NewStore returns an empty telemetry store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Merge replaces the slot's reading and stamps the update time.
func (s *Store) Merge(role mission.Role, r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.state.vehicle(role)
	if v == nil {
		return
	}
	v.Reading = r
	v.LastUpdated = s.now().UTC()
}

// SetStatus overwrites the slot's status label.
func (s *Store) SetStatus(role mission.Role, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.state.vehicle(role); v != nil {
		v.VehicleStatus = status
	}
}

// SetStatusIf overwrites the status label only when it currently equals
// from. Returns whether the swap happened.
func (s *Store) SetStatusIf(role mission.Role, from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.state.vehicle(role)
	if v == nil || v.VehicleStatus != from {
		return false
	}
	v.VehicleStatus = to
	return true
}

// Status returns the slot's current status label.
func (s *Store) Status(role mission.Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.state.vehicle(role); v != nil {
		return v.VehicleStatus
	}
	return ""
}

// Snapshot returns a copy of the full telemetry state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
