package mission

import (
	"context"
	"fmt"
	"log"
	"sync"

	"rescueops/internal/geo"
)

// Publisher pushes full mission snapshots to observing clients.
type Publisher interface {
	MissionUpdate(State) error
	// Notify is the best-effort fallback when the primary publish fails.
	Notify(event string, payload any)
}

// Broadcaster sends zone and search-area command payloads to vehicles.
type Broadcaster interface {
	KeepIn(ctx context.Context, polygons [][]geo.Coordinate) error
	KeepOut(ctx context.Context, polygons [][]geo.Coordinate) error
	SearchArea(ctx context.Context, target string, polygon []geo.Coordinate) error
}

// Service owns the authoritative mission state. All mutation happens under
// one exclusive lock; snapshots handed to observers are deep copies taken
// under that lock and published after release.
type Service struct {
	mu        sync.Mutex
	state     State
	store     Store
	publisher Publisher
	broadcast Broadcaster
}

// NewService wraps a hydrated state. Use Store.Hydrate at process start to
// replay persisted missions.
func NewService(initial State, store Store, publisher Publisher, broadcast Broadcaster) *Service {
	return &Service{state: initial, store: store, publisher: publisher, broadcast: broadcast}
}

// Snapshot returns a deep copy of the full mission state.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// MissionData returns a copy of one mission.
func (s *Service) MissionData(missionID int) (Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(missionID)
	if m == nil {
		return Mission{}, fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	return m.clone(), nil
}

// KeepOutZones returns the keep-out polygons of the current mission that are
// usable for geofencing. The ingestion pipeline consults this on every
// reading; results may trail an in-flight zone update by one publish.
func (s *Service) KeepOutZones() [][]geo.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(s.state.CurrentMission)
	if m == nil {
		return nil
	}
	var zones [][]geo.Coordinate
	for _, z := range m.KeepOut {
		if len(z) >= geo.MinPolygonPoints {
			zones = append(zones, append([]geo.Coordinate(nil), z...))
		}
	}
	return zones
}

// CreateMission allocates a store id and appends an inactive mission with
// all three roster slots empty.
func (s *Service) CreateMission(ctx context.Context, name string) error {
	s.mu.Lock()
	id, err := s.store.InsertMission(ctx, name)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("insert mission: %w", err)
	}
	s.state.Missions = append(s.state.Missions, NewMission(id, name))
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// RenameMission updates a mission's name in the store and in memory.
func (s *Service) RenameMission(ctx context.Context, missionID int, name string) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	if err := s.store.UpdateMissionName(ctx, missionID, name); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update mission name: %w", err)
	}
	m.Name = name
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// DeleteMission removes a mission. Only inactive missions are deletable.
func (s *Service) DeleteMission(ctx context.Context, missionID int) error {
	s.mu.Lock()
	idx := s.findIndex(missionID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	if s.state.Missions[idx].Status != StatusInactive {
		s.mu.Unlock()
		return fmt.Errorf("delete active/past mission: %w", ErrInvalidTransition)
	}
	if err := s.store.DeleteMission(ctx, missionID); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("delete mission: %w", err)
	}
	s.state.Missions = append(s.state.Missions[:idx], s.state.Missions[idx+1:]...)
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// StartMission completes the previously active mission, activates the
// target, and publishes before broadcasting zones so observers see the
// status change promptly. First stages are then activated per vehicle and
// their search areas sent to that vehicle alone.
func (s *Service) StartMission(ctx context.Context, missionID int) error {
	s.mu.Lock()
	if prev := s.find(s.state.CurrentMission); prev != nil {
		prev.Status = StatusComplete
		if err := s.store.UpdateMissionStatus(ctx, prev.ID, StatusComplete); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("complete previous mission: %w", err)
		}
	}
	target := s.find(missionID)
	if target == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	target.Status = StatusActive
	s.state.CurrentMission = missionID
	if err := s.store.UpdateMissionStatus(ctx, missionID, StatusActive); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("activate mission: %w", err)
	}
	keepIn := clonePolygons(target.KeepIn)
	keepOut := clonePolygons(target.KeepOut)
	snap := s.state.Clone()
	s.mu.Unlock()

	if err := s.publish(snap); err != nil {
		return err
	}
	if err := s.broadcast.KeepIn(ctx, keepIn); err != nil {
		return fmt.Errorf("broadcast keep-in zones: %w", err)
	}
	if err := s.broadcast.KeepOut(ctx, keepOut); err != nil {
		return fmt.Errorf("broadcast keep-out zones: %w", err)
	}

	// Activate each vehicle's first stage and collect its search area.
	type areaSend struct {
		target string
		area   []geo.Coordinate
	}
	var sends []areaSend
	s.mu.Lock()
	target = s.find(missionID)
	if target == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	for _, role := range Roles() {
		v := target.Vehicle(role)
		if len(v.Stages) == 0 {
			continue
		}
		v.Stages[0].Status = StatusActive
		if err := s.store.UpdateStageStatus(ctx, v.Stages[0].ID, StatusActive); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("activate first stage for %s: %w", role, err)
		}
		sends = append(sends, areaSend{
			target: string(role),
			area:   append([]geo.Coordinate(nil), v.Stages[0].SearchArea...),
		})
	}
	snap = s.state.Clone()
	s.mu.Unlock()

	for _, send := range sends {
		if err := s.broadcast.SearchArea(ctx, send.target, send.area); err != nil {
			return fmt.Errorf("broadcast search area to %s: %w", send.target, err)
		}
	}
	return s.publish(snap)
}

// SetAutoMode toggles autonomy for a vehicle. The MRA does not support it.
func (s *Service) SetAutoMode(ctx context.Context, missionID int, role Role, isAuto bool) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	if role == RoleMRA {
		s.mu.Unlock()
		return fmt.Errorf("%s auto mode unsupported: %w", role, ErrInvalidTransition)
	}
	if err := s.store.UpdateAutoMode(ctx, missionID, role, isAuto); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update auto mode: %w", err)
	}
	auto := isAuto
	m.Vehicle(role).IsAuto = &auto
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// SetPatientStatus records whether the patient is secured aboard a vehicle.
func (s *Service) SetPatientStatus(ctx context.Context, missionID int, role Role, status PatientStatus) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	if err := s.store.UpdatePatientStatus(ctx, missionID, role, status); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update patient status: %w", err)
	}
	m.Vehicle(role).PatientStatus = status
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

func (s *Service) find(missionID int) *Mission {
	for i := range s.state.Missions {
		if s.state.Missions[i].ID == missionID {
			return &s.state.Missions[i]
		}
	}
	return nil
}

func (s *Service) findIndex(missionID int) int {
	for i := range s.state.Missions {
		if s.state.Missions[i].ID == missionID {
			return i
		}
	}
	return -1
}

func (s *Service) publish(snap State) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.MissionUpdate(snap); err != nil {
		log.Printf("[Mission] snapshot publish failed, falling back: %v", err)
		s.publisher.Notify("mission_update", snap)
		return fmt.Errorf("publish mission snapshot: %w", err)
	}
	return nil
}
