package mission

import (
	"context"
	"fmt"

	"rescueops/internal/geo"
)

// AddStage store-inserts a stage and appends it with status Inactive. If the
// vehicle had no current stage, the new stage becomes current. It stays
// Inactive until the mission starts or a transition reaches it.
func (s *Service) AddStage(ctx context.Context, missionID int, role Role, name string) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	vehicleID, err := s.store.VehicleID(ctx, missionID, role)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("resolve vehicle %s: %w", role, err)
	}
	stageID, err := s.store.InsertStage(ctx, vehicleID, name)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("insert stage: %w", err)
	}
	v := m.Vehicle(role)
	v.Stages = append(v.Stages, Stage{ID: stageID, Name: name, Status: StatusInactive})
	if v.CurrentStage == NoStage {
		v.CurrentStage = stageID
	}
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// RenameStage updates a stage's name in the store and in memory.
func (s *Service) RenameStage(ctx context.Context, missionID int, role Role, stageID int, name string) error {
	s.mu.Lock()
	st, err := s.findStage(missionID, role, stageID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.store.UpdateStageName(ctx, stageID, name); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update stage name: %w", err)
	}
	st.Name = name
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// DeleteStage removes a stage. Active and completed stages are not deletable.
func (s *Service) DeleteStage(ctx context.Context, missionID int, role Role, stageID int) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	v := m.Vehicle(role)
	idx := -1
	for i := range v.Stages {
		if v.Stages[i].ID == stageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("stage %d: %w", stageID, ErrNotFound)
	}
	if st := v.Stages[idx].Status; st == StatusActive || st == StatusComplete {
		s.mu.Unlock()
		return fmt.Errorf("delete current/completed stage: %w", ErrInvalidTransition)
	}
	if err := s.store.DeleteStage(ctx, stageID); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("delete stage: %w", err)
	}
	v.Stages = append(v.Stages[:idx], v.Stages[idx+1:]...)
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// UpdateStageArea replaces a stage's search area and persists it in the
// column text format regardless of point count. Short polygons are stored
// but never broadcast or geofenced.
func (s *Service) UpdateStageArea(ctx context.Context, missionID int, role Role, stageID int, area []geo.Coordinate) error {
	s.mu.Lock()
	st, err := s.findStage(missionID, role, stageID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	vehicleID, err := s.store.VehicleID(ctx, missionID, role)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("resolve vehicle %s: %w", role, err)
	}
	st.SearchArea = append([]geo.Coordinate(nil), area...)
	encoded := []string{geo.EncodeZone(st.SearchArea)}
	if err := s.store.UpdateStageArea(ctx, stageID, encoded, vehicleID); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("update stage area: %w", err)
	}
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// TransitionStage completes the vehicle's current stage and asks the store
// for the next one. When the store reports the workflow has ended the
// current stage pointer is left unchanged and nothing is broadcast.
func (s *Service) TransitionStage(ctx context.Context, missionID int, role Role) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	v := m.Vehicle(role)
	for i := range v.Stages {
		if v.Stages[i].ID == v.CurrentStage {
			v.Stages[i].Status = StatusComplete
			break
		}
	}
	next, ok, err := s.store.TransitionStage(ctx, missionID, role, v.CurrentStage)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("transition stage: %w", err)
	}
	var area []geo.Coordinate
	if ok {
		for i := range v.Stages {
			if v.Stages[i].ID != next {
				continue
			}
			v.CurrentStage = next
			v.Stages[i].Status = StatusActive
			if len(v.Stages[i].SearchArea) >= geo.MinPolygonPoints {
				area = append([]geo.Coordinate(nil), v.Stages[i].SearchArea...)
			}
			break
		}
	}
	snap := s.state.Clone()
	s.mu.Unlock()

	if area != nil {
		if err := s.broadcast.SearchArea(ctx, string(role), area); err != nil {
			return fmt.Errorf("broadcast search area to %s: %w", role, err)
		}
	}
	return s.publish(snap)
}

// findStage resolves a stage pointer; caller holds the lock.
func (s *Service) findStage(missionID int, role Role, stageID int) (*Stage, error) {
	m := s.find(missionID)
	if m == nil {
		return nil, fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	v := m.Vehicle(role)
	for i := range v.Stages {
		if v.Stages[i].ID == stageID {
			return &v.Stages[i], nil
		}
	}
	return nil, fmt.Errorf("stage %d: %w", stageID, ErrNotFound)
}
