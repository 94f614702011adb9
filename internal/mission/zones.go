package mission

import (
	"context"
	"fmt"

	"rescueops/internal/geo"
)

// AddZone appends an empty polygon to the addressed collection. The store is
// not touched until the zone gets coordinates via UpdateZone.
func (s *Service) AddZone(ctx context.Context, missionID int, zoneType ZoneType) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	switch zoneType {
	case ZoneKeepIn:
		m.KeepIn = append(m.KeepIn, []geo.Coordinate{})
	case ZoneKeepOut:
		m.KeepOut = append(m.KeepOut, []geo.Coordinate{})
	}
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// UpdateZone replaces the polygon at the given index. An out-of-range index
// silently leaves the collection unchanged; both full collections are still
// re-serialized and written back to the store.
func (s *Service) UpdateZone(ctx context.Context, missionID int, zoneType ZoneType, index int, coords []geo.Coordinate) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	switch zoneType {
	case ZoneKeepIn:
		if index >= 0 && index < len(m.KeepIn) {
			m.KeepIn[index] = append([]geo.Coordinate(nil), coords...)
		}
	case ZoneKeepOut:
		if index >= 0 && index < len(m.KeepOut) {
			m.KeepOut[index] = append([]geo.Coordinate(nil), coords...)
		}
	}
	if err := s.persistZones(ctx, m); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// DeleteZone removes the polygon at the given index. Unlike UpdateZone an
// out-of-range index is an explicit error.
func (s *Service) DeleteZone(ctx context.Context, missionID int, zoneType ZoneType, index int) error {
	s.mu.Lock()
	m := s.find(missionID)
	if m == nil {
		s.mu.Unlock()
		return fmt.Errorf("mission %d: %w", missionID, ErrNotFound)
	}
	switch zoneType {
	case ZoneKeepIn:
		if index < 0 || index >= len(m.KeepIn) {
			s.mu.Unlock()
			return fmt.Errorf("keep-in index %d: %w", index, ErrOutOfRange)
		}
		m.KeepIn = append(m.KeepIn[:index], m.KeepIn[index+1:]...)
	case ZoneKeepOut:
		if index < 0 || index >= len(m.KeepOut) {
			s.mu.Unlock()
			return fmt.Errorf("keep-out index %d: %w", index, ErrOutOfRange)
		}
		m.KeepOut = append(m.KeepOut[:index], m.KeepOut[index+1:]...)
	}
	if err := s.persistZones(ctx, m); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.state.Clone()
	s.mu.Unlock()
	return s.publish(snap)
}

// persistZones re-serializes both zone collections and overwrites them in
// the store. Caller holds the lock.
func (s *Service) persistZones(ctx context.Context, m *Mission) error {
	keepIn := make([]string, len(m.KeepIn))
	for i, z := range m.KeepIn {
		keepIn[i] = geo.EncodeZone(z)
	}
	keepOut := make([]string, len(m.KeepOut))
	for i, z := range m.KeepOut {
		keepOut[i] = geo.EncodeZone(z)
	}
	if err := s.store.UpdateZones(ctx, m.ID, keepIn, keepOut); err != nil {
		return fmt.Errorf("update zones: %w", err)
	}
	return nil
}
