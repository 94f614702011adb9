package mission

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rescueops/internal/geo"
)

// fakeStore is an in-memory Store that hands out sequential ids and records
// every mutation for assertions.
type fakeStore struct {
	nextMissionID int
	nextStageID   int
	failInsert    bool
	failStatus    bool

	statusUpdates  []string
	zoneWrites     [][2][]string
	stageAreas     map[int][]string
	deletedStages  []int
	transitionNext int
	transitionOK   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextMissionID: 1, nextStageID: 100, stageAreas: make(map[int][]string)}
}

func (f *fakeStore) InsertMission(_ context.Context, name string) (int, error) {
	if f.failInsert {
		return 0, errors.New("insert failed")
	}
	id := f.nextMissionID
	f.nextMissionID++
	return id, nil
}

func (f *fakeStore) InsertStage(_ context.Context, vehicleID int, name string) (int, error) {
	id := f.nextStageID
	f.nextStageID++
	return id, nil
}

func (f *fakeStore) UpdateMissionName(_ context.Context, missionID int, name string) error {
	return nil
}

func (f *fakeStore) UpdateMissionStatus(_ context.Context, missionID int, status Status) error {
	if f.failStatus {
		return errors.New("status update failed")
	}
	f.statusUpdates = append(f.statusUpdates, fmt.Sprintf("%d=%s", missionID, status))
	return nil
}

func (f *fakeStore) UpdateStageName(_ context.Context, stageID int, name string) error { return nil }

func (f *fakeStore) UpdateStageStatus(_ context.Context, stageID int, status Status) error {
	f.statusUpdates = append(f.statusUpdates, fmt.Sprintf("stage%d=%s", stageID, status))
	return nil
}

func (f *fakeStore) UpdateStageArea(_ context.Context, stageID int, area []string, vehicleID int) error {
	f.stageAreas[stageID] = area
	return nil
}

func (f *fakeStore) UpdateAutoMode(_ context.Context, missionID int, role Role, isAuto bool) error {
	return nil
}

func (f *fakeStore) UpdatePatientStatus(_ context.Context, missionID int, role Role, status PatientStatus) error {
	return nil
}

func (f *fakeStore) UpdateZones(_ context.Context, missionID int, keepIn, keepOut []string) error {
	f.zoneWrites = append(f.zoneWrites, [2][]string{keepIn, keepOut})
	return nil
}

func (f *fakeStore) DeleteMission(_ context.Context, missionID int) error { return nil }

func (f *fakeStore) DeleteStage(_ context.Context, stageID int) error {
	f.deletedStages = append(f.deletedStages, stageID)
	return nil
}

func (f *fakeStore) VehicleID(_ context.Context, missionID int, role Role) (int, error) {
	return missionID*10 + roleIndex(role), nil
}

func (f *fakeStore) TransitionStage(_ context.Context, missionID int, role Role, currentStageID int) (int, bool, error) {
	return f.transitionNext, f.transitionOK, nil
}

func (f *fakeStore) Hydrate(_ context.Context) (State, error) { return State{}, nil }

// fakePublisher records snapshots and fallback notifications.
type fakePublisher struct {
	snapshots []State
	notifies  []string
	fail      bool
}

func (f *fakePublisher) MissionUpdate(s State) error {
	if f.fail {
		return errors.New("publish failed")
	}
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (f *fakePublisher) Notify(event string, payload any) {
	f.notifies = append(f.notifies, event)
}

// fakeBroadcaster records every zone and search-area send.
type fakeBroadcaster struct {
	keepIn  [][][]geo.Coordinate
	keepOut [][][]geo.Coordinate
	areas   []string // "target:points"
}

func (f *fakeBroadcaster) KeepIn(_ context.Context, polygons [][]geo.Coordinate) error {
	f.keepIn = append(f.keepIn, polygons)
	return nil
}

func (f *fakeBroadcaster) KeepOut(_ context.Context, polygons [][]geo.Coordinate) error {
	f.keepOut = append(f.keepOut, polygons)
	return nil
}

func (f *fakeBroadcaster) SearchArea(_ context.Context, target string, polygon []geo.Coordinate) error {
	f.areas = append(f.areas, fmt.Sprintf("%s:%d", target, len(polygon)))
	return nil
}

func newTestService() (*Service, *fakeStore, *fakePublisher, *fakeBroadcaster) {
	st := newFakeStore()
	pub := &fakePublisher{}
	bc := &fakeBroadcaster{}
	return NewService(State{}, st, pub, bc), st, pub, bc
}

func triangle() []geo.Coordinate {
	return []geo.Coordinate{{Lat: 48.1, Long: 16.1}, {Lat: 48.2, Long: 16.2}, {Lat: 48.3, Long: 16.3}}
}

func TestCreateMission(t *testing.T) {
	svc, _, pub, _ := newTestService()
	if err := svc.CreateMission(context.Background(), "Alpine SAR"); err != nil {
		t.Fatalf("CreateMission() error: %v", err)
	}

	snap := svc.Snapshot()
	if len(snap.Missions) != 1 {
		t.Fatalf("expected 1 mission, got %d", len(snap.Missions))
	}
	m := snap.Missions[0]
	if m.Name != "Alpine SAR" || m.Status != StatusInactive {
		t.Errorf("unexpected mission: %+v", m)
	}
	for _, role := range Roles() {
		v := m.Vehicle(role)
		if v.CurrentStage != NoStage {
			t.Errorf("%s: expected no current stage, got %d", role, v.CurrentStage)
		}
		if v.PatientStatus != PatientUnsecured {
			t.Errorf("%s: expected unsecured patient, got %s", role, v.PatientStatus)
		}
	}
	if m.Vehicle(RoleMEA).IsAuto == nil || *m.Vehicle(RoleMEA).IsAuto {
		t.Error("MEA should start with auto mode off")
	}
	if m.Vehicle(RoleMRA).IsAuto != nil {
		t.Error("MRA must not carry an auto mode flag")
	}
	if len(pub.snapshots) != 1 {
		t.Errorf("expected 1 published snapshot, got %d", len(pub.snapshots))
	}
}

func TestCreateMission_StoreFailureAborts(t *testing.T) {
	svc, st, pub, _ := newTestService()
	st.failInsert = true
	if err := svc.CreateMission(context.Background(), "x"); err == nil {
		t.Fatal("expected error when store insert fails")
	}
	if len(svc.Snapshot().Missions) != 0 {
		t.Error("failed insert must not mutate state")
	}
	if len(pub.snapshots) != 0 {
		t.Error("failed insert must not publish")
	}
}

func TestRenameMission_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	err := svc.RenameMission(context.Background(), 42, "new name")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStartMission_CompletesPrevious(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateMission(ctx, "second"); err != nil {
		t.Fatal(err)
	}

	if err := svc.StartMission(ctx, 1); err != nil {
		t.Fatalf("StartMission(1) error: %v", err)
	}
	if err := svc.StartMission(ctx, 2); err != nil {
		t.Fatalf("StartMission(2) error: %v", err)
	}

	snap := svc.Snapshot()
	if snap.CurrentMission != 2 {
		t.Errorf("current mission = %d, want 2", snap.CurrentMission)
	}
	active := 0
	for _, m := range snap.Missions {
		switch m.ID {
		case 1:
			if m.Status != StatusComplete {
				t.Errorf("mission 1 status = %s, want Complete", m.Status)
			}
		case 2:
			if m.Status != StatusActive {
				t.Errorf("mission 2 status = %s, want Active", m.Status)
			}
		}
		if m.Status == StatusActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active mission, got %d", active)
	}
}

func TestStartMission_BroadcastsZonesAndFirstStages(t *testing.T) {
	svc, _, _, bc := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "rescue"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddZone(ctx, 1, ZoneKeepOut); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateZone(ctx, 1, ZoneKeepOut, 0, triangle()); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddStage(ctx, 1, RoleERU, "sweep"); err != nil {
		t.Fatal(err)
	}
	m, err := svc.MissionData(1)
	if err != nil {
		t.Fatal(err)
	}
	stageID := m.Vehicle(RoleERU).Stages[0].ID
	if err := svc.UpdateStageArea(ctx, 1, RoleERU, stageID, triangle()); err != nil {
		t.Fatal(err)
	}

	if err := svc.StartMission(ctx, 1); err != nil {
		t.Fatalf("StartMission() error: %v", err)
	}

	if len(bc.keepIn) != 1 || len(bc.keepOut) != 1 {
		t.Fatalf("expected one keep-in and one keep-out broadcast, got %d/%d", len(bc.keepIn), len(bc.keepOut))
	}
	if len(bc.keepOut[0]) != 1 || len(bc.keepOut[0][0]) != 3 {
		t.Errorf("unexpected keep-out payload: %+v", bc.keepOut[0])
	}
	if len(bc.areas) != 1 || bc.areas[0] != "ERU:3" {
		t.Errorf("expected search area sent to ERU only, got %v", bc.areas)
	}

	m, err = svc.MissionData(1)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Vehicle(RoleERU).Stages[0].Status; got != StatusActive {
		t.Errorf("first ERU stage status = %s, want Active", got)
	}
}

func TestStartMission_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	if err := svc.StartMission(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMission_ActiveRefused(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "live"); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartMission(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteMission(ctx, 1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if len(svc.Snapshot().Missions) != 1 {
		t.Error("active mission must survive the delete attempt")
	}
}

func TestDeleteMission_Inactive(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "scratch"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteMission(ctx, 1); err != nil {
		t.Fatalf("DeleteMission() error: %v", err)
	}
	if len(svc.Snapshot().Missions) != 0 {
		t.Error("inactive mission should be gone")
	}
}

func TestSetAutoMode(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "m"); err != nil {
		t.Fatal(err)
	}

	if err := svc.SetAutoMode(ctx, 1, RoleMEA, true); err != nil {
		t.Fatalf("SetAutoMode(MEA) error: %v", err)
	}
	m, _ := svc.MissionData(1)
	if v := m.Vehicle(RoleMEA); v.IsAuto == nil || !*v.IsAuto {
		t.Error("MEA auto mode should be on")
	}

	if err := svc.SetAutoMode(ctx, 1, RoleMRA, true); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MRA auto mode: expected ErrInvalidTransition, got %v", err)
	}
}

func TestSetPatientStatus(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "m"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetPatientStatus(ctx, 1, RoleERU, PatientSecured); err != nil {
		t.Fatalf("SetPatientStatus() error: %v", err)
	}
	m, _ := svc.MissionData(1)
	if got := m.Vehicle(RoleERU).PatientStatus; got != PatientSecured {
		t.Errorf("patient status = %s, want Secured", got)
	}
}

func TestPublishFailure_FallsBackAndSurfaces(t *testing.T) {
	svc, _, pub, _ := newTestService()
	pub.fail = true
	err := svc.CreateMission(context.Background(), "m")
	if err == nil {
		t.Fatal("expected surfaced publish error")
	}
	if len(pub.notifies) != 1 || pub.notifies[0] != "mission_update" {
		t.Errorf("expected mission_update fallback notify, got %v", pub.notifies)
	}
	// The mutation itself stands; only the publish failed.
	if len(svc.Snapshot().Missions) != 1 {
		t.Error("publish failure must not roll back the mutation")
	}
}

func TestKeepOutZones_FiltersShortPolygons(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "m"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddZone(ctx, 1, ZoneKeepOut); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddZone(ctx, 1, ZoneKeepOut); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateZone(ctx, 1, ZoneKeepOut, 0, triangle()); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartMission(ctx, 1); err != nil {
		t.Fatal(err)
	}

	zones := svc.KeepOutZones()
	if len(zones) != 1 {
		t.Fatalf("expected only the usable polygon, got %d", len(zones))
	}
	if len(zones[0]) != 3 {
		t.Errorf("unexpected polygon: %+v", zones[0])
	}
}

func TestKeepOutZones_NoCurrentMission(t *testing.T) {
	svc, _, _, _ := newTestService()
	if zones := svc.KeepOutZones(); zones != nil {
		t.Errorf("expected nil zones, got %v", zones)
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "m"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddZone(ctx, 1, ZoneKeepIn); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateZone(ctx, 1, ZoneKeepIn, 0, triangle()); err != nil {
		t.Fatal(err)
	}

	snap := svc.Snapshot()
	snap.Missions[0].KeepIn[0][0].Lat = -99

	fresh := svc.Snapshot()
	if fresh.Missions[0].KeepIn[0][0].Lat == -99 {
		t.Error("snapshot mutation leaked into service state")
	}
}
