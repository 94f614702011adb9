package mission

import "context"

// Store is the durable mission store. Every mutation must succeed for the
// corresponding in-memory change to be considered applied.
type Store interface {
	InsertMission(ctx context.Context, name string) (int, error)
	InsertStage(ctx context.Context, vehicleID int, name string) (int, error)

	UpdateMissionName(ctx context.Context, missionID int, name string) error
	UpdateMissionStatus(ctx context.Context, missionID int, status Status) error
	UpdateStageName(ctx context.Context, stageID int, name string) error
	UpdateStageStatus(ctx context.Context, stageID int, status Status) error
	UpdateStageArea(ctx context.Context, stageID int, area []string, vehicleID int) error
	UpdateAutoMode(ctx context.Context, missionID int, role Role, isAuto bool) error
	UpdatePatientStatus(ctx context.Context, missionID int, role Role, status PatientStatus) error
	UpdateZones(ctx context.Context, missionID int, keepIn, keepOut []string) error

	DeleteMission(ctx context.Context, missionID int) error
	DeleteStage(ctx context.Context, stageID int) error

	// VehicleID resolves the store id of a roster slot within a mission.
	VehicleID(ctx context.Context, missionID int, role Role) (int, error)
	// TransitionStage returns the id of the stage after currentStageID in
	// the store's ordering, or ok=false when the workflow has ended.
	TransitionStage(ctx context.Context, missionID int, role Role, currentStageID int) (next int, ok bool, err error)

	// Hydrate replays all persisted missions, vehicles, and stages.
	Hydrate(ctx context.Context) (State, error)
}
