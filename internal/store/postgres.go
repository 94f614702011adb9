// Postgres-backed mission store.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rescueops/internal/geo"
	"rescueops/internal/mission"
)

// Postgres implements mission.Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against the given database URL.
func Connect(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// InsertMission creates the mission row plus its three fixed vehicle rows
// and returns the store-assigned id.
func (p *Postgres) InsertMission(ctx context.Context, name string) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var missionID int
	err = tx.QueryRow(ctx,
		`INSERT INTO missions (mission_name, status, keep_in_zones, keep_out_zones)
		 VALUES ($1, 'Inactive', '{}', '{}') RETURNING mission_id`, name).Scan(&missionID)
	if err != nil {
		return 0, fmt.Errorf("insert mission: %w", err)
	}
	for _, role := range mission.Roles() {
		_, err = tx.Exec(ctx,
			`INSERT INTO vehicles (mission_id, vehicle_name, current_stage_id, is_auto, patient_status)
			 VALUES ($1, $2, -1, false, 'Unsecured')`, missionID, string(role))
		if err != nil {
			return 0, fmt.Errorf("insert vehicle %s: %w", role, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return missionID, nil
}

// InsertStage creates a stage row for a vehicle and returns its id.
func (p *Postgres) InsertStage(ctx context.Context, vehicleID int, name string) (int, error) {
	var stageID int
	err := p.pool.QueryRow(ctx,
		`INSERT INTO stages (vehicle_id, stage_name, status, search_area)
		 VALUES ($1, $2, 'Inactive', '{}') RETURNING stage_id`, vehicleID, name).Scan(&stageID)
	if err != nil {
		return 0, fmt.Errorf("insert stage: %w", err)
	}
	return stageID, nil
}

func (p *Postgres) UpdateMissionName(ctx context.Context, missionID int, name string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE missions SET mission_name = $2 WHERE mission_id = $1`, missionID, name)
	return err
}

func (p *Postgres) UpdateMissionStatus(ctx context.Context, missionID int, status mission.Status) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE missions SET status = $2 WHERE mission_id = $1`, missionID, string(status))
	return err
}

func (p *Postgres) UpdateStageName(ctx context.Context, stageID int, name string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE stages SET stage_name = $2 WHERE stage_id = $1`, stageID, name)
	return err
}

func (p *Postgres) UpdateStageStatus(ctx context.Context, stageID int, status mission.Status) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE stages SET status = $2 WHERE stage_id = $1`, stageID, string(status))
	return err
}

func (p *Postgres) UpdateStageArea(ctx context.Context, stageID int, area []string, vehicleID int) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE stages SET search_area = $2 WHERE stage_id = $1 AND vehicle_id = $3`,
		stageID, area, vehicleID)
	return err
}

func (p *Postgres) UpdateAutoMode(ctx context.Context, missionID int, role mission.Role, isAuto bool) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE vehicles SET is_auto = $3 WHERE mission_id = $1 AND vehicle_name = $2`,
		missionID, string(role), isAuto)
	return err
}

func (p *Postgres) UpdatePatientStatus(ctx context.Context, missionID int, role mission.Role, status mission.PatientStatus) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE vehicles SET patient_status = $3 WHERE mission_id = $1 AND vehicle_name = $2`,
		missionID, string(role), string(status))
	return err
}

func (p *Postgres) UpdateZones(ctx context.Context, missionID int, keepIn, keepOut []string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE missions SET keep_in_zones = $2, keep_out_zones = $3 WHERE mission_id = $1`,
		missionID, keepIn, keepOut)
	return err
}

// DeleteMission removes the mission and its vehicles and stages.
func (p *Postgres) DeleteMission(ctx context.Context, missionID int) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx,
		`DELETE FROM stages WHERE vehicle_id IN (SELECT vehicle_id FROM vehicles WHERE mission_id = $1)`,
		missionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM vehicles WHERE mission_id = $1`, missionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM missions WHERE mission_id = $1`, missionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) DeleteStage(ctx context.Context, stageID int) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM stages WHERE stage_id = $1`, stageID)
	return err
}

// VehicleID resolves the store id of a roster slot within a mission.
func (p *Postgres) VehicleID(ctx context.Context, missionID int, role mission.Role) (int, error) {
	var id int
	err := p.pool.QueryRow(ctx,
		`SELECT vehicle_id FROM vehicles WHERE mission_id = $1 AND vehicle_name = $2`,
		missionID, string(role)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("vehicle %s in mission %d: %w", role, missionID, mission.ErrNotFound)
	}
	return id, err
}

// TransitionStage marks the current stage complete, activates the next
// stage in insertion order, and returns its id. ok is false when the
// current stage is the last one.
func (p *Postgres) TransitionStage(ctx context.Context, missionID int, role mission.Role, currentStageID int) (int, bool, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE stages SET status = 'Complete' WHERE stage_id = $1`, currentStageID); err != nil {
		return 0, false, err
	}

	var next int
	err = tx.QueryRow(ctx,
		`SELECT s.stage_id FROM stages s
		 JOIN vehicles v ON v.vehicle_id = s.vehicle_id
		 WHERE v.mission_id = $1 AND v.vehicle_name = $2 AND s.stage_id > $3
		 ORDER BY s.stage_id LIMIT 1`,
		missionID, string(role), currentStageID).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, tx.Commit(ctx)
	}
	if err != nil {
		return 0, false, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE stages SET status = 'Active' WHERE stage_id = $1`, next); err != nil {
		return 0, false, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE vehicles SET current_stage_id = $3 WHERE mission_id = $1 AND vehicle_name = $2`,
		missionID, string(role), next); err != nil {
		return 0, false, err
	}
	return next, true, tx.Commit(ctx)
}

// Hydrate replays all persisted missions, vehicles, and stages into a full
// state snapshot. A mission stored as Active becomes the current mission.
func (p *Postgres) Hydrate(ctx context.Context) (mission.State, error) {
	var state mission.State

	rows, err := p.pool.Query(ctx, `
		SELECT
			m.mission_id,
			m.mission_name,
			m.status,
			m.keep_in_zones,
			m.keep_out_zones,
			v.vehicle_name,
			v.current_stage_id,
			v.is_auto,
			v.patient_status,
			s.stage_id,
			s.stage_name,
			s.search_area,
			s.status AS stage_status
		FROM missions m
		LEFT JOIN vehicles v ON m.mission_id = v.mission_id
		LEFT JOIN stages s ON v.vehicle_id = s.vehicle_id
		ORDER BY m.mission_id, v.vehicle_id, s.stage_id`)
	if err != nil {
		return state, fmt.Errorf("hydrate query: %w", err)
	}
	defer rows.Close()

	byID := map[int]int{} // mission id -> index into state.Missions
	for rows.Next() {
		var (
			missionID      int
			missionName    string
			missionStatus  string
			keepIn         []string
			keepOut        []string
			vehicleName    *string
			currentStageID *int
			isAuto         *bool
			patientStatus  *string
			stageID        *int
			stageName      *string
			searchArea     []string
			stageStatus    *string
		)
		if err := rows.Scan(&missionID, &missionName, &missionStatus, &keepIn, &keepOut,
			&vehicleName, &currentStageID, &isAuto, &patientStatus,
			&stageID, &stageName, &searchArea, &stageStatus); err != nil {
			return state, fmt.Errorf("hydrate scan: %w", err)
		}

		idx, ok := byID[missionID]
		if !ok {
			m := mission.NewMission(missionID, missionName)
			m.Status = mission.ParseStatus(missionStatus)
			m.KeepIn = decodeZones(keepIn)
			m.KeepOut = decodeZones(keepOut)
			if m.Status == mission.StatusActive {
				state.CurrentMission = missionID
			}
			state.Missions = append(state.Missions, m)
			idx = len(state.Missions) - 1
			byID[missionID] = idx
		}
		if vehicleName == nil {
			continue
		}
		role, ok := mission.ParseRole(*vehicleName)
		if !ok {
			continue
		}
		v := state.Missions[idx].Vehicle(role)
		if currentStageID != nil {
			v.CurrentStage = *currentStageID
		}
		if role != mission.RoleMRA && isAuto != nil {
			auto := *isAuto
			v.IsAuto = &auto
		}
		if patientStatus != nil && mission.PatientStatus(*patientStatus) == mission.PatientSecured {
			v.PatientStatus = mission.PatientSecured
		}
		if stageID == nil {
			continue
		}
		st := mission.Stage{ID: *stageID, Status: mission.StatusInactive}
		if stageName != nil {
			st.Name = *stageName
		}
		if stageStatus != nil {
			st.Status = mission.ParseStatus(*stageStatus)
		}
		for _, area := range searchArea {
			st.SearchArea = append(st.SearchArea, geo.DecodeZone(area)...)
		}
		v.Stages = append(v.Stages, st)
	}
	return state, rows.Err()
}

func decodeZones(encoded []string) [][]geo.Coordinate {
	var zones [][]geo.Coordinate
	for _, z := range encoded {
		zones = append(zones, geo.DecodeZone(z))
	}
	return zones
}
