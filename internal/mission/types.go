// Mission, stage, and vehicle domain types.
package mission

import "rescueops/internal/geo"

// Status is the lifecycle state shared by missions and stages.
type Status string

const (
	StatusInactive Status = "Inactive"
	StatusActive   Status = "Active"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
)

// ParseStatus maps a stored status string to a Status, defaulting to Inactive.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusComplete, StatusFailed:
		return Status(s)
	default:
		return StatusInactive
	}
}

// Role identifies one of the three fixed roster slots.
type Role string

const (
	// RoleMEA is the medical evacuation aircraft.
	RoleMEA Role = "MEA"
	// RoleERU is the extraction/rescue unit.
	RoleERU Role = "ERU"
	// RoleMRA is the multi-role aircraft. It does not support auto mode.
	RoleMRA Role = "MRA"
)

// Roles returns the fixed roster in canonical order.
func Roles() [3]Role {
	return [3]Role{RoleMEA, RoleERU, RoleMRA}
}

// ParseRole maps a stored vehicle name to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMEA, RoleERU, RoleMRA:
		return Role(s), true
	default:
		return "", false
	}
}

// Queue returns the telemetry queue suffix for the role.
func (r Role) Queue() string {
	switch r {
	case RoleMEA:
		return "mea"
	case RoleERU:
		return "eru"
	case RoleMRA:
		return "mra"
	}
	return ""
}

// PatientStatus tracks whether the patient is secured aboard a vehicle.
type PatientStatus string

const (
	PatientUnsecured PatientStatus = "Unsecured"
	PatientSecured   PatientStatus = "Secured"
)

// NoStage marks a vehicle with no current stage assigned.
const NoStage = -1

// Stage is one step of a vehicle's mission workflow.
type Stage struct {
	ID         int              `json:"stage_id"`
	Name       string           `json:"stage_name"`
	Status     Status           `json:"stage_status"`
	SearchArea []geo.Coordinate `json:"search_area"`
}

// Vehicle is one roster slot inside a mission.
type Vehicle struct {
	Role          Role          `json:"vehicle_name"`
	CurrentStage  int           `json:"current_stage"`
	IsAuto        *bool         `json:"is_auto"` // nil when the role does not support autonomy
	PatientStatus PatientStatus `json:"patient_status"`
	Stages        []Stage       `json:"stages"`
}

// Mission is one mission with its three vehicle slots and zone collections.
type Mission struct {
	ID       int                `json:"mission_id"`
	Name     string             `json:"mission_name"`
	Status   Status             `json:"mission_status"`
	Vehicles [3]Vehicle         `json:"vehicles"` // indexed by roleIndex
	KeepIn   [][]geo.Coordinate `json:"keep_in_zones"`
	KeepOut  [][]geo.Coordinate `json:"keep_out_zones"`
}

// State is the full mission snapshot handed to observers.
type State struct {
	CurrentMission int       `json:"current_mission"`
	Missions       []Mission `json:"missions"`
}

// ZoneType addresses one of a mission's two zone collections.
type ZoneType string

const (
	ZoneKeepIn  ZoneType = "KeepIn"
	ZoneKeepOut ZoneType = "KeepOut"
)

func roleIndex(r Role) int {
	switch r {
	case RoleMEA:
		return 0
	case RoleERU:
		return 1
	case RoleMRA:
		return 2
	}
	return -1
}

// Vehicle returns a pointer to the roster slot for the given role.
func (m *Mission) Vehicle(r Role) *Vehicle {
	return &m.Vehicles[roleIndex(r)]
}

// NewMission builds an inactive mission with the fixed roster and no stages.
func NewMission(id int, name string) Mission {
	autoOff := false
	m := Mission{ID: id, Name: name, Status: StatusInactive}
	for i, role := range Roles() {
		v := Vehicle{
			Role:          role,
			CurrentStage:  NoStage,
			PatientStatus: PatientUnsecured,
		}
		if role != RoleMRA {
			off := autoOff
			v.IsAuto = &off
		}
		m.Vehicles[i] = v
	}
	return m
}

// Clone returns a deep copy of the state, safe to hand to observers.
func (s State) Clone() State {
	out := State{CurrentMission: s.CurrentMission}
	out.Missions = make([]Mission, len(s.Missions))
	for i, m := range s.Missions {
		out.Missions[i] = m.clone()
	}
	return out
}

func (m Mission) clone() Mission {
	out := m
	out.KeepIn = clonePolygons(m.KeepIn)
	out.KeepOut = clonePolygons(m.KeepOut)
	for i, v := range m.Vehicles {
		cv := v
		if v.IsAuto != nil {
			auto := *v.IsAuto
			cv.IsAuto = &auto
		}
		cv.Stages = make([]Stage, len(v.Stages))
		for j, st := range v.Stages {
			cs := st
			cs.SearchArea = append([]geo.Coordinate(nil), st.SearchArea...)
			cv.Stages[j] = cs
		}
		out.Vehicles[i] = cv
	}
	return out
}

func clonePolygons(in [][]geo.Coordinate) [][]geo.Coordinate {
	if in == nil {
		return nil
	}
	out := make([][]geo.Coordinate, len(in))
	for i, p := range in {
		out[i] = append([]geo.Coordinate(nil), p...)
	}
	return out
}
