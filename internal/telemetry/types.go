// Telemetry wire and snapshot types.
package telemetry

import (
	"time"

	"rescueops/internal/mission"
)

// Position is the wire encoding of a vehicle position.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reading is one telemetry message as published by a vehicle.
type Reading struct {
	VehicleID         string   `json:"vehicle_id"`
	SignalStrength    float64  `json:"signal_strength"`
	Pitch             float64  `json:"pitch"`
	Yaw               float64  `json:"yaw"`
	Roll              float64  `json:"roll"`
	Speed             float64  `json:"speed"`
	Altitude          float64  `json:"altitude"`
	BatteryLife       float64  `json:"battery_life"`
	CurrentPosition   Position `json:"current_position"`
	RequestCoordinate Position `json:"request_coordinate"`
	VehicleStatus     string   `json:"vehicle_status"`
}

// Vehicle status labels derived by the ingestion pipeline.
const (
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
	StatusBadSignal    = "Bad Connection"
	StatusNearKeepOut  = "Approaching restricted area"
)

// BadSignalThresholdDBM is the signal strength below which a reading is
// forced to StatusBadSignal.
const BadSignalThresholdDBM = -70

// KeepOutProximityM is the geofence distance threshold in meters.
const KeepOutProximityM = 1000.0

// VehicleTelemetry is the latest enriched reading for one roster slot.
type VehicleTelemetry struct {
	Reading
	LastUpdated time.Time `json:"last_updated"`
}

// State is the full telemetry snapshot handed to observers, one entry per
// roster slot.
type State struct {
	MEA VehicleTelemetry `json:"MEA"`
	ERU VehicleTelemetry `json:"ERU"`
	MRA VehicleTelemetry `json:"MRA"`
}

func (s *State) vehicle(role mission.Role) *VehicleTelemetry {
	switch role {
	case mission.RoleMEA:
		return &s.MEA
	case mission.RoleERU:
		return &s.ERU
	case mission.RoleMRA:
		return &s.MRA
	}
	return nil
}

// Record is one durable telemetry row.
type Record struct {
	VehicleID         string    `json:"vehicle_id"` // TAG
	SignalStrength    float64   `json:"signal_strength"`
	Pitch             float64   `json:"pitch"`
	Yaw               float64   `json:"yaw"`
	Roll              float64   `json:"roll"`
	Speed             float64   `json:"speed"`
	Altitude          float64   `json:"altitude"`
	Battery           float64   `json:"battery"`
	Position          string    `json:"position"`           // JSON-encoded Position
	RequestedPosition string    `json:"requested_position"` // JSON-encoded Position
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"ts"` // TIME INDEX
}

// RecordWriter persists telemetry records. Implementations may optionally
// support batch mode.
type RecordWriter interface {
	Write(Record) error
}

// Optional: writers can also support batch mode.
type batchRecordWriter interface {
	WriteBatch([]Record) error
}

// Publisher pushes telemetry snapshots and error events to observers.
type Publisher interface {
	TelemetryUpdate(State) error
	// Notify is the best-effort fallback when the primary publish fails.
	Notify(event string, payload any)
	// Error raises an error notification, e.g. on stream teardown.
	Error(source, msg string)
}
