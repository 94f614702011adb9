package events

import (
	"log/slog"

	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

// LogPublisher writes event summaries to the structured log. Fanned out
// beside the Hub so server logs show activity even with no console
// attached.
type LogPublisher struct {
	Log *slog.Logger
}

// MissionUpdate logs a one-line mission snapshot summary.
func (p *LogPublisher) MissionUpdate(s mission.State) error {
	p.Log.Info("mission snapshot",
		"current_mission", s.CurrentMission,
		"missions", len(s.Missions))
	return nil
}

// TelemetryUpdate logs a one-line telemetry snapshot summary.
func (p *LogPublisher) TelemetryUpdate(s telemetry.State) error {
	p.Log.Info("telemetry snapshot",
		"mea_status", s.MEA.VehicleStatus,
		"eru_status", s.ERU.VehicleStatus,
		"mra_status", s.MRA.VehicleStatus)
	return nil
}

// Notify logs a generic notification.
func (p *LogPublisher) Notify(event string, payload any) {
	p.Log.Info("notification", "event", event)
}

// Error logs an error event.
func (p *LogPublisher) Error(source, msg string) {
	p.Log.Error("event", "source", source, "msg", msg)
}
