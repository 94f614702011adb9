package events

import (
	"errors"

	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

// Publisher is the full observer surface: snapshot pushes plus notification
// and error events. Hub and LogPublisher both implement it.
type Publisher interface {
	MissionUpdate(mission.State) error
	TelemetryUpdate(telemetry.State) error
	Notify(event string, payload any)
	Error(source, msg string)
}

// Fanout forwards every event to each target in order. A failing target
// does not stop delivery to the others; snapshot errors are joined so the
// caller still sees the failure.
type Fanout struct {
	targets []Publisher
}

// NewFanout combines publishers into one.
func NewFanout(targets ...Publisher) *Fanout {
	return &Fanout{targets: targets}
}

// MissionUpdate pushes a mission snapshot to every target.
func (f *Fanout) MissionUpdate(s mission.State) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.MissionUpdate(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TelemetryUpdate pushes a telemetry snapshot to every target.
func (f *Fanout) TelemetryUpdate(s telemetry.State) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.TelemetryUpdate(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notify forwards a notification to every target.
func (f *Fanout) Notify(event string, payload any) {
	for _, t := range f.targets {
		t.Notify(event, payload)
	}
}

// Error forwards an error event to every target.
func (f *Fanout) Error(source, msg string) {
	for _, t := range f.targets {
		t.Error(source, msg)
	}
}
