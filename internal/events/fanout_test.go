package events

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"rescueops/internal/logging"
	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

var (
	_ Publisher = (*Hub)(nil)
	_ Publisher = (*LogPublisher)(nil)
)

type recordingPublisher struct {
	missionPushes   int
	telemetryPushes int
	notifies        []string
	errorEvents     []string
	fail            bool
}

func (r *recordingPublisher) MissionUpdate(mission.State) error {
	if r.fail {
		return errors.New("push failed")
	}
	r.missionPushes++
	return nil
}

func (r *recordingPublisher) TelemetryUpdate(telemetry.State) error {
	if r.fail {
		return errors.New("push failed")
	}
	r.telemetryPushes++
	return nil
}

func (r *recordingPublisher) Notify(event string, payload any) {
	r.notifies = append(r.notifies, event)
}

func (r *recordingPublisher) Error(source, msg string) {
	r.errorEvents = append(r.errorEvents, source+": "+msg)
}

func TestFanout_DeliversToAllTargets(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	f := NewFanout(a, b)

	if err := f.MissionUpdate(mission.State{}); err != nil {
		t.Fatal(err)
	}
	if err := f.TelemetryUpdate(telemetry.State{}); err != nil {
		t.Fatal(err)
	}
	f.Notify("zone_update", nil)
	f.Error("telemetry", "stream closed")

	for i, p := range []*recordingPublisher{a, b} {
		if p.missionPushes != 1 || p.telemetryPushes != 1 {
			t.Errorf("target %d pushes = %d/%d, want 1/1", i, p.missionPushes, p.telemetryPushes)
		}
		if len(p.notifies) != 1 || len(p.errorEvents) != 1 {
			t.Errorf("target %d got %d notifies, %d errors, want 1/1", i, len(p.notifies), len(p.errorEvents))
		}
	}
}

func TestFanout_FailingTargetDoesNotBlockOthers(t *testing.T) {
	bad, good := &recordingPublisher{fail: true}, &recordingPublisher{}
	f := NewFanout(bad, good)

	err := f.MissionUpdate(mission.State{})
	if err == nil {
		t.Fatal("expected the failing target's error to surface")
	}
	if good.missionPushes != 1 {
		t.Errorf("healthy target pushes = %d, want 1", good.missionPushes)
	}
}

func TestLogPublisher_WritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	p := &LogPublisher{Log: logging.Component(logging.NewWriter(&buf), "events")}

	if err := p.MissionUpdate(mission.State{CurrentMission: 7}); err != nil {
		t.Fatal(err)
	}
	p.Notify("mission_update", nil)
	p.Error("telemetry", "stream closed")

	out := buf.String()
	for _, want := range []string{"mission snapshot", "notification", "component=events", "stream closed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
