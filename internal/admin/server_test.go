package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rescueops/internal/events"
	"rescueops/internal/geo"
	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

// nopStore satisfies mission.Store without persistence.
type nopStore struct {
	nextMission int
	nextStage   int
}

func (s *nopStore) InsertMission(context.Context, string) (int, error) {
	s.nextMission++
	return s.nextMission, nil
}

func (s *nopStore) InsertStage(context.Context, int, string) (int, error) {
	s.nextStage++
	return s.nextStage, nil
}

func (s *nopStore) UpdateMissionName(context.Context, int, string) error { return nil }

func (s *nopStore) UpdateMissionStatus(context.Context, int, mission.Status) error { return nil }

func (s *nopStore) UpdateStageName(context.Context, int, string) error { return nil }

func (s *nopStore) UpdateStageStatus(context.Context, int, mission.Status) error { return nil }

func (s *nopStore) UpdateStageArea(context.Context, int, []string, int) error { return nil }

func (s *nopStore) UpdateAutoMode(context.Context, int, mission.Role, bool) error { return nil }

func (s *nopStore) UpdatePatientStatus(context.Context, int, mission.Role, mission.PatientStatus) error {
	return nil
}

func (s *nopStore) UpdateZones(context.Context, int, []string, []string) error { return nil }

func (s *nopStore) DeleteMission(context.Context, int) error { return nil }

func (s *nopStore) DeleteStage(context.Context, int) error { return nil }

func (s *nopStore) VehicleID(context.Context, int, mission.Role) (int, error) { return 1, nil }
func (s *nopStore) TransitionStage(context.Context, int, mission.Role, int) (int, bool, error) {
	return 0, false, nil
}
func (s *nopStore) Hydrate(context.Context) (mission.State, error) { return mission.State{}, nil }

// dropBroadcaster discards every zone send.
type dropBroadcaster struct{}

func (dropBroadcaster) KeepIn(context.Context, [][]geo.Coordinate) error { return nil }

func (dropBroadcaster) KeepOut(context.Context, [][]geo.Coordinate) error { return nil }

func (dropBroadcaster) SearchArea(context.Context, string, []geo.Coordinate) error { return nil }

func newTestServer(t *testing.T) (*Server, *mission.Service) {
	t.Helper()
	hub := events.NewHub()
	svc := mission.NewService(mission.State{}, &nopStore{}, hub, dropBroadcaster{})
	store := telemetry.NewStore()
	tracker := telemetry.NewTracker(10 * time.Second)
	return NewServer(svc, store, tracker, hub), svc
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCreateAndListMissions(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/missions/create?name=ridge+sweep", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("create status = %d, want 204: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var state mission.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if len(state.Missions) != 1 || state.Missions[0].Name != "ridge sweep" {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestCreateMission_RequiresName(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/missions/create", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMutationsRequirePost(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missions/start?mission_id=1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMissionNotFoundMapsTo404(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missions?mission_id=99", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteActiveMissionMapsTo409(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "live"); err != nil {
		t.Fatal(err)
	}
	if err := svc.StartMission(ctx, 1); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/missions/delete?mission_id=1", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestZoneUpdateWithBody(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	if err := svc.CreateMission(ctx, "zoned"); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/zones/add?mission_id=1&zone_type=keep_out", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add zone status = %d: %s", rec.Code, rec.Body.String())
	}

	body := `{"mission_id":1,"zone_type":"keep_out","index":0,"polygon":[{"lat":48.1,"long":16.1},{"lat":48.2,"long":16.2},{"lat":48.3,"long":16.3}]}`
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/zones/update", strings.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update zone status = %d: %s", rec.Code, rec.Body.String())
	}

	m, err := svc.MissionData(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.KeepOut) != 1 || len(m.KeepOut[0]) != 3 {
		t.Errorf("unexpected zones: %+v", m.KeepOut)
	}
}

func TestUnknownRoleMapsTo400(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vehicles/auto?mission_id=1&role=FRA&enabled=true", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTelemetryAndHeartbeatsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/telemetry", "/heartbeats"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s content type = %q", path, ct)
		}
	}
}
