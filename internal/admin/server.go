package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rescueops/internal/events"
	"rescueops/internal/geo"
	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

// Server exposes mission operations and live state over HTTP.
type Server struct {
	Missions  *mission.Service
	Telemetry *telemetry.Store
	Beats     *telemetry.Tracker
	Hub       *events.Hub
	mux       *http.ServeMux
}

func NewServer(missions *mission.Service, tel *telemetry.Store, beats *telemetry.Tracker, hub *events.Hub) *Server {
	s := &Server{Missions: missions, Telemetry: tel, Beats: beats, Hub: hub, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/missions", s.handleMissions)
	s.mux.HandleFunc("/missions/create", s.handleCreateMission)
	s.mux.HandleFunc("/missions/rename", s.handleRenameMission)
	s.mux.HandleFunc("/missions/delete", s.handleDeleteMission)
	s.mux.HandleFunc("/missions/start", s.handleStartMission)
	s.mux.HandleFunc("/stages/add", s.handleAddStage)
	s.mux.HandleFunc("/stages/rename", s.handleRenameStage)
	s.mux.HandleFunc("/stages/delete", s.handleDeleteStage)
	s.mux.HandleFunc("/stages/area", s.handleStageArea)
	s.mux.HandleFunc("/stages/transition", s.handleTransitionStage)
	s.mux.HandleFunc("/zones/add", s.handleAddZone)
	s.mux.HandleFunc("/zones/update", s.handleUpdateZone)
	s.mux.HandleFunc("/zones/delete", s.handleDeleteZone)
	s.mux.HandleFunc("/vehicles/auto", s.handleAutoMode)
	s.mux.HandleFunc("/vehicles/patient", s.handlePatientStatus)
	s.mux.HandleFunc("/telemetry", s.handleTelemetry)
	s.mux.HandleFunc("/heartbeats", s.handleHeartbeats)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/ws", s.Hub.ServeWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("mission_id"); id != "" {
		missionID, _ := strconv.Atoi(id)
		m, err := s.Missions.MissionData(missionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, m)
		return
	}
	writeJSON(w, s.Missions.Snapshot())
}

func (s *Server) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	s.finish(w, s.Missions.CreateMission(r.Context(), name))
}

func (s *Server) handleRenameMission(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.finish(w, s.Missions.RenameMission(r.Context(), queryInt(r, "mission_id"), r.URL.Query().Get("name")))
}

func (s *Server) handleDeleteMission(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.finish(w, s.Missions.DeleteMission(r.Context(), queryInt(r, "mission_id")))
}

func (s *Server) handleStartMission(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	s.finish(w, s.Missions.StartMission(r.Context(), queryInt(r, "mission_id")))
}

func (s *Server) handleAddStage(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	role, ok := queryRole(w, r)
	if !ok {
		return
	}
	s.finish(w, s.Missions.AddStage(r.Context(), queryInt(r, "mission_id"), role, r.URL.Query().Get("name")))
}

func (s *Server) handleRenameStage(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	role, ok := queryRole(w, r)
	if !ok {
		return
	}
	s.finish(w, s.Missions.RenameStage(r.Context(), queryInt(r, "mission_id"), role, queryInt(r, "stage_id"), r.URL.Query().Get("name")))
}

func (s *Server) handleDeleteStage(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	role, ok := queryRole(w, r)
	if !ok {
		return
	}
	s.finish(w, s.Missions.DeleteStage(r.Context(), queryInt(r, "mission_id"), role, queryInt(r, "stage_id")))
}

func (s *Server) handleStageArea(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		MissionID int              `json:"mission_id"`
		Role      string           `json:"role"`
		StageID   int              `json:"stage_id"`
		Area      []geo.Coordinate `json:"area"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	role, ok := mission.ParseRole(req.Role)
	if !ok {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	s.finish(w, s.Missions.UpdateStageArea(r.Context(), req.MissionID, role, req.StageID, req.Area))
}

func (s *Server) handleTransitionStage(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	role, ok := queryRole(w, r)
	if !ok {
		return
	}
	s.finish(w, s.Missions.TransitionStage(r.Context(), queryInt(r, "mission_id"), role))
}

func (s *Server) handleAddZone(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	zt, ok := queryZoneType(w, r)
	if !ok {
		return
	}
	s.finish(w, s.Missions.AddZone(r.Context(), queryInt(r, "mission_id"), zt))
}

func (s *Server) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		MissionID int              `json:"mission_id"`
		ZoneType  string           `json:"zone_type"`
		Index     int              `json:"index"`
		Polygon   []geo.Coordinate `json:"polygon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	zt, ok := parseZoneType(req.ZoneType)
	if !ok {
		http.Error(w, "unknown zone type", http.StatusBadRequest)
		return
	}
	s.finish(w, s.Missions.UpdateZone(r.Context(), req.MissionID, zt, req.Index, req.Polygon))
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	zt, ok := queryZoneType(w, r)
	if !ok {
		return
	}
	s.finish(w, s.Missions.DeleteZone(r.Context(), queryInt(r, "mission_id"), zt, queryInt(r, "index")))
}

func (s *Server) handleAutoMode(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	role, ok := queryRole(w, r)
	if !ok {
		return
	}
	enabled, _ := strconv.ParseBool(r.URL.Query().Get("enabled"))
	s.finish(w, s.Missions.SetAutoMode(r.Context(), queryInt(r, "mission_id"), role, enabled))
}

func (s *Server) handlePatientStatus(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	role, ok := queryRole(w, r)
	if !ok {
		return
	}
	status := mission.PatientStatus(r.URL.Query().Get("status"))
	if status != mission.PatientSecured && status != mission.PatientUnsecured {
		http.Error(w, "unknown patient status", http.StatusBadRequest)
		return
	}
	s.finish(w, s.Missions.SetPatientStatus(r.Context(), queryInt(r, "mission_id"), role, status))
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Telemetry.Snapshot())
}

func (s *Server) handleHeartbeats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Beats.Snapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "ws_clients": s.Hub.ClientCount()})
}

func (s *Server) finish(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryRole(w http.ResponseWriter, r *http.Request) (mission.Role, bool) {
	role, ok := mission.ParseRole(r.URL.Query().Get("role"))
	if !ok {
		http.Error(w, "unknown role", http.StatusBadRequest)
	}
	return role, ok
}

func queryZoneType(w http.ResponseWriter, r *http.Request) (mission.ZoneType, bool) {
	zt, ok := parseZoneType(r.URL.Query().Get("zone_type"))
	if !ok {
		http.Error(w, "unknown zone type", http.StatusBadRequest)
	}
	return zt, ok
}

func parseZoneType(s string) (mission.ZoneType, bool) {
	switch s {
	case "keep_in", string(mission.ZoneKeepIn):
		return mission.ZoneKeepIn, true
	case "keep_out", string(mission.ZoneKeepOut):
		return mission.ZoneKeepOut, true
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mission.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, mission.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, mission.ErrOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
