// Package events pushes state snapshots to observing clients.
package events

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

// Event types carried in the envelope.
const (
	EventMissionUpdate   = "mission_update"
	EventTelemetryUpdate = "telemetry_update"
	EventNotification    = "notification"
	EventError           = "error"
)

// Envelope is the wire format of one pushed event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// errorPayload mirrors the error notification raised on stream teardown.
type errorPayload struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans state snapshots out to websocket clients. It implements the
// mission and telemetry Publisher interfaces. Clients that cannot keep up
// are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[string]chan []byte

	// latest snapshots replayed to newly connected clients
	lastMission   *mission.State
	lastTelemetry *telemetry.State
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]chan []byte)}
}

// MissionUpdate pushes a mission snapshot to all clients.
func (h *Hub) MissionUpdate(s mission.State) error {
	h.mu.Lock()
	h.lastMission = &s
	h.mu.Unlock()
	return h.send(Envelope{Type: EventMissionUpdate, Payload: s})
}

// TelemetryUpdate pushes a telemetry snapshot to all clients.
func (h *Hub) TelemetryUpdate(s telemetry.State) error {
	h.mu.Lock()
	h.lastTelemetry = &s
	h.mu.Unlock()
	return h.send(Envelope{Type: EventTelemetryUpdate, Payload: s})
}

// Notify pushes a generic notification; failures are logged only.
func (h *Hub) Notify(event string, payload any) {
	if err := h.send(Envelope{Type: EventNotification, Payload: map[string]any{"event": event, "data": payload}}); err != nil {
		log.Printf("[Events] notify failed: %v", err)
	}
}

// Error raises an error event, e.g. when an ingestion stream tears down.
func (h *Hub) Error(source, msg string) {
	if err := h.send(Envelope{Type: EventError, Payload: errorPayload{Source: source, Message: msg}}); err != nil {
		log.Printf("[Events] error event publish failed: %v", err)
	}
}

func (h *Hub) send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow; drop it.
			close(ch)
			delete(h.clients, id)
			log.Printf("[Events] dropped slow client %s", id)
		}
	}
	return nil
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Events] upgrade failed: %v", err)
		return
	}
	id := uuid.New().String()
	ch := make(chan []byte, 64)

	h.mu.Lock()
	h.clients[id] = ch
	lastMission, lastTelemetry := h.lastMission, h.lastTelemetry
	h.mu.Unlock()

	// Replay the latest snapshots so the client starts in sync.
	if lastMission != nil {
		if data, err := json.Marshal(Envelope{Type: EventMissionUpdate, Payload: *lastMission}); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
	if lastTelemetry != nil {
		if data, err := json.Marshal(Envelope{Type: EventTelemetryUpdate, Payload: *lastTelemetry}); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}

	go func() {
		// Drain reads to observe client close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(id)
				conn.Close()
				return
			}
		}
	}()

	for data := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(id)
			conn.Close()
			return
		}
	}
	conn.Close()
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
