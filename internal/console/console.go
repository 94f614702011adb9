// Package console renders live mission and telemetry state in a terminal UI.
package console

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"rescueops/internal/events"
	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

// missionMsg carries a mission snapshot.
type missionMsg struct{ state mission.State }

// telemetryMsg carries a telemetry snapshot.
type telemetryMsg struct{ state telemetry.State }

// noteMsg carries a notification log line.
type noteMsg struct{ line string }

// connMsg reports websocket connection status.
type connMsg struct{ connected bool }

// Run connects to a running server and drives the TUI until quit.
func Run(serverAddr string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("console requires an interactive terminal")
	}
	u := url.URL{Scheme: "ws", Host: serverAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", u.String(), err)
	}
	defer conn.Close()

	p := tea.NewProgram(newModel(serverAddr), tea.WithAltScreen())
	go readEvents(conn, p)
	_, err = p.Run()
	return err
}

// readEvents decodes envelopes off the websocket and forwards them as tea
// messages. The loop ends when the connection drops.
func readEvents(conn *websocket.Conn, p *tea.Program) {
	p.Send(connMsg{connected: true})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			p.Send(connMsg{connected: false})
			return
		}
		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case events.EventMissionUpdate:
			var s mission.State
			if json.Unmarshal(env.Payload, &s) == nil {
				p.Send(missionMsg{state: s})
			}
		case events.EventTelemetryUpdate:
			var s telemetry.State
			if json.Unmarshal(env.Payload, &s) == nil {
				p.Send(telemetryMsg{state: s})
			}
		case events.EventNotification:
			p.Send(noteMsg{line: formatNote(env.Payload)})
		case events.EventError:
			p.Send(noteMsg{line: formatError(env.Payload)})
		}
	}
}

func formatNote(payload json.RawMessage) string {
	var n struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if json.Unmarshal(payload, &n) == nil && n.Event != "" {
		return fmt.Sprintf("%sNOTE%s %s %s", colorYellow, colorReset, n.Event, string(n.Data))
	}
	return fmt.Sprintf("%sNOTE%s %s", colorYellow, colorReset, string(payload))
}

func formatError(payload json.RawMessage) string {
	var e struct {
		Source  string `json:"source"`
		Message string `json:"message"`
	}
	if json.Unmarshal(payload, &e) == nil && e.Source != "" {
		return fmt.Sprintf("%sERROR%s %s: %s", colorRed, colorReset, e.Source, e.Message)
	}
	return fmt.Sprintf("%sERROR%s %s", colorRed, colorReset, string(payload))
}
