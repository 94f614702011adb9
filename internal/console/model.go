package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"rescueops/internal/mission"
	"rescueops/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"

	maxLogLines = 1000
)

type model struct {
	addr         string
	table        table.Model
	vp           viewport.Model
	logs         []string
	missions     mission.State
	telemetry    telemetry.State
	connected    bool
	wrap         bool
	autoscroll   bool
	showMissions bool
	help         bool
	height       int
}

func newModel(addr string) model {
	cols := []table.Column{
		{Title: "Vehicle", Width: 8},
		{Title: "Status", Width: 26},
		{Title: "Batt", Width: 6},
		{Title: "Signal", Width: 7},
		{Title: "Speed", Width: 7},
		{Title: "Alt", Width: 7},
		{Title: "Position", Width: 22},
		{Title: "Patient", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(4))
	return model{
		addr:         addr,
		table:        t,
		vp:           viewport.New(0, 0),
		autoscroll:   true,
		showMissions: true,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "p":
			m.showMissions = !m.showMissions
			m.updateViewportHeight()
		case "h", "?":
			m.help = !m.help
		default:
			if !m.autoscroll {
				switch msg.String() {
				case "j", "down":
					m.vp.LineDown(1)
				case "k", "up":
					m.vp.LineUp(1)
				case "pgdown", "ctrl+n":
					m.vp.LineDown(10)
				case "pgup", "ctrl+p":
					m.vp.LineUp(10)
				}
			}
		}
	case connMsg:
		m.connected = msg.connected
		if msg.connected {
			m.appendLog(fmt.Sprintf("%sconnected to %s%s", colorGreen, m.addr, colorReset))
		} else {
			m.appendLog(fmt.Sprintf("%sconnection lost%s", colorRed, colorReset))
		}
	case missionMsg:
		m.missions = msg.state
		m.updateViewportHeight()
	case telemetryMsg:
		m.telemetry = msg.state
		m.refreshTable()
	case noteMsg:
		m.appendLog(fmt.Sprintf("%s[%s]%s %s", colorGray, time.Now().Format(time.RFC3339), colorReset, msg.line))
	}
	return m, nil
}

func (m *model) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *model) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *model) refreshTable() {
	rows := make([]table.Row, 0, 3)
	for _, role := range mission.Roles() {
		v := vehicleTelemetry(m.telemetry, role)
		rows = append(rows, table.Row{
			string(role),
			v.VehicleStatus,
			fmt.Sprintf("%.0f%%", v.BatteryLife),
			fmt.Sprintf("%.0f", v.SignalStrength),
			fmt.Sprintf("%.1f", v.Speed),
			fmt.Sprintf("%.1f", v.Altitude),
			fmt.Sprintf("%.5f,%.5f", v.CurrentPosition.Latitude, v.CurrentPosition.Longitude),
			patientLabel(m.missions, role),
		})
	}
	m.table.SetRows(rows)
}

func vehicleTelemetry(s telemetry.State, role mission.Role) telemetry.VehicleTelemetry {
	switch role {
	case mission.RoleMEA:
		return s.MEA
	case mission.RoleERU:
		return s.ERU
	default:
		return s.MRA
	}
}

func patientLabel(s mission.State, role mission.Role) string {
	for i := range s.Missions {
		if s.Missions[i].ID == s.CurrentMission {
			return string(s.Missions[i].Vehicle(role).PatientStatus)
		}
	}
	return "-"
}

func (m *model) updateViewportHeight() {
	header := lipgloss.Height(m.renderHeader())
	bottom := lipgloss.Height(m.renderBottom())
	h := m.height - header - bottom - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m model) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.renderHeader(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m model) renderHeader() string {
	tableView := m.table.View()
	if !m.showMissions {
		return tableView
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderMissionTree(), tableView)
}

func (m model) renderMissionTree() string {
	if len(m.missions.Missions) == 0 {
		return "Missions: none"
	}
	var b strings.Builder
	b.WriteString("Missions\n")
	for i := range m.missions.Missions {
		ms := &m.missions.Missions[i]
		prefix := "├─"
		if i == len(m.missions.Missions)-1 {
			prefix = "└─"
		}
		c := statusColor(ms.Status)
		marker := ""
		if ms.ID == m.missions.CurrentMission {
			marker = " *"
		}
		b.WriteString(fmt.Sprintf("%s %s%s%s %s [%s]%s\n", prefix, c, statusIcon(ms.Status), colorReset, ms.Name, ms.Status, marker))
		for _, role := range mission.Roles() {
			v := ms.Vehicle(role)
			if len(v.Stages) == 0 {
				continue
			}
			var stages []string
			for _, st := range v.Stages {
				stages = append(stages, fmt.Sprintf("%s%s%s[%s]", statusColor(st.Status), st.Name, colorReset, st.Status))
			}
			b.WriteString(fmt.Sprintf("   %s: %s\n", role, strings.Join(stages, " → ")))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusColor(s mission.Status) string {
	switch s {
	case mission.StatusActive:
		return colorGreen
	case mission.StatusComplete:
		return colorBlue
	case mission.StatusFailed:
		return colorRed
	default:
		return colorGray
	}
}

func statusIcon(s mission.Status) string {
	switch s {
	case mission.StatusActive:
		return "●"
	case mission.StatusComplete:
		return "✓"
	case mission.StatusFailed:
		return "✗"
	default:
		return "○"
	}
}

func (m model) renderBottom() string {
	connColor := lipgloss.Color("9")
	if m.connected {
		connColor = lipgloss.Color("10")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	connIndicator := lipgloss.NewStyle().Foreground(connColor).Render("●")
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	return fmt.Sprintf("%s | Link %s | Wrap %s | Scroll %s | Help h/?", m.addr, connIndicator, wrapIndicator, scrollIndicator)
}

func (m model) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle log wrapping",
		" s  toggle auto-scroll",
		" p  toggle mission tree",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
