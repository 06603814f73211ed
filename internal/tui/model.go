package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vito/progrock"
)

const (
	statusRunning   = "running"
	statusCompleted = "completed"
	statusCached    = "cached"
	statusFailed    = "failed"
)

// VertexState represents the current state of a build task in the TUI.
type VertexState struct {
	ID     string
	Name   string
	Status string
	// LastLine is the most recent non-empty output line of a running task.
	LastLine string
}

type styles struct {
	running   lipgloss.Style
	completed lipgloss.Style
	cached    lipgloss.Style
	failed    lipgloss.Style
	output    lipgloss.Style
}

// Model is the Bubble Tea model for the TUI, managing vertices and tape updates.
type Model struct {
	tape     TapeSource
	vertices []VertexState
	index    map[string]int
	width    int
	height   int
	spinner  spinner.Model
	styles   styles
}

// NewModel creates a new TUI model with the given tape source.
func NewModel(tape TapeSource) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))

	return &Model{
		tape:    tape,
		index:   make(map[string]int),
		spinner: s,
		styles: styles{
			running:   lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")),
			completed: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),  // Green
			cached:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")), // Gray
			failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("160")), // Red
			output:    lipgloss.NewStyle().Faint(true),
		},
	}
}

// Init initializes the model and starts reading from the tape.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForTape(m.tape),
		m.spinner.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTick(msg)
	case MsgTapeUpdate:
		return m.handleTapeUpdate(msg)
	case MsgTapeEnded:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	return m, nil
}

func (m *Model) handleSpinnerTick(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m *Model) handleTapeUpdate(msg MsgTapeUpdate) (tea.Model, tea.Cmd) {
	if msg.Update != nil {
		for _, v := range msg.Update.Vertexes {
			m.updateOrAddVertex(v)
		}
		for _, l := range msg.Update.Logs {
			m.appendLog(l)
		}
	}
	return m, WaitForTape(m.tape)
}

func (m *Model) updateOrAddVertex(v *progrock.Vertex) {
	i, ok := m.index[v.Id]
	if !ok {
		i = len(m.vertices)
		m.index[v.Id] = i
		m.vertices = append(m.vertices, VertexState{ID: v.Id, Name: v.Name, Status: statusRunning})
	}

	switch {
	case v.Completed == nil:
	case v.Error != nil:
		m.vertices[i].Status = statusFailed
	case v.Cached:
		m.vertices[i].Status = statusCached
	default:
		m.vertices[i].Status = statusCompleted
	}
}

func (m *Model) appendLog(l *progrock.VertexLog) {
	i, ok := m.index[l.Vertex]
	if !ok {
		return
	}
	lines := strings.Split(strings.TrimRight(string(l.Data), "\n"), "\n")
	for j := len(lines) - 1; j >= 0; j-- {
		if line := strings.TrimSpace(lines[j]); line != "" {
			m.vertices[i].LastLine = line
			return
		}
	}
}

// View renders the current state of the model as a string.
func (m *Model) View() string {
	var s strings.Builder

	// Keep the newest tasks and the summary line on screen.
	start := 0
	if m.height > 1 && len(m.vertices) > m.height-1 {
		start = len(m.vertices) - (m.height - 1)
	}

	done := 0
	for _, v := range m.vertices {
		if v.Status != statusRunning {
			done++
		}
	}

	for _, v := range m.vertices[start:] {
		var icon string
		var style lipgloss.Style
		switch v.Status {
		case statusRunning:
			icon = m.spinner.View()
			style = m.styles.running
		case statusCompleted:
			icon = "✓"
			style = m.styles.completed
		case statusCached:
			icon = "="
			style = m.styles.cached
		default:
			icon = "✗"
			style = m.styles.failed
		}

		line := fmt.Sprintf("%s %s", style.Render(icon), v.Name)
		if v.Status == statusRunning && v.LastLine != "" {
			line += " " + m.styles.output.Render(m.truncate(v.LastLine, len(v.Name)+3))
		}
		s.WriteString(line)
		s.WriteByte('\n')
	}
	fmt.Fprintf(&s, "%d/%d tasks finished\n", done, len(m.vertices))

	return s.String()
}

// truncate shortens text to fit next to a prefix of used columns.
func (m *Model) truncate(text string, used int) string {
	if m.width <= 0 {
		return text
	}
	room := m.width - used
	if room <= 1 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= room {
		return text
	}
	return string(runes[:room-1]) + "…"
}
