package statusbar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/vizql/internal/tui/theme"
)

const defaultHints = "n: New table │ Tab: Switch pane │ ?: Help │ q: Quit"

// Model is the status bar component.
type Model struct {
	width      int
	connected  bool
	connName   string
	activePane string
	message    string
	isError    bool
}

// New creates a new status bar model.
func New() Model {
	return Model{activePane: "tables"}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetConnected updates the connection indicator.
func (m *Model) SetConnected(connected bool, name string) {
	m.connected = connected
	m.connName = name
}

// SetActivePane updates the displayed active pane name.
func (m *Model) SetActivePane(pane string) {
	m.activePane = pane
}

// SetMessage shows an informational message in place of the hints.
func (m *Model) SetMessage(msg string) {
	m.message = msg
	m.isError = false
}

// SetError shows an error message in place of the hints.
func (m *Model) SetError(msg string) {
	m.message = msg
	m.isError = true
}

// ClearMessage restores the key hints.
func (m *Model) ClearMessage() {
	m.message = ""
	m.isError = false
}

// Message returns the message currently displayed, if any.
func (m Model) Message() string {
	return m.message
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages (the status bar has no interactive behavior).
func (m Model) Update(_ tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	var left string
	if m.connected {
		left = lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●") + " " + m.connName
	} else {
		left = lipgloss.NewStyle().Foreground(theme.ColorError).Render("●") + " disconnected"
	}
	if m.activePane != "" {
		left += theme.StyleMuted.Render(" [" + m.activePane + "]")
	}

	right := defaultHints
	if m.message != "" {
		right = m.message
		if m.isError {
			right = lipgloss.NewStyle().Foreground(theme.ColorError).Render(m.message)
		}
	}

	padding := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-4, 1)
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
