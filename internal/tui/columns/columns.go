// Package columns renders the column details of the selected table.
package columns

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/joacominatel/vizql/internal/tui/theme"
)

var headers = []string{"name", "type", "nullable", "default", "pk"}

// maxCellWidth caps how wide a single column of the grid may grow.
const maxCellWidth = 40

// StatusNotifyMsg carries a message for the status bar.
type StatusNotifyMsg struct {
	Message string
}

// Model is the column details component.
type Model struct {
	table     string
	columns   []database.Column
	err       error
	width     int
	height    int
	focused   bool
	loading   bool
	cursor    int
	scrollY   int
	colWidths []int
}

// New creates a new columns model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Focused returns whether the pane has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading marks table as being fetched.
func (m *Model) SetLoading(table string) {
	m.table = table
	m.loading = true
	m.err = nil
}

// Table returns the table whose columns are shown.
func (m Model) Table() string {
	return m.table
}

// SetColumns shows the columns of table. The cursor is kept when the same
// table is reloaded.
func (m *Model) SetColumns(table string, cols []database.Column) {
	if table != m.table {
		m.cursor = 0
		m.scrollY = 0
	}
	m.table = table
	m.columns = cols
	m.err = nil
	m.loading = false
	if m.cursor >= len(cols) {
		m.cursor = max(0, len(cols)-1)
	}
	m.calculateColumnWidths()
}

// SetError shows err instead of the grid.
func (m *Model) SetError(table string, err error) {
	m.table = table
	m.err = err
	m.columns = nil
	m.loading = false
	m.cursor = 0
	m.scrollY = 0
}

// Clear resets the pane to its empty state.
func (m *Model) Clear() {
	*m = Model{width: m.width, height: m.height, focused: m.focused}
}

// Selected returns the column under the cursor.
func (m Model) Selected() (database.Column, bool) {
	if m.cursor < 0 || m.cursor >= len(m.columns) {
		return database.Column{}, false
	}
	return m.columns[m.cursor], true
}

func (m *Model) calculateColumnWidths() {
	m.colWidths = make([]int, len(headers))
	for i, h := range headers {
		m.colWidths[i] = lipgloss.Width(h)
	}
	for _, col := range m.columns {
		for i, cell := range cells(col) {
			m.colWidths[i] = max(m.colWidths[i], lipgloss.Width(cell))
		}
	}
	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxCellWidth)
	}
}

func cells(col database.Column) []string {
	nullable := "no"
	if col.IsNullable {
		nullable = "yes"
	}
	pk := ""
	if col.IsPrimary {
		pk = "✓"
	}
	return []string{col.Name, col.Type, nullable, col.Default, pk}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the columns pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.columns)-1 {
				m.cursor++
			}
		case "pgup":
			m.cursor = max(m.cursor-m.visibleRows(), 0)
		case "pgdown":
			m.cursor = max(min(m.cursor+m.visibleRows(), len(m.columns)-1), 0)
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = max(len(m.columns)-1, 0)
		case "y":
			return m, m.copyDefinitionCmd()
		case "c":
			return m, m.copyNameCmd()
		case "Y":
			return m, m.copyAllCmd()
		}
		m.keepCursorVisible()
	}

	return m, nil
}

func (m Model) visibleRows() int {
	return max(m.height-4, 1)
}

func (m *Model) keepCursorVisible() {
	rows := m.visibleRows()
	if m.cursor < m.scrollY {
		m.scrollY = m.cursor
	}
	if m.cursor >= m.scrollY+rows {
		m.scrollY = m.cursor - rows + 1
	}
}

// View renders the columns pane.
func (m Model) View() string {
	title := theme.PaneTitle("Columns")
	if m.table != "" {
		title += theme.StyleMuted.Render("  " + m.table)
	}

	switch {
	case m.loading:
		return title + "\n" + theme.StyleMuted.Render("  Loading columns...")
	case m.err != nil:
		return title + "\n" + theme.StyleError.Render("  Error: "+m.err.Error())
	case m.table == "":
		return title + "\n" + theme.StyleMuted.Render("  Select a table to see its columns")
	case len(m.columns) == 0:
		return title + "\n" + theme.StyleMuted.Render("  No columns")
	}

	title += theme.StyleMuted.Render(fmt.Sprintf(" | %d column(s)", len(m.columns)))
	if m.focused {
		title += theme.StyleMuted.Render("  y: copy  c: copy name  Y: copy all")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(m.renderRow(headers, true, false))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	rows := m.visibleRows()
	for i := m.scrollY; i < len(m.columns) && i < m.scrollY+rows; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(cells(m.columns[i]), false, m.focused && i == m.cursor))
	}

	return b.String()
}

func (m Model) renderRow(row []string, isHeader, selected bool) string {
	parts := make([]string, len(row))
	for i, cell := range row {
		width := 10
		if i < len(m.colWidths) {
			width = m.colWidths[i]
		}
		display := fit(cell, width)

		switch {
		case isHeader:
			parts[i] = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorPrimary).Render(display)
		case selected:
			parts[i] = lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true).Render(display)
		default:
			parts[i] = display
		}
	}

	prefix := "  "
	if selected {
		prefix = lipgloss.NewStyle().Foreground(theme.ColorHighlight).Render("▸ ")
	}
	return prefix + strings.Join(parts, " │ ")
}

// fit truncates or pads s to exactly width display cells.
func fit(s string, width int) string {
	width = max(width, 1)
	if lipgloss.Width(s) > width {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func (m Model) renderSeparator() string {
	parts := make([]string, len(m.colWidths))
	for i, w := range m.colWidths {
		parts[i] = strings.Repeat("─", max(w, 1))
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}
