// Package creator implements the create-table form.
package creator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/joacominatel/vizql/internal/tui/theme"
)

// Validation messages shown before anything is sent to the server.
const (
	ErrTableNameRequired  = "Table name required"
	ErrNoColumns          = "At least one column required"
	ErrColumnNameRequired = "All columns must have a name"
)

// CreateTableMsg is emitted when a valid form is submitted.
type CreateTableMsg struct {
	Table   string
	Columns []database.Column
}

// CancelMsg is emitted when the form is dismissed.
type CancelMsg struct{}

type columnRow struct {
	name textinput.Model
	typ  textinput.Model
}

// Model is the create-table form. Focus index 0 is the table name; each
// column row then contributes a name field and a type field.
type Model struct {
	table   textinput.Model
	rows    []columnRow
	types   []string
	focus   int
	width   int
	err     string
	pending bool
}

// New creates an empty form offering types as presets for the type field.
func New(types []string) Model {
	if len(types) == 0 {
		types = database.ColumnTypes
	}
	m := Model{
		table: newInput("table_name", 63),
		types: types,
	}
	m.AddRow()
	m.focus = 0
	m.applyFocus()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.Width = 24
	ti.PlaceholderStyle = theme.StyleMuted
	return ti
}

// SetWidth updates the available width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// AddRow appends a column row with the first preset type and focuses its name.
func (m *Model) AddRow() {
	typ := newInput("TYPE", 64)
	typ.SetValue(m.types[0])
	m.rows = append(m.rows, columnRow{name: newInput("column_name", 63), typ: typ})
	m.focus = 1 + 2*(len(m.rows)-1)
	m.applyFocus()
}

// RemoveRow drops the row holding focus. The last row is never removed.
func (m *Model) RemoveRow() {
	i := m.focusedRow()
	if i < 0 || len(m.rows) <= 1 {
		return
	}
	m.rows = slices.Delete(m.rows, i, i+1)
	m.focus = min(m.focus, m.fieldCount()-1)
	m.applyFocus()
}

// Rows returns the number of column rows.
func (m Model) Rows() int {
	return len(m.rows)
}

// SetError shows a server-side failure under the form and re-enables submit.
func (m *Model) SetError(msg string) {
	m.err = msg
	m.pending = false
}

// Err returns the message currently shown under the form.
func (m Model) Err() string {
	return m.err
}

// SetPending marks the form as submitted and waiting for the server.
func (m *Model) SetPending(p bool) {
	m.pending = p
}

// Reset clears the form back to a single empty row.
func (m *Model) Reset() {
	*m = New(m.types)
}

func (m Model) fieldCount() int {
	return 1 + 2*len(m.rows)
}

func (m Model) focusedRow() int {
	if m.focus == 0 {
		return -1
	}
	return (m.focus - 1) / 2
}

func (m *Model) applyFocus() {
	m.table.Blur()
	if m.focus == 0 {
		m.table.Focus()
	}
	for i := range m.rows {
		m.rows[i].name.Blur()
		m.rows[i].typ.Blur()
		switch m.focus {
		case 1 + 2*i:
			m.rows[i].name.Focus()
		case 2 + 2*i:
			m.rows[i].typ.Focus()
		}
	}
}

// Validate checks the form and returns the trimmed table name and columns.
func (m Model) Validate() (string, []database.Column, string) {
	table := strings.TrimSpace(m.table.Value())
	if table == "" {
		return "", nil, ErrTableNameRequired
	}

	var cols []database.Column
	for _, r := range m.rows {
		name := strings.TrimSpace(r.name.Value())
		typ := strings.TrimSpace(r.typ.Value())
		if name == "" && typ == "" {
			continue
		}
		if name == "" {
			return "", nil, ErrColumnNameRequired
		}
		cols = append(cols, database.Column{Name: name, Type: typ})
	}
	if len(cols) == 0 {
		return "", nil, ErrNoColumns
	}
	return table, cols, ""
}

// cycleType moves the focused row's type through the presets.
func (m *Model) cycleType(step int) {
	i := m.focusedRow()
	if i < 0 {
		return
	}
	current := strings.ToUpper(strings.TrimSpace(m.rows[i].typ.Value()))
	idx := slices.Index(m.types, current)
	switch {
	case idx < 0 && step > 0:
		idx = 0
	case idx < 0:
		idx = len(m.types) - 1
	default:
		idx = (idx + step + len(m.types)) % len(m.types)
	}
	m.rows[i].typ.SetValue(m.types[idx])
	m.rows[i].typ.CursorEnd()
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return CancelMsg{} }
		case "tab", "down":
			m.focus = (m.focus + 1) % m.fieldCount()
			m.applyFocus()
			return m, nil
		case "shift+tab", "up":
			m.focus = (m.focus - 1 + m.fieldCount()) % m.fieldCount()
			m.applyFocus()
			return m, nil
		case "ctrl+a":
			m.AddRow()
			return m, nil
		case "ctrl+d":
			m.RemoveRow()
			return m, nil
		case "ctrl+t":
			m.cycleType(1)
			return m, nil
		case "ctrl+r":
			m.cycleType(-1)
			return m, nil
		case "enter", "ctrl+s":
			if m.pending {
				return m, nil
			}
			table, cols, problem := m.Validate()
			if problem != "" {
				m.err = problem
				return m, nil
			}
			m.err = ""
			m.pending = true
			return m, func() tea.Msg { return CreateTableMsg{Table: table, Columns: cols} }
		}
	}

	var cmd tea.Cmd
	switch i := m.focusedRow(); {
	case i < 0:
		m.table, cmd = m.table.Update(msg)
	case m.focus%2 == 1:
		m.rows[i].name, cmd = m.rows[i].name.Update(msg)
	default:
		m.rows[i].typ, cmd = m.rows[i].typ.Update(msg)
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.StyleTitle.Render("New Table"))
	b.WriteString("\n\n")
	b.WriteString(label("Name", m.focus == 0) + m.table.View())
	b.WriteString("\n\n")
	b.WriteString(theme.StyleMuted.Render(fmt.Sprintf("Columns (%d)", len(m.rows))))
	b.WriteString("\n")

	for i, r := range m.rows {
		marker := "  "
		if m.focusedRow() == i {
			marker = lipgloss.NewStyle().Foreground(theme.ColorHighlight).Render("▸ ")
		}
		b.WriteString(marker + r.name.View() + "  " + r.typ.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.pending:
		b.WriteString(theme.StyleMuted.Render("Creating..."))
	case m.err != "":
		b.WriteString(theme.StyleError.Render(m.err))
	}
	b.WriteString("\n")
	b.WriteString(theme.StyleMuted.Render("Tab/↑↓: Move  Ctrl+A: Add column  Ctrl+D: Remove  Ctrl+T/R: Cycle type  Enter: Create  Esc: Cancel"))

	style := theme.StyleDialog
	if m.width > 0 {
		style = style.MaxWidth(m.width)
	}
	return style.Render(b.String())
}

func label(s string, focused bool) string {
	if focused {
		return theme.StyleFocusedLabel.Render(s)
	}
	return theme.StyleLabel.Render(s)
}
