package columns

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// clipboardWrite is swapped in tests.
var clipboardWrite = clipboard.WriteAll

// Definition renders a column the way it would appear in a CREATE TABLE.
func (m Model) Definition() string {
	col, ok := m.Selected()
	if !ok {
		return ""
	}
	def := col.Name + " " + col.Type
	if !col.IsNullable {
		def += " NOT NULL"
	}
	if col.Default != "" {
		def += " DEFAULT " + col.Default
	}
	return def
}

func (m Model) copyDefinitionCmd() tea.Cmd {
	return copyCmd(m.Definition(), "Copied: ")
}

func (m Model) copyNameCmd() tea.Cmd {
	col, ok := m.Selected()
	if !ok {
		return copyCmd("", "")
	}
	return copyCmd(col.Name, "Copied: ")
}

func (m Model) copyAllCmd() tea.Cmd {
	lines := make([]string, 0, len(m.columns))
	for _, col := range m.columns {
		lines = append(lines, col.Name+"\t"+col.Type)
	}
	return copyCmd(strings.Join(lines, "\n"), "Copied all columns of "+m.table)
}

func copyCmd(val, prefix string) tea.Cmd {
	return func() tea.Msg {
		if val == "" {
			return StatusNotifyMsg{Message: "Nothing to copy"}
		}
		if err := clipboardWrite(val); err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		if strings.HasSuffix(prefix, ": ") {
			return StatusNotifyMsg{Message: prefix + truncateStatus(val, 40)}
		}
		return StatusNotifyMsg{Message: prefix}
	}
}

func truncateStatus(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
