package explorer

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func newExplorer(tables ...string) Model {
	m := New()
	m.SetSize(30, 20)
	m.SetFocused(true)
	m.SetTables("app", tables)
	return m
}

func TestExplorer_ExpandRequestsColumns(t *testing.T) {
	m := newExplorer("orders", "users")

	m, cmd := m.Update(key("down"))
	assert.Nil(t, cmd, "columns are fetched on expand, not on hover")
	table, ok := m.SelectedTable()
	require.True(t, ok)
	assert.Equal(t, "orders", table)

	m, cmd = m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, SelectTableMsg{Table: "orders"}, cmd())

	m.SetColumns("orders", []database.Column{{Name: "id", Type: "integer"}, {Name: "total", Type: "numeric"}})
	view := m.View()
	assert.Contains(t, view, "id")
	assert.Contains(t, view, "numeric")

	m, _ = m.Update(key("down"))
	table, ok = m.SelectedTable()
	require.True(t, ok)
	assert.Equal(t, "orders", table, "a column belongs to its table")

	m, _ = m.Update(key("left"))
	assert.NotContains(t, m.View(), "total")
	table, _ = m.SelectedTable()
	assert.Equal(t, "orders", table)
}

func TestExplorer_HoverLoadedTable(t *testing.T) {
	m := newExplorer("orders", "users")
	m.SetColumns("users", []database.Column{{Name: "id", Type: "integer"}})

	m, _ = m.Update(key("down"))
	m, cmd := m.Update(key("down"))
	require.NotNil(t, cmd)
	assert.Equal(t, SelectTableMsg{Table: "users"}, cmd())
}

func TestExplorer_Actions(t *testing.T) {
	m := newExplorer("t")

	_, cmd := m.Update(key("n"))
	require.NotNil(t, cmd)
	assert.Equal(t, NewTableMsg{}, cmd())

	_, cmd = m.Update(key("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, RefreshMsg{}, cmd())
}

func TestExplorer_IgnoresKeysWhenBlurred(t *testing.T) {
	m := newExplorer("t")
	m.SetFocused(false)
	_, cmd := m.Update(key("n"))
	assert.Nil(t, cmd)
}

func TestExplorer_SetTablesKeepsLoadedColumns(t *testing.T) {
	m := newExplorer("a", "b")
	m.SetColumns("a", []database.Column{{Name: "x", Type: "text"}})

	m.SetTables("app", []string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, m.Tables())

	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("enter"))
	assert.Contains(t, m.View(), "x")
}

func TestExplorer_Views(t *testing.T) {
	m := New()
	assert.Contains(t, m.View(), "No connection")

	m.SetLoading(true)
	assert.Contains(t, m.View(), "Loading")

	m.SetTables("app", nil)
	assert.Contains(t, m.View(), "No tables yet")
	assert.Empty(t, m.Tables())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg..", truncate("abcdefghijkl", 9))
	assert.Equal(t, "héllo w..", truncate("héllo wörld!", 9))
}
