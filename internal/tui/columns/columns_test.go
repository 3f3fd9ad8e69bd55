package columns

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(k string) tea.KeyMsg {
	switch k {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

var sample = []database.Column{
	{Name: "id", Type: "integer", IsPrimary: true, Default: "nextval('t_id_seq'::regclass)", OrdinalPos: 1},
	{Name: "age", Type: "integer", IsNullable: true, OrdinalPos: 2},
}

func stubClipboard(t *testing.T, err error) *string {
	t.Helper()
	var got string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		got = s
		return err
	}
	t.Cleanup(func() { clipboardWrite = orig })
	return &got
}

func TestColumns_View(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	assert.Contains(t, m.View(), "Select a table")

	m.SetLoading("t")
	assert.Contains(t, m.View(), "Loading")

	m.SetColumns("t", sample)
	view := m.View()
	assert.Contains(t, view, "2 column(s)")
	assert.Contains(t, view, "age")
	assert.Contains(t, view, "nullable")

	m.SetColumns("t", []database.Column{})
	assert.Contains(t, m.View(), "No columns")

	m.SetError("t", errors.New("boom"))
	assert.Contains(t, m.View(), "Error: boom")
}

func TestColumns_CursorAndCopy(t *testing.T) {
	got := stubClipboard(t, nil)

	m := New()
	m.SetSize(80, 20)
	m.SetFocused(true)
	m.SetColumns("t", sample)

	assert.Equal(t, "id integer NOT NULL DEFAULT nextval('t_id_seq'::regclass)", m.Definition())

	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("down"))
	col, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "age", col.Name)

	_, cmd := m.Update(key("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, StatusNotifyMsg{Message: "Copied: age integer"}, cmd())
	assert.Equal(t, "age integer", *got)

	_, cmd = m.Update(key("c"))
	cmd()
	assert.Equal(t, "age", *got)

	_, cmd = m.Update(key("Y"))
	assert.Equal(t, StatusNotifyMsg{Message: "Copied all columns of t"}, cmd())
	assert.Equal(t, "id\tinteger\nage\tinteger", *got)
}

func TestColumns_CopyFailure(t *testing.T) {
	stubClipboard(t, errors.New("no clipboard"))

	m := New()
	m.SetFocused(true)
	m.SetColumns("t", sample)

	_, cmd := m.Update(key("c"))
	assert.Equal(t, StatusNotifyMsg{Message: "Copy failed: no clipboard"}, cmd())
}

func TestColumns_NothingToCopy(t *testing.T) {
	stubClipboard(t, nil)

	m := New()
	m.SetFocused(true)
	_, cmd := m.Update(key("y"))
	assert.Equal(t, StatusNotifyMsg{Message: "Nothing to copy"}, cmd())
}

func TestColumns_ReloadKeepsCursor(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetColumns("t", sample)
	m, _ = m.Update(key("down"))

	m.SetColumns("t", sample)
	col, _ := m.Selected()
	assert.Equal(t, "age", col.Name)

	m.SetColumns("other", sample)
	col, _ = m.Selected()
	assert.Equal(t, "id", col.Name)
}

func TestFit(t *testing.T) {
	assert.Equal(t, "ab  ", fit("ab", 4))
	assert.Equal(t, "abc…", fit("abcdef", 4))
}
