package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/vizql/internal/commands"
	"github.com/joacominatel/vizql/internal/config"
	"github.com/joacominatel/vizql/internal/tui/theme"
)

// Connect form field order.
const (
	fieldHost = iota
	fieldPort
	fieldDatabase
	fieldUser
	fieldPassword
	fieldCount
)

var fieldLabels = [fieldCount]string{"Host", "Port", "Database", "User", "Password"}

// connectForm collects the discrete connection fields.
type connectForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
}

func newConnectForm() connectForm {
	var f connectForm
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Width = 40
		ti.CharLimit = 256
		ti.PlaceholderStyle = theme.StyleMuted
		f.inputs[i] = ti
	}
	f.inputs[fieldHost].Placeholder = config.DefaultHost
	f.inputs[fieldHost].SetValue(config.DefaultHost)
	f.inputs[fieldPort].Placeholder = strconv.Itoa(int(config.DefaultPort))
	f.inputs[fieldPort].SetValue(strconv.Itoa(int(config.DefaultPort)))
	f.inputs[fieldPort].CharLimit = 5
	f.inputs[fieldDatabase].Placeholder = "postgres"
	f.inputs[fieldUser].Placeholder = "postgres"
	f.inputs[fieldPassword].Placeholder = "password"
	f.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	f.inputs[fieldPassword].EchoCharacter = '•'
	f.setFocus(fieldDatabase)
	return f
}

func (f *connectForm) setFocus(i int) {
	f.focus = (i + fieldCount) % fieldCount
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// args returns the form as connect_db_pool arguments.
func (f connectForm) args() commands.ConnectArgs {
	return commands.ConnectArgs{
		Host:     strings.TrimSpace(f.inputs[fieldHost].Value()),
		Port:     strings.TrimSpace(f.inputs[fieldPort].Value()),
		DBName:   strings.TrimSpace(f.inputs[fieldDatabase].Value()),
		User:     strings.TrimSpace(f.inputs[fieldUser].Value()),
		Password: f.inputs[fieldPassword].Value(),
	}
}

// update moves focus on navigation keys and reports whether enter was pressed
// on the last field.
func (f connectForm) update(msg tea.KeyMsg) (connectForm, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return f, nil, false
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return f, nil, false
	case "enter":
		if f.focus == fieldPassword {
			return f, nil, true
		}
		f.setFocus(f.focus + 1)
		return f, nil, false
	case "ctrl+s":
		return f, nil, true
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f connectForm) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		if i == f.focus {
			b.WriteString(theme.StyleFocusedLabel.Render(fieldLabels[i]))
		} else {
			b.WriteString(theme.StyleLabel.Render(fieldLabels[i]))
		}
		b.WriteString(in.View())
		if i < fieldCount-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
