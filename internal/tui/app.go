// Package tui is the terminal front end: pick or enter a connection, browse
// tables and their columns, and create new tables.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/commands"
	"github.com/joacominatel/vizql/internal/config"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/joacominatel/vizql/internal/tui/columns"
	"github.com/joacominatel/vizql/internal/tui/creator"
	"github.com/joacominatel/vizql/internal/tui/explorer"
	"github.com/joacominatel/vizql/internal/tui/statusbar"
	"github.com/joacominatel/vizql/internal/tui/theme"
)

const (
	connectTimeout = 15 * time.Second
	commandTimeout = 10 * time.Second
)

// Pane identifies a focusable area.
type Pane int

const (
	PaneTables Pane = iota
	PaneColumns
)

func (p Pane) String() string {
	switch p {
	case PaneTables:
		return "tables"
	case PaneColumns:
		return "columns"
	default:
		return "unknown"
	}
}

// AppMode tracks the current UI state.
type AppMode int

const (
	ModeSelectConnection AppMode = iota // saved profiles list
	ModeConnect                         // connect form
	ModeMain                            // table browser
	ModeCreateTable                     // create-table form over the browser
)

// Messages produced by async commands.
type (
	connectedMsg struct {
		// fromForm is set when the connection was typed in and should be saved.
		fromForm *commands.ConnectArgs
		err      error
	}
	tablesLoadedMsg struct {
		tables []string
		err    error
	}
	columnsLoadedMsg struct {
		table   string
		columns []database.Column
		err     error
	}
	tableCreatedMsg struct {
		table string
		err   error
	}
	connectionSavedMsg struct {
		name string
		err  error
	}
)

// Model is the top-level bubbletea model orchestrating all components.
type Model struct {
	commands   *commands.Commands
	cfg        *config.Config
	cfgPath    string
	initial    *config.Connection
	explorer   explorer.Model
	columns    columns.Model
	creator    creator.Model
	statusbar  statusbar.Model
	form       connectForm
	activePane Pane
	mode       AppMode
	width      int
	height     int
	err        error
	showHelp   bool
	connecting bool
	connCursor int
}

// NewModel creates the top-level model. When initial is set the model
// connects to it on start instead of asking.
func NewModel(cmds *commands.Commands, cfg *config.Config, cfgPath string, initial *config.Connection) Model {
	mode := ModeConnect
	if initial == nil && len(cfg.Connections) > 0 {
		mode = ModeSelectConnection
	}

	m := Model{
		commands:   cmds,
		cfg:        cfg,
		cfgPath:    cfgPath,
		initial:    initial,
		explorer:   explorer.New(),
		columns:    columns.New(),
		creator:    creator.New(cmds.ColumnTypes()),
		statusbar:  statusbar.New(),
		form:       newConnectForm(),
		activePane: PaneTables,
		mode:       mode,
	}
	m.setFocus(PaneTables)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.initial != nil {
		cmds = append(cmds, m.connectProfileCmd(*m.initial))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if msg.String() == "?" && m.mode == ModeMain {
			m.showHelp = true
			return m, nil
		}

		switch m.mode {
		case ModeSelectConnection:
			return m.updateSelectConnection(msg)
		case ModeConnect:
			return m.updateConnect(msg)
		case ModeMain:
			return m.updateMain(msg)
		case ModeCreateTable:
			var cmd tea.Cmd
			m.creator, cmd = m.creator.Update(msg)
			return m, cmd
		}

	case connectedMsg:
		return m.handleConnected(msg)

	case connectionSavedMsg:
		if msg.err != nil {
			m.statusbar.SetError("Could not save connection: " + msg.err.Error())
		} else {
			m.statusbar.SetMessage("Saved connection " + msg.name)
		}
		return m, nil

	case tablesLoadedMsg:
		if msg.err != nil {
			m.explorer.SetLoading(false)
			m.statusbar.SetError("Failed to load tables: " + commands.Message(msg.err))
			return m, nil
		}
		m.explorer.SetTables(m.commands.Service().DatabaseName(), msg.tables)
		if table := m.columns.Table(); table != "" {
			// Keep the column pane in sync with the refreshed list.
			return m, m.loadColumnsCmd(table)
		}
		return m, nil

	case columnsLoadedMsg:
		if msg.err != nil {
			m.columns.SetError(msg.table, msg.err)
			m.statusbar.SetError("Failed to load columns: " + commands.Message(msg.err))
			return m, nil
		}
		m.explorer.SetColumns(msg.table, msg.columns)
		m.columns.SetColumns(msg.table, msg.columns)
		return m, nil

	case tableCreatedMsg:
		if msg.err != nil {
			m.creator.SetError(commands.Message(msg.err))
			return m, nil
		}
		m.creator.Reset()
		m.mode = ModeMain
		m.statusbar.SetMessage(fmt.Sprintf("Created table %s", msg.table))
		m.columns.SetLoading(msg.table)
		return m, tea.Batch(m.loadTablesCmd(), m.loadColumnsCmd(msg.table))

	case explorer.SelectTableMsg:
		m.columns.SetLoading(msg.Table)
		return m, m.loadColumnsCmd(msg.Table)

	case explorer.NewTableMsg:
		return m.openCreator()

	case explorer.RefreshMsg:
		m.explorer.SetLoading(true)
		m.statusbar.SetMessage("Reloading tables...")
		return m, m.loadTablesCmd()

	case creator.CreateTableMsg:
		m.creator.SetPending(true)
		return m, m.createTableCmd(msg.Table, msg.Columns)

	case creator.CancelMsg:
		m.mode = ModeMain
		return m, nil

	case columns.StatusNotifyMsg:
		m.statusbar.SetMessage(msg.Message)
		return m, nil
	}

	if m.mode == ModeMain {
		return m.updateComponents(msg)
	}
	var cmd tea.Cmd
	switch m.mode {
	case ModeCreateTable:
		m.creator, cmd = m.creator.Update(msg)
	case ModeConnect:
		// Cursor blink and similar ticks go to the focused field.
		m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	}
	return m, cmd
}

func (m Model) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	m.connecting = false
	if msg.err != nil && !errors.Is(msg.err, app.ErrAlreadyInitialized) {
		// The pool was not created, so the user may fix the input and retry.
		m.err = msg.err
		m.statusbar.SetError("Connection failed")
		return m, nil
	}

	m.err = nil
	m.mode = ModeMain
	m.explorer.SetLoading(true)
	name := m.commands.Service().DatabaseName()
	if conn, ok := m.commands.Service().Connection(); ok {
		name = conn.DisplayString()
	}
	m.statusbar.SetConnected(true, name)
	m.statusbar.ClearMessage()
	m.setFocus(PaneTables)
	m.layout()

	if msg.err != nil {
		// The existing pool stays; the submitted fields were never used.
		m.statusbar.SetMessage("Already connected to " + name)
		return m, m.loadTablesCmd()
	}

	cmds := []tea.Cmd{m.loadTablesCmd()}
	if msg.fromForm != nil {
		cmds = append(cmds, m.saveConnectionCmd(*msg.fromForm))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) openCreator() (tea.Model, tea.Cmd) {
	m.mode = ModeCreateTable
	m.creator.SetWidth(m.width)
	return m, m.creator.Init()
}

func (m Model) updateSelectConnection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	connCount := len(m.cfg.Connections)

	switch msg.String() {
	case "up", "k":
		if m.connCursor > 0 {
			m.connCursor--
		}
	case "down", "j":
		// The last item is "New connection".
		if m.connCursor < connCount {
			m.connCursor++
		}
	case "enter":
		if m.connecting {
			return m, nil
		}
		if m.connCursor < connCount {
			conn := m.cfg.Connections[m.connCursor]
			m.connecting = true
			m.statusbar.SetMessage("Connecting to " + conn.Name + "...")
			return m, m.connectProfileCmd(conn)
		}
		m.mode = ModeConnect
		return m, nil
	case "n":
		m.mode = ModeConnect
		return m, nil
	case "q":
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) updateConnect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if len(m.cfg.Connections) > 0 {
			m.mode = ModeSelectConnection
			m.err = nil
			return m, nil
		}
		return m, tea.Quit
	}

	var (
		cmd    tea.Cmd
		submit bool
	)
	m.form, cmd, submit = m.form.update(msg)
	if submit && !m.connecting {
		m.connecting = true
		m.err = nil
		m.statusbar.SetMessage("Connecting...")
		return m, m.connectFormCmd(m.form.args())
	}
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.cyclePane()
		return m, nil
	case "shift+tab":
		m.cyclePane()
		return m, nil
	case "n":
		return m.openCreator()
	}

	return m.updateComponents(msg)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.activePane {
	case PaneTables:
		m.explorer, cmd = m.explorer.Update(msg)
	case PaneColumns:
		m.columns, cmd = m.columns.Update(msg)
	}

	return m, cmd
}

func (m *Model) cyclePane() {
	if m.activePane == PaneTables {
		m.setFocus(PaneColumns)
		return
	}
	m.setFocus(PaneTables)
}

func (m *Model) setFocus(pane Pane) {
	m.activePane = pane
	m.explorer.SetFocused(pane == PaneTables)
	m.columns.SetFocused(pane == PaneColumns)
	m.statusbar.SetActivePane(pane.String())
}

// explorerWidth is a quarter of the screen, clamped to a readable range.
func (m Model) explorerWidth() int {
	return min(max(m.width/4, 22), 35)
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	availHeight := m.height - 1 - 2
	m.explorer.SetSize(m.explorerWidth(), availHeight)
	m.columns.SetSize(m.width-m.explorerWidth()-1, availHeight)
	m.creator.SetWidth(m.width)
	m.statusbar.SetWidth(m.width)
}

// Async commands. Each one runs with its own deadline.

func (m Model) connectFormCmd(args commands.ConnectArgs) tea.Cmd {
	c := m.commands
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		err := c.ConnectDBPool(ctx, args)
		return connectedMsg{fromForm: &args, err: err}
	}
}

func (m Model) connectProfileCmd(conn config.Connection) tea.Cmd {
	c := m.commands
	return func() tea.Msg {
		if conn.Password == "" {
			withPw, err := config.WithPassword(conn)
			if err != nil {
				return connectedMsg{err: err}
			}
			conn = withPw
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return connectedMsg{err: c.ConnectProfile(ctx, conn)}
	}
}

func (m Model) saveConnectionCmd(args commands.ConnectArgs) tea.Cmd {
	cfg, path := m.cfg, m.cfgPath
	return func() tea.Msg {
		conn, err := config.NewConnection(args.DBName, args.User, args.Password, args.Host, args.Port)
		if err != nil {
			return connectionSavedMsg{err: err}
		}
		err = config.SaveConnection(cfg, conn, path)
		return connectionSavedMsg{name: conn.Name, err: err}
	}
}

func (m Model) loadTablesCmd() tea.Cmd {
	c := m.commands
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		tables, err := c.ListTables(ctx)
		return tablesLoadedMsg{tables: tables, err: err}
	}
}

func (m Model) loadColumnsCmd(table string) tea.Cmd {
	c := m.commands
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		cols, err := c.ListTableColumns(ctx, commands.TableArgs{TableName: table})
		return columnsLoadedMsg{table: table, columns: cols, err: err}
	}
}

func (m Model) createTableCmd(table string, cols []database.Column) tea.Cmd {
	c := m.commands
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := c.CreateTable(ctx, commands.CreateTableArgs{TableName: table, Columns: cols})
		return tableCreatedMsg{table: table, err: err}
	}
}

// View renders the entire application.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	switch m.mode {
	case ModeSelectConnection:
		return m.viewSelectConnection()
	case ModeConnect:
		return m.viewConnect()
	case ModeCreateTable:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.creator.View())
	default:
		return m.viewMain()
	}
}

func (m Model) header() []string {
	title := lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true).Padding(1, 0).Render("vizql")
	subtitle := theme.StyleMuted.Render("PostgreSQL tables at a glance.")
	return []string{"", title, subtitle, ""}
}

func (m Model) errorLine() string {
	if m.err == nil {
		return ""
	}
	return "\n" + theme.StyleError.Render("  Error: "+commands.Message(m.err))
}

func (m Model) viewSelectConnection() string {
	parts := m.header()
	parts = append(parts, theme.StyleTitle.Render("Saved Connections"))

	selected := lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true)
	for i, conn := range m.cfg.Connections {
		label := conn.Name + " (" + conn.DisplayString() + ")"
		if i == m.connCursor {
			parts = append(parts, selected.Render("> "+label))
		} else {
			parts = append(parts, "  "+label)
		}
	}

	parts = append(parts, "")
	if m.connCursor == len(m.cfg.Connections) {
		parts = append(parts, selected.Render("> [New Connection]"))
	} else {
		parts = append(parts, "  [New Connection]")
	}

	if e := m.errorLine(); e != "" {
		parts = append(parts, e)
	}
	if m.connecting {
		parts = append(parts, "", theme.StyleMuted.Render("  Connecting..."))
	}
	parts = append(parts, "", theme.StyleMuted.Render("  ↑/↓: Navigate  Enter: Connect  n: New  q: Quit"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewConnect() string {
	backHint := "Esc: Quit"
	if len(m.cfg.Connections) > 0 {
		backHint = "Esc: Back"
	}

	parts := m.header()
	parts = append(parts,
		lipgloss.NewStyle().Foreground(theme.ColorPrimary).Render("Connect to PostgreSQL"),
		"",
		m.form.view(),
	)
	if e := m.errorLine(); e != "" {
		parts = append(parts, e)
	}
	if m.connecting {
		parts = append(parts, "", theme.StyleMuted.Render("  Connecting..."))
	}
	parts = append(parts, "", theme.StyleMuted.Render("  Tab: Next field │ Enter: Connect │ "+backHint))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewMain() string {
	availHeight := m.height - 1 - 2
	explorerWidth := m.explorerWidth()
	rightWidth := m.width - explorerWidth - 1

	explorerBorder := theme.StyleBorder
	if m.activePane == PaneTables {
		explorerBorder = theme.StyleActiveBorder
	}
	explorerView := explorerBorder.
		Width(explorerWidth - 2).
		Height(availHeight).
		Render(m.explorer.View())

	columnsBorder := theme.StyleBorder
	if m.activePane == PaneColumns {
		columnsBorder = theme.StyleActiveBorder
	}
	columnsView := columnsBorder.
		Width(rightWidth - 2).
		Height(availHeight).
		Render(m.columns.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, explorerView, columnsView),
		m.statusbar.View(),
	)
}

func (m Model) viewHelp() string {
	section := lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true)
	key := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(16)
	row := func(k, desc string) string {
		return "  " + key.Render(k) + theme.StyleMuted.Render(desc)
	}

	help := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleTitle.Render("vizql - Keyboard Shortcuts"),
		"",
		section.Render("Global"),
		row("q / Ctrl+C", "Quit application"),
		row("Tab", "Switch between panes"),
		row("n", "Create a new table"),
		row("?", "Toggle this help"),
		"",
		section.Render("Tables"),
		row("↑/k  ↓/j", "Navigate up/down"),
		row("Enter/→/l", "Expand table and show columns"),
		row("←/h", "Collapse"),
		row("r", "Reload table list"),
		"",
		section.Render("Columns"),
		row("↑/k  ↓/j", "Move cursor"),
		row("PgUp/PgDn", "Page up/down"),
		row("y", "Copy column definition"),
		row("c", "Copy column name"),
		row("Y", "Copy all columns"),
		"",
		section.Render("New Table"),
		row("Tab/↑↓", "Move between fields"),
		row("Ctrl+A / Ctrl+D", "Add / remove column"),
		row("Ctrl+T / Ctrl+R", "Cycle column type"),
		row("Enter", "Create table"),
		row("Esc", "Cancel"),
		"",
		theme.StyleMuted.Render("Press any key to close"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, help)
}
