package explorer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/joacominatel/vizql/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeDatabase NodeKind = iota
	NodeTable
	NodeColumn
)

// TreeNode represents a single node in the table tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Children []*TreeNode
	Expanded bool
	Loaded   bool // whether children have been fetched

	Table    string // parent table name (for columns)
	DataType string // column data type
}

// flatItem is a visible item in the flattened tree view.
type flatItem struct {
	node  *TreeNode
	depth int
}

// SelectTableMsg is emitted when a table is opened and its columns are needed.
type SelectTableMsg struct {
	Table string
}

// NewTableMsg is emitted when the user asks to create a table.
type NewTableMsg struct{}

// RefreshMsg is emitted when the user asks to reload the table list.
type RefreshMsg struct{}

// Model is the explorer (table tree) component.
type Model struct {
	tree    *TreeNode
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

// New creates a new explorer model.
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

// Focused returns whether the explorer has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetTables populates the explorer, keeping already loaded columns and
// expansion state of tables that are still present.
func (m *Model) SetTables(dbName string, tables []string) {
	previous := map[string]*TreeNode{}
	if m.tree != nil {
		for _, t := range m.tree.Children {
			previous[t.Name] = t
		}
	}

	root := &TreeNode{
		Kind:     NodeDatabase,
		Name:     dbName,
		Expanded: true,
		Loaded:   true,
	}
	for _, t := range tables {
		if old, ok := previous[t]; ok {
			root.Children = append(root.Children, old)
			continue
		}
		root.Children = append(root.Children, &TreeNode{Kind: NodeTable, Name: t})
	}

	m.tree = root
	m.flatten()
	m.loading = false
}

// Tables returns the table names currently shown.
func (m Model) Tables() []string {
	if m.tree == nil {
		return nil
	}
	names := make([]string, 0, len(m.tree.Children))
	for _, t := range m.tree.Children {
		names = append(names, t.Name)
	}
	return names
}

// SetColumns adds column nodes to a table node.
func (m *Model) SetColumns(table string, columns []database.Column) {
	node := m.findTable(table)
	if node == nil {
		return
	}
	node.Children = nil
	for _, col := range columns {
		node.Children = append(node.Children, &TreeNode{
			Kind:     NodeColumn,
			Name:     col.Name,
			Table:    table,
			DataType: col.Type,
		})
	}
	node.Loaded = true
	m.flatten()
}

func (m *Model) findTable(table string) *TreeNode {
	if m.tree == nil {
		return nil
	}
	for _, t := range m.tree.Children {
		if t.Name == table {
			return t
		}
	}
	return nil
}

// SelectedTable returns the table under the cursor, if any.
func (m Model) SelectedTable() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", false
	}
	node := m.items[m.cursor].node
	switch node.Kind {
	case NodeTable:
		return node.Name, true
	case NodeColumn:
		return node.Table, true
	}
	return "", false
}

// flatten rebuilds the flat item list from the tree.
func (m *Model) flatten() {
	m.items = nil
	if m.tree != nil {
		m.flattenNode(m.tree, 0)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m *Model) flattenNode(node *TreeNode, depth int) {
	m.items = append(m.items, flatItem{node: node, depth: depth})
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child, depth+1)
		}
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the explorer.
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
			return m, m.selectionChanged()
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
			return m, m.selectionChanged()
		case "enter", "right", "l":
			return m, m.toggleExpand()
		case "left", "h":
			m.collapse()
		case "n":
			return m, func() tea.Msg { return NewTableMsg{} }
		case "r":
			return m, func() tea.Msg { return RefreshMsg{} }
		}
	}

	return m, nil
}

// selectionChanged asks for the columns of a newly selected, already loaded table
// so the column pane follows the cursor.
func (m *Model) selectionChanged() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	node := m.items[m.cursor].node
	if node.Kind != NodeTable || !node.Loaded {
		return nil
	}
	table := node.Name
	return func() tea.Msg { return SelectTableMsg{Table: table} }
}

func (m *Model) toggleExpand() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	node := m.items[m.cursor].node

	// Columns have no children
	if node.Kind == NodeColumn {
		return nil
	}

	if node.Expanded {
		node.Expanded = false
		m.flatten()
		return nil
	}

	node.Expanded = true
	m.flatten()

	if node.Kind == NodeTable {
		table := node.Name
		return func() tea.Msg { return SelectTableMsg{Table: table} }
	}
	return nil
}

func (m *Model) collapse() {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	node := m.items[m.cursor].node
	if node.Kind == NodeColumn {
		// Jump to the parent table and fold it.
		for i := m.cursor; i >= 0; i-- {
			if p := m.items[i].node; p.Kind == NodeTable && p.Name == node.Table {
				m.cursor = i
				node = p
				break
			}
		}
	}
	if node.Expanded {
		node.Expanded = false
		m.flatten()
	}
}

// View renders the explorer.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	title := titleStyle.Render("Tables") + theme.StyleMuted.Render("  n: new  r: reload")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}

	if m.tree == nil {
		return title + "\n" + theme.StyleMuted.Render("  No connection")
	}

	if len(m.tree.Children) == 0 {
		return title + "\n" + theme.StyleMuted.Render("  No tables yet")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	visibleHeight := max(m.height-2, 1)

	// Scroll offset to keep cursor visible
	scrollOffset := 0
	if m.cursor >= visibleHeight {
		scrollOffset = m.cursor - visibleHeight + 1
	}

	for i := scrollOffset; i < len(m.items) && i < scrollOffset+visibleHeight; i++ {
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
		if i < scrollOffset+visibleHeight-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	icon := "  "
	if node.Kind != NodeColumn {
		if node.Expanded {
			icon = "▼ "
		} else {
			icon = "▶ "
		}
	}

	name := node.Name
	if node.Kind == NodeColumn && node.DataType != "" {
		name = fmt.Sprintf("%s %s", node.Name, node.DataType)
	}

	// Styling is applied after truncation so escape sequences are never cut.
	line := truncate(indent+icon+name, m.width-2)

	if selected {
		return lipgloss.NewStyle().
			Foreground(theme.ColorHighlight).
			Bold(true).
			Render(line)
	}
	if node.Kind == NodeColumn && node.DataType != "" && strings.HasSuffix(line, " "+node.DataType) {
		return strings.TrimSuffix(line, node.DataType) + theme.StyleMuted.Render(node.DataType)
	}
	return line
}

// truncate shortens s to at most width display cells, rune-safely.
func truncate(s string, width int) string {
	if width <= 2 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+2 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ".."
}
