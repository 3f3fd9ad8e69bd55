// Package theme holds the palette and shared lipgloss styles.
package theme

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary   = lipgloss.Color("63")  // purple
	ColorSecondary = lipgloss.Color("241") // gray
	ColorSuccess   = lipgloss.Color("42")
	ColorError     = lipgloss.Color("196")
	ColorBorder    = lipgloss.Color("238")
	ColorMuted     = lipgloss.Color("245")
	ColorHighlight = lipgloss.Color("229")
)

var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleActiveBorder = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Form styles shared by the connect and create-table dialogs.
	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Width(12)

	StyleFocusedLabel = lipgloss.NewStyle().
				Foreground(ColorPrimary).
				Bold(true).
				Width(12)

	StyleDialog = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)
)

// PaneTitle renders a pane heading.
func PaneTitle(s string) string {
	return StyleTitle.Padding(0, 1).Render(s)
}
