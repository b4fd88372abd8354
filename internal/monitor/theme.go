package monitor

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha subset.
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorOverlay1).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	pendingStyle = lipgloss.NewStyle().Foreground(colorPeach)
	toolbarStyle = lipgloss.NewStyle().Foreground(colorOverlay1)
	keyStyle     = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)
)
