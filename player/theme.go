package player

import "github.com/charmbracelet/lipgloss"

// Palette Catppuccin Mocha
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMauve).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorSurface1)

	passageStyle  = lipgloss.NewStyle().Foreground(colorPeach).Italic(true)
	textStyle     = lipgloss.NewStyle().Foreground(colorText)
	choiceStyle   = lipgloss.NewStyle().Foreground(colorText).PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true).PaddingLeft(2)
	errorStyle    = lipgloss.NewStyle().Foreground(colorRed)
	historyStyle  = lipgloss.NewStyle().Foreground(colorLavender)
	helpStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
)
