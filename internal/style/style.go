// Package style provides consistent terminal styling using Lipgloss.
package style

import "github.com/charmbracelet/lipgloss"

var (
	// Success style for positive outcomes
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	// Warning style for cautionary messages
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")).
		Bold(true)

	// Error style for failures
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	// Dim style for secondary information
	Dim = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().
		Bold(true)

	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
)

// markerColors maps catalog color names to ANSI colors.
var markerColors = map[string]lipgloss.Color{
	"orange": lipgloss.Color("208"),
	"red":    lipgloss.Color("9"),
	"blue":   lipgloss.Color("12"),
	"gray":   lipgloss.Color("8"),
}

// Marker returns the style for a marker color name. Unknown names render
// gray.
func Marker(color string) lipgloss.Style {
	c, ok := markerColors[color]
	if !ok {
		c = markerColors["gray"]
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}
