package ui

import "github.com/charmbracelet/lipgloss"

// Palette, ANSI 256 codes. Teal is the only accent.
const (
	ColorTeal     = "37"
	ColorTealDim  = "30"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "167"
	ColorAmber    = "214"
)

// Styles holds the lipgloss styles used by the TUI and status output.
type Styles struct {
	Title   lipgloss.Style
	Accent  lipgloss.Style
	Done    lipgloss.Style
	Pending lipgloss.Style
	Label   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Rule    lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorTeal)),
		Accent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorTeal)),
		Done:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTealDim)),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAmber)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Rule:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
	}
}

// NoColorStyles returns styles that render text unchanged.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:   plain,
		Accent:  plain,
		Done:    plain,
		Pending: plain,
		Label:   plain,
		Warning: plain,
		Error:   plain,
		Rule:    plain,
	}
}

// GetStyles returns the styles matching the color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
