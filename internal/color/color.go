package color

import (
	"github.com/charmbracelet/lipgloss"
)

// State colors with light and dark variants.
var (
	ColorSuccess = lipgloss.AdaptiveColor{
		Light: "#059669",
		Dark:  "#10B981",
	}
	ColorError = lipgloss.AdaptiveColor{
		Light: "#DC2626",
		Dark:  "#EF4444",
	}
	ColorWarning = lipgloss.AdaptiveColor{
		Light: "#D97706",
		Dark:  "#F59E0B",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#6B7280",
		Dark:  "#9CA3AF",
	}
)

// Styles for run verdicts.
var (
	PassStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)
	FailStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	SkipStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	DimStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Initialize selects the light or dark variants.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}
