// Package ui is the interactive hearsay console: an input line over a
// scrolling transcript of parses.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light Mode Colors (Default)
	LightForeground = lipgloss.Color("#1b2430")
	LightPrimary    = lipgloss.Color("#2f4a6d")
	LightAccent     = lipgloss.Color("#b5651d")
	LightMuted      = lipgloss.Color("#8a939e")
	LightBorder     = lipgloss.Color("#d0d5db")

	// Dark Mode Colors
	DarkForeground = lipgloss.Color("#e8eaed")
	DarkPrimary    = lipgloss.Color("#8fb3de")
	DarkAccent     = lipgloss.Color("#e7a55b")
	DarkMuted      = lipgloss.Color("#6b7480")
	DarkBorder     = lipgloss.Color("#3a4452")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#7cb342")
	Warning     = lipgloss.Color("#ffc107")
)

// Theme holds the current color scheme
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme picks a theme from COLORFGBG ("fg;bg") or HEARSAY_DARK_MODE,
// defaulting to light.
func DetectTheme() Theme {
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		// 0-6 and 8 are dark backgrounds
		if bg, err := strconv.Atoi(parts[1]); err == nil && (bg >= 0 && bg <= 6 || bg == 8) {
			return DarkTheme()
		}
	}
	if os.Getenv("HEARSAY_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	Header lipgloss.Style
	Footer lipgloss.Style
	Input  lipgloss.Style
	Output lipgloss.Style
	Act    lipgloss.Style
	Warn   lipgloss.Style
	Error  lipgloss.Style
	Muted  lipgloss.Style
	Border lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Input: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Output: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Act: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Warn: lipgloss.NewStyle().
			Foreground(Warning),

		Error: lipgloss.NewStyle().
			Foreground(Destructive),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}
