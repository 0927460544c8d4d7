// Package ui provides the visual styling for the esecure terminal popup.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. The dark palette is the popup's native look; light is for
// terminals with a pale background.
var (
	// Dark Mode Colors (Default)
	DarkBackground = lipgloss.Color("#111827") // gray-900
	DarkForeground = lipgloss.Color("#f3f4f6") // gray-100
	DarkPrimary    = lipgloss.Color("#60a5fa") // blue-400
	DarkAccent     = lipgloss.Color("#2563eb") // blue-600
	DarkSurface    = lipgloss.Color("#1f2937") // gray-800
	DarkMuted      = lipgloss.Color("#9ca3af") // gray-400
	DarkBorder     = lipgloss.Color("#374151") // gray-700

	// Light Mode Colors
	LightBackground = lipgloss.Color("#f9fafb")
	LightForeground = lipgloss.Color("#111827")
	LightPrimary    = lipgloss.Color("#1d4ed8")
	LightAccent     = lipgloss.Color("#2563eb")
	LightSurface    = lipgloss.Color("#ffffff")
	LightMuted      = lipgloss.Color("#6b7280")
	LightBorder     = lipgloss.Color("#d1d5db")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#f87171") // red-400
	Success     = lipgloss.Color("#4ade80") // green-400
	Warning     = lipgloss.Color("#fbbf24")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Surface    lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Surface:    DarkSurface,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Surface:    LightSurface,
		Muted:      LightMuted,
		Border:     LightBorder,
		IsDark:     false,
	}
}

// ThemeFor resolves a configured theme name ("dark", "light" or "auto").
func ThemeFor(name string) Theme {
	switch strings.ToLower(name) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// DetectTheme picks a theme from the terminal environment, defaulting to dark.
func DetectTheme() Theme {
	switch os.Getenv("ESECURE_DARK_MODE") {
	case "1":
		return DarkTheme()
	case "0":
		return LightTheme()
	}

	// COLORFGBG is "foreground;background"; background 7 or 9-15 is light.
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if bgIdx, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			if bgIdx == 7 || (bgIdx >= 9 && bgIdx <= 15) {
				return LightTheme()
			}
		}
	}
	return DarkTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Frame  lipgloss.Style
	Title  lipgloss.Style
	Hint   lipgloss.Style
	Footer lipgloss.Style
	Brand  lipgloss.Style

	// Inputs
	Field        lipgloss.Style
	FieldFocused lipgloss.Style
	Button       lipgloss.Style
	ButtonBusy   lipgloss.Style

	// Panels
	ResultPanel lipgloss.Style
	ScoreLabel  lipgloss.Style
	ScoreValue  lipgloss.Style
	Feedback    lipgloss.Style
	ErrorPanel  lipgloss.Style
	ErrorTitle  lipgloss.Style
	Notice      lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Divider lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Hint: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Border),

		Brand: lipgloss.NewStyle().
			Foreground(theme.Primary),

		Field: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		FieldFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 1),

		Button: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		ButtonBusy: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2),

		ResultPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		ScoreLabel: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		ScoreValue: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Feedback: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		ErrorPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Destructive).
			Foreground(Destructive).
			Padding(0, 1),

		ErrorTitle: lipgloss.NewStyle().
			Bold(true),

		Notice: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Primary),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		return ""
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
