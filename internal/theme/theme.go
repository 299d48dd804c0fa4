package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorCyan    = lipgloss.AdaptiveColor{Dark: "#66D9E8", Light: "#0B7285"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
	ColorSurface = lipgloss.AdaptiveColor{Dark: "#343A40", Light: "#F7FAFC"}
)

// Apply makes adaptive colors resolve for a dark or light theme, instead of
// the terminal's detected background.
func Apply(dark bool) {
	lipgloss.SetHasDarkBackground(dark)
}

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle renders a view region's error message.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// DimmedStyle is used for placeholders and secondary text.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// FocusedBorderStyle marks the panel holding keyboard focus.
var FocusedBorderStyle = BorderStyle.
	BorderForeground(ColorBlue)

// CardStyle frames a task card.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// SelectedCardStyle frames the card under the cursor.
var SelectedCardStyle = CardStyle.
	BorderForeground(ColorBlue)

// ModalStyle frames a modal dialog.
var ModalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBlue).
	Padding(1, 2)

// StatusColor returns the indicator color of a board column.
func StatusColor(status model.Status) lipgloss.AdaptiveColor {
	switch status {
	case model.StatusBacklog:
		return ColorBlue
	case model.StatusInProgress:
		return ColorYellow
	case model.StatusInReview:
		return ColorCyan
	case model.StatusCompleted:
		return ColorGreen
	default:
		return ColorGray
	}
}

// StatusStyle returns a color-coded style for the given board status.
func StatusStyle(status model.Status) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(StatusColor(status))
}

// tagColors holds text/background pairs for the palette tags.
var tagColors = map[string]struct{ text, bg string }{
	"Concept":   {"#ce7b75", "#f5cbcb"},
	"Technical": {"#88a3ef", "#dee9fc"},
	"Front-End": {"#96cd9d", "#e2fbe7"},
	"Design":    {"#d9ba70", "#fcf9c8"},
	"Back-End":  {"#a693d5", "#e8e3fa"},
	"DevOps":    {"#71b1b1", "#d7f3f3"},
	"Database":  {"#d18dba", "#f8e2f3"},
}

// PaletteTags lists the tag names that have their own colors, in form
// order.
var PaletteTags = []string{"Concept", "Technical", "Front-End", "Design", "Back-End", "DevOps", "Database"}

// TagStyle returns the badge style of a tag. Unknown tags are gray.
func TagStyle(name string) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1)
	c, ok := tagColors[name]
	if !ok {
		return base.Foreground(ColorWhite).Background(ColorSubtle)
	}
	return base.
		Foreground(lipgloss.AdaptiveColor{Dark: c.bg, Light: c.text}).
		Background(lipgloss.AdaptiveColor{Dark: "#2B2F33", Light: c.bg})
}

// LogoStyle colors a project logo icon.
func LogoStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
