package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. Amber is used for anything that needs attention at the bench:
// running steps, warnings and frames with zero-valued pixels.
var (
	PrimaryColor = lipgloss.Color("#5FAFD7") // headers, bars
	SuccessColor = lipgloss.Color("#5FD75F")
	ErrorColor   = lipgloss.Color("#FF5F5F")
	WarningColor = lipgloss.Color("#FFAF00")
	MutedColor   = lipgloss.Color("#808080")
	TextColor    = lipgloss.Color("#EEEEEE")
)

// Terminal width bounds
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

// Markers
const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	StepMarkerSkipped  = "⊘"
	SuccessMarker      = "✓"
	FailureMarker      = "✗"
	WarningMarker      = "⚠"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(TextColor).Bold(true).PaddingLeft(2)
	mutedStyle = lipgloss.NewStyle().Foreground(MutedColor)
	textStyle  = lipgloss.NewStyle().Foreground(TextColor)

	// StepNoteStyle renders notes such as "(3/10 frames)"
	StepNoteStyle = mutedStyle.Italic(true)

	// DetailBoxTitleStyle and DetailBoxContentStyle are used by secondary
	// boxes such as the frame statistics
	DetailBoxTitleStyle   = mutedStyle.Bold(true)
	DetailBoxContentStyle = textStyle

	// BlankFrameStyle highlights frames that contain zero-valued pixels
	BlankFrameStyle = lipgloss.NewStyle().Foreground(WarningColor)

	keyStyle = mutedStyle.Width(15)
)

// statusStyle returns the foreground style for a step status
func statusStyle(s StepStatus) lipgloss.Style {
	switch s {
	case StepComplete:
		return lipgloss.NewStyle().Foreground(SuccessColor)
	case StepRunning:
		return lipgloss.NewStyle().Foreground(WarningColor)
	case StepFailed:
		return lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	default:
		return mutedStyle
	}
}

// GetTerminalWidth returns the stdout width clamped to
// [MinTerminalWidth, MaxContentWidth]. Pipes get the minimum.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth
	}
	return clampWidth(width)
}

func clampWidth(width int) int {
	return max(MinTerminalWidth, min(width, MaxContentWidth))
}

// resultBox is the double-bordered box used for command results
func resultBox(color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(clampWidth(width) - 2).
		Padding(0, 2)
}

// DetailBoxStyle returns the rounded box used for secondary content
func DetailBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width - 4).
		Padding(0, 1)
}
