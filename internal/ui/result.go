package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType selects the colour and banner of a result box
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is the box printed when a command finishes
type Result struct {
	Type            ResultType
	Title           string            // e.g. "Record complete"
	Details         map[string]string // sorted by key when rendered
	Error           error             // failure only
	Troubleshooting []string          // failure only
	Width           int
}

func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Troubleshooting: troubleshooting, Width: GetTerminalWidth()}
}

func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// SetWidth sets the render width
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds or replaces a detail line
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// banner returns the colour, marker and label for the result type
func (r *Result) banner() (lipgloss.Color, string, string) {
	switch r.Type {
	case ResultFailure:
		return ErrorColor, FailureMarker, "FAILED"
	case ResultWarning:
		return WarningColor, WarningMarker, "WARNING"
	default:
		return SuccessColor, SuccessMarker, "SUCCESS"
	}
}

// Render returns the styled box
func (r *Result) Render() string {
	color, marker, label := r.banner()
	title := lipgloss.NewStyle().Foreground(color).Bold(true).
		Render(fmt.Sprintf("   %s  %s  ─  %s", marker, label, r.Title))

	lines := []string{"", title, ""}
	if r.Error != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(ErrorColor).Render("   Error: "+r.Error.Error()), "")
	}
	if details := renderDetails(r.Details); len(details) > 0 {
		lines = append(lines, details...)
		lines = append(lines, "")
	}
	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshooting(), "")
	}
	return resultBox(color, r.Width).Render(strings.Join(lines, "\n"))
}

// renderDetails renders key-value lines sorted by key
func renderDetails(details map[string]string) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, keyStyle.Render("   "+key+":")+" "+textStyle.Render(details[key]))
	}
	return lines
}

// renderTroubleshooting renders the tips in a rounded box indented inside
// the result box
func (r *Result) renderTroubleshooting() string {
	lines := []string{mutedStyle.Bold(true).Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, mutedStyle.Render("  • "+tip))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(max(clampWidth(r.Width)-12, 40)).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) String() string {
	return r.Render()
}
