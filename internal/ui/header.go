package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the banner printed before a camera command runs: the command
// title and path, then the settings it was given.
type Header struct {
	Title   string            // e.g. "Record"; rendered upper case
	Command string            // e.g. "tiscam record"
	Params  map[string]string // e.g. {"Exposure": "100 µs"}
	Width   int
}

// NewHeader creates a header sized to the terminal
func NewHeader(title, command string, params map[string]string) *Header {
	return &Header{Title: title, Command: command, Params: params, Width: GetTerminalWidth()}
}

// SetWidth sets the render width
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header
func (h *Header) Render() string {
	width := clampWidth(h.Width)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)

	sections := []string{
		titleStyle.Render(strings.ToUpper(h.Title)),
		mutedStyle.PaddingLeft(2).Render(h.Command),
	}
	if len(h.Params) > 0 {
		rule := lipgloss.NewStyle().Foreground(PrimaryColor).Render(strings.Repeat("─", max(width-6, 10)))
		sections = append(sections, rule, renderParams(h.Params))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderParams renders "Key: Value" lines in key order
func renderParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, mutedStyle.PaddingLeft(2).Render(key+":")+" "+textStyle.Render(params[key]))
	}
	return strings.Join(lines, "\n")
}

func (h *Header) String() string {
	return h.Render()
}
