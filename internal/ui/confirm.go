package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm displays a warning box and asks a yes/no question on out,
// reading the answer from in. Only "y" or "yes" (any case) confirms.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, question string) bool {
	width := GetTerminalWidth()

	var lines []string

	titleLine := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true).
		Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", title))
	lines = append(lines, "", titleLine, "")

	for _, warning := range warnings {
		bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
		lines = append(lines, bulletStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	_, _ = fmt.Fprintln(out, box)
	_, _ = fmt.Fprintln(out)

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	_, _ = fmt.Fprint(out, promptStyle.Render(question+" [y/N]: "))

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		_, _ = fmt.Fprintln(out)
		return true
	}

	_, _ = fmt.Fprintln(out)
	cancelStyle := lipgloss.NewStyle().Foreground(MutedColor)
	_, _ = fmt.Fprintln(out, cancelStyle.Render("  Operation cancelled."))
	_, _ = fmt.Fprintln(out)
	return false
}

// ConfirmLongAcquisition asks before a recording expected to block for a
// long time, e.g. many frames at a long exposure with the trigger enabled.
func ConfirmLongAcquisition(in io.Reader, out io.Writer, frames int, exposureUS int) bool {
	return Confirm(in, out,
		"LONG ACQUISITION",
		[]string{
			fmt.Sprintf("Recording %d frames at %d µs exposure", frames, exposureUS),
			"The camera is blocked until every frame has arrived",
			"Press Ctrl+C to stop between frames",
		},
		"Continue?",
	)
}

// ConfirmProfileDelete asks before removing a saved settings profile
func ConfirmProfileDelete(in io.Reader, out io.Writer, name string, isDefault bool) bool {
	warnings := []string{fmt.Sprintf("Profile %q will be removed from the config file", name)}
	if isDefault {
		warnings = append(warnings, "It is the default profile; no profile will be applied on open")
	}
	return Confirm(in, out, "DELETE PROFILE", warnings, "Delete profile?")
}
