package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tiscam/internal/camera"
)

// FrameStatsBox shows per-frame pixel statistics after a recording.
// Frames with a zero-valued pixel are highlighted.
type FrameStatsBox struct {
	Title    string
	Stats    []camera.FrameStats
	Width    int
	MaxLines int // Maximum frames listed (0 = unlimited)
}

// NewFrameStatsBox computes statistics for the first n frames of f
func NewFrameStatsBox(f *camera.Frames, n int) *FrameStatsBox {
	n = min(n, f.Count)
	stats := make([]camera.FrameStats, n)
	for i := range stats {
		stats[i] = f.Stats(i)
	}
	return &FrameStatsBox{
		Title:    "Frame Statistics",
		Stats:    stats,
		Width:    GetTerminalWidth(),
		MaxLines: 20,
	}
}

// SetWidth sets the terminal width for responsive rendering
func (b *FrameStatsBox) SetWidth(width int) *FrameStatsBox {
	b.Width = width
	return b
}

// SetMaxLines limits the number of frames listed
func (b *FrameStatsBox) SetMaxLines(max int) *FrameStatsBox {
	b.MaxLines = max
	return b
}

// Blank returns the number of frames with a zero-valued pixel
func (b *FrameStatsBox) Blank() int {
	n := 0
	for _, st := range b.Stats {
		if st.Blank() {
			n++
		}
	}
	return n
}

// Render returns the styled statistics box as a string
func (b *FrameStatsBox) Render() string {
	width := b.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{DetailBoxContentStyle.Render(fmt.Sprintf("%6s  %6s  %6s  %10s", "Frame", "Min", "Max", "Mean"))}
	shown := b.Stats
	if b.MaxLines > 0 && len(shown) > b.MaxLines {
		shown = shown[:b.MaxLines]
	}
	for i, st := range shown {
		line := fmt.Sprintf("%6d  %6d  %6d  %10.1f", i, st.Min, st.Max, st.Mean)
		if st.Blank() {
			lines = append(lines, BlankFrameStyle.Render(line+"  blank"))
			continue
		}
		lines = append(lines, DetailBoxContentStyle.Render(line))
	}
	if len(shown) < len(b.Stats) {
		lines = append(lines, StepNoteStyle.Render(fmt.Sprintf("... (%d more frames)", len(b.Stats)-len(shown))))
	}
	if blank := b.Blank(); blank > 0 {
		lines = append(lines, "", BlankFrameStyle.Render(fmt.Sprintf("%d of %d frames contain zero-valued pixels", blank, len(b.Stats))))
	}

	inner := lipgloss.JoinVertical(lipgloss.Left, DetailBoxTitleStyle.Render(b.Title), "", strings.Join(lines, "\n"))

	boxWidth := width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}
	return DetailBoxStyle(boxWidth + 4).
		MarginLeft(2).
		Render(inner)
}

// String implements fmt.Stringer
func (b *FrameStatsBox) String() string {
	return b.Render()
}
