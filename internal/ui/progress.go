package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus is the state of one step of a command
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// marker returns the symbol shown after a step name
func (s StepStatus) marker() string {
	switch s {
	case StepComplete:
		return StepMarkerComplete
	case StepRunning:
		return StepMarkerRunning
	case StepFailed:
		return FailureMarker
	case StepSkipped:
		return StepMarkerSkipped
	default:
		return StepMarkerPending
	}
}

// done reports whether the step counts towards overall progress
func (s StepStatus) done() bool {
	return s == StepComplete || s == StepSkipped
}

// Step is one line of the step list
type Step struct {
	Number  int // 1-based
	Name    string
	Status  StepStatus
	Message string // shown in parentheses, e.g. "3/10 frames"
}

// Progress tracks the steps of a command (open camera, record frames,
// export ...) and renders them with a bubbles progress bar. The same bar
// is reused for the per-frame counter while a recording runs.
type Progress struct {
	Label   string
	Steps   []Step
	Current int     // running step, 1-based
	Total   int
	Percent float64 // finished steps / Total
	Width   int
	bar     progress.Model
}

// nameColumn is where step markers line up
const nameColumn = 40

// NewProgress creates a progress display with totalSteps pending steps
func NewProgress(label string, totalSteps int) *Progress {
	p := &Progress{
		Label: label,
		Steps: make([]Step, totalSteps),
		Total: totalSteps,
	}
	for i := range p.Steps {
		p.Steps[i] = Step{Number: i + 1}
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth resizes the bar to fit width
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	p.bar = progress.New(
		progress.WithGradient(string(PrimaryColor), string(SuccessColor)),
		progress.WithWidth(max(20, min(width-24, 50))),
	)
	return p
}

// SetStepNames names the steps in order; extra names are ignored
func (p *Progress) SetStepNames(names []string) *Progress {
	for i := 0; i < len(names) && i < len(p.Steps); i++ {
		p.Steps[i].Name = names[i]
	}
	return p
}

// UpdateStep sets the status and message of a step. Out of range step
// numbers are ignored.
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	p.Steps[stepNumber-1].Status = status
	p.Steps[stepNumber-1].Message = message

	if status == StepRunning {
		p.Current = stepNumber
		return
	}
	finished := 0
	for _, s := range p.Steps {
		if s.Status.done() {
			finished++
		}
	}
	p.Percent = float64(finished) / float64(p.Total)
}

func (p *Progress) StartStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepRunning, message)
}

func (p *Progress) CompleteStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepComplete, message)
}

func (p *Progress) FailStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepFailed, message)
}

// Render returns the label, overall bar and step list
func (p *Progress) Render() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(textStyle.PaddingLeft(2).Render(p.Label) + "\n\n")
	}
	fmt.Fprintf(&b, "  %s  %3.0f%%  [%d/%d]\n\n", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, p.Total)

	lines := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		lines[i] = p.renderStepLine(step)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// renderStepLine renders "[n/N] name   marker  (message)"
func (p *Progress) renderStepLine(step Step) string {
	style := statusStyle(step.Status)
	pad := max(1, nameColumn-lipgloss.Width(step.Name))

	line := fmt.Sprintf("  [%d/%d] %s%s%s",
		step.Number, p.Total, style.Render(step.Name), strings.Repeat(" ", pad), style.Render(step.Status.marker()))
	if step.Message != "" {
		line += "  " + StepNoteStyle.Render("("+step.Message+")")
	}
	return line
}

// RenderFrameBar renders the frame counter of a running recording
func (p *Progress) RenderFrameBar(done, total int) string {
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total)
	}
	return fmt.Sprintf("  %s  %d/%d frames", p.bar.ViewAs(percent), done, total)
}

func (p *Progress) String() string {
	return p.Render()
}

// StepCallback reports a step change. A non-empty name renames the step.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)
