package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tiscam/internal/camera"
)

// RunnerConfig holds configuration for a camera command execution
type RunnerConfig struct {
	Title      string            // Command title (e.g., "Record")
	Command    string            // Full command (e.g., "tiscam record")
	Params     map[string]string // Parameters to display in header
	TotalSteps int               // Total number of steps (for progress)
	StepNames  []string          // Names for each step
	Verbose    bool              // Whether to show the frame statistics box
	Output     io.Writer         // Output writer (default: os.Stdout)
}

// Runner orchestrates the UI for a camera command execution.
// It manages the header → progress → result flow and provides
// callbacks for reporting progress.
type Runner struct {
	config    RunnerConfig
	header    *Header
	progress  *Progress
	output    io.Writer
	stats     *FrameStatsBox
	startTime time.Time
	width     int
}

// NewRunner creates a new runner for a camera command
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	header := NewHeader(config.Title, config.Command, config.Params)
	header.SetWidth(width)

	var progress *Progress
	if config.TotalSteps > 0 {
		progress = NewProgress("", config.TotalSteps)
		progress.SetWidth(width)
		if len(config.StepNames) > 0 {
			progress.SetStepNames(config.StepNames)
		}
	}

	return &Runner{
		config:   config,
		header:   header,
		progress: progress,
		output:   config.Output,
		width:    width,
	}
}

// Operation is the function signature for the actual camera operation.
// It reports step changes through onStep and frame progress through onFrame.
type Operation func(onStep StepCallback, onFrame func(done, total int)) (map[string]string, error)

// Run executes the operation with UI updates and returns its details.
func (r *Runner) Run(ctx context.Context, operation Operation) (map[string]string, error) {
	r.startTime = time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(r.createStepCallback(), r.createFrameCallback())
	duration := time.Since(r.startTime)
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		r.printFailure(err, duration)
	} else {
		r.printSuccess(details, duration)
	}

	return details, err
}

// SetFrameStats stores statistics shown after the result in verbose mode
func (r *Runner) SetFrameStats(stats *FrameStatsBox) {
	r.stats = stats
}

// createStepCallback creates the step callback function
func (r *Runner) createStepCallback() StepCallback {
	return func(stepNumber int, name string, status StepStatus, message string) {
		if r.progress == nil || stepNumber < 1 || stepNumber > len(r.progress.Steps) {
			return
		}

		if name != "" {
			r.progress.Steps[stepNumber-1].Name = name
		}
		r.progress.UpdateStep(stepNumber, status, message)

		step := r.progress.Steps[stepNumber-1]
		switch status {
		case StepComplete, StepFailed, StepSkipped:
			// clear the frame bar left by a running step
			_, _ = fmt.Fprint(r.output, "\r\033[K")
			_, _ = fmt.Fprintln(r.output, r.progress.renderStepLine(step))
		case StepRunning:
			// Print running step (will be overwritten when complete)
			_, _ = fmt.Fprint(r.output, r.progress.renderStepLine(step)+"\r")
		}
	}
}

// createFrameCallback redraws a frame bar in place while recording
func (r *Runner) createFrameCallback() func(done, total int) {
	return func(done, total int) {
		if r.progress == nil {
			return
		}
		_, _ = fmt.Fprint(r.output, "\r"+r.progress.RenderFrameBar(done, total))
	}
}

// printSuccess prints a success result with the operation's details
func (r *Runner) printSuccess(details map[string]string, duration time.Duration) {
	_, _ = fmt.Fprintln(r.output)

	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	result := NewSuccessResult(r.config.Title+" complete", details)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())

	r.printStats()
}

// printFailure prints a failure result with troubleshooting
func (r *Runner) printFailure(err error, duration time.Duration) {
	_, _ = fmt.Fprintln(r.output)

	result := NewFailureResult(r.config.Title+" failed", err, Troubleshooting(err))
	result.SetWidth(r.width)
	result.AddDetail("Duration", duration.Round(time.Millisecond).String())
	_, _ = fmt.Fprintln(r.output, result.Render())

	r.printStats()
}

func (r *Runner) printStats() {
	if r.config.Verbose && r.stats != nil && len(r.stats.Stats) > 0 {
		_, _ = fmt.Fprintln(r.output)
		r.stats.SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, r.stats.Render())
	}
}

// Troubleshooting converts the camera troubleshooting hint into bullet points
func Troubleshooting(err error) []string {
	var tips []string
	for _, line := range strings.Split(camera.GetTroubleshootingHint(err), "\n") {
		if tip, ok := strings.CutPrefix(line, "  • "); ok {
			tips = append(tips, tip)
		}
	}
	if len(tips) == 0 {
		tips = append(tips, "Run with --log-level debug for driver call details")
	}
	return tips
}

// --- Simple helper functions for commands that don't need a full Runner ---

// PrintCommandHeader prints a styled command header
func PrintCommandHeader(title, command string, params map[string]string) {
	header := NewHeader(title, command, params)
	header.SetWidth(GetTerminalWidth())
	fmt.Println(header.Render())
	fmt.Println()
}

// PrintSuccess prints a styled success result
func PrintSuccess(title string, details map[string]string) {
	result := NewSuccessResult(title, details)
	result.SetWidth(GetTerminalWidth())
	fmt.Println()
	fmt.Println(result.Render())
}

// PrintFailure prints a styled failure result
func PrintFailure(title string, err error, troubleshooting []string) {
	result := NewFailureResult(title, err, troubleshooting)
	result.SetWidth(GetTerminalWidth())
	fmt.Println()
	fmt.Println(result.Render())
}

// PrintWarning prints a styled warning result
func PrintWarning(title string, details map[string]string) {
	result := NewWarningResult(title, details)
	result.SetWidth(GetTerminalWidth())
	fmt.Println()
	fmt.Println(result.Render())
}

// PrintPleaseWait prints a styled "please wait" message for long-running operations.
// The duration hint helps set user expectations, e.g., "about 16 seconds".
func PrintPleaseWait(message string, durationHint string) {
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)

	hintStyle := lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	line := style.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + hintStyle.Render("("+durationHint+")")
	}
	line += style.Render("...")

	fmt.Println()
	fmt.Println(line)
	fmt.Println()
}
