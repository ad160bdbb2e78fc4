// Package ui provides terminal UI components for the tiscam CLI.
//
// This package uses Bubble Tea and Lipgloss to render polished terminal output
// for camera commands. The components follow a "run once and exit" pattern:
// they render output compellingly but don't require user interaction, apart
// from the yes/no prompts in confirm.go.
//
// # Architecture
//
//   - Header: Command banner showing operation name and settings
//   - Progress: Step list plus a frame bar that is redrawn while recording
//   - Result: Success/failure boxes with details and troubleshooting tips
//   - FrameStatsBox: Per-frame min/max/mean for verbose mode
//
// These components are orchestrated by the Runner, which manages the
// header → progress → result flow.
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:      "Record",
//	    Command:    "tiscam record",
//	    Params:     map[string]string{"Frames": "10"},
//	    TotalSteps: 3,
//	    StepNames:  []string{"Open camera", "Apply settings", "Record frames"},
//	})
//
//	details, err := runner.Run(ctx, func(onStep ui.StepCallback, onFrame func(done, total int)) (map[string]string, error) {
//	    onStep(3, "", ui.StepRunning, "")
//	    // ... record, calling onFrame after every frame ...
//	    onStep(3, "", ui.StepComplete, "10 frames")
//	    return map[string]string{"Frames": "10"}, nil
//	})
//
// # Logging Integration
//
// Logging is silent unless TISCAM_LOG_LEVEL or --log-level is set, so the
// curated UI output is displayed cleanly by default.
package ui
