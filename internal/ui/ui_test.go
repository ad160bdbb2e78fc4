package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/tiscam/internal/camera"
)

func TestHeader_ParamsSorted(t *testing.T) {
	out := NewHeader("Record", "tiscam record", map[string]string{
		"Gain":     "383",
		"Exposure": "100 µs",
		"Frames":   "3",
	}).SetWidth(80).Render()

	if !strings.Contains(out, "RECORD") || !strings.Contains(out, "tiscam record") {
		t.Errorf("Missing title or command:\n%s", out)
	}
	e, f, g := strings.Index(out, "Exposure:"), strings.Index(out, "Frames:"), strings.Index(out, "Gain:")
	if e < 0 || f < 0 || g < 0 || !(e < f && f < g) {
		t.Errorf("Expected params in key order:\n%s", out)
	}
}

func TestProgress_UpdateStep(t *testing.T) {
	p := NewProgress("", 4)
	p.SetStepNames([]string{"a", "b", "c", "d"})

	p.StartStep(1, "")
	if p.Current != 1 {
		t.Errorf("Expected current step 1, got %d", p.Current)
	}
	p.CompleteStep(1, "")
	p.UpdateStep(2, StepSkipped, "")
	if p.Percent != 0.5 {
		t.Errorf("Expected 50%%, got %v", p.Percent)
	}
	p.FailStep(3, "timeout")
	if p.Percent != 0.5 {
		t.Errorf("Failed steps must not advance progress, got %v", p.Percent)
	}

	// out of range is ignored
	p.UpdateStep(9, StepComplete, "")

	out := p.Render()
	if !strings.Contains(out, "(timeout)") || !strings.Contains(out, StepMarkerSkipped) {
		t.Errorf("Unexpected render:\n%s", out)
	}
	if !strings.Contains(p.RenderFrameBar(2, 8), "2/8 frames") {
		t.Error("Expected frame counter in frame bar")
	}
}

func TestRunner_Success(t *testing.T) {
	var buf bytes.Buffer
	runner := NewRunner(RunnerConfig{
		Title:      "Record",
		Command:    "tiscam record",
		TotalSteps: 2,
		StepNames:  []string{"Open camera", "Record frames"},
		Verbose:    true,
		Output:     &buf,
	})

	frames := camera.NewFrames(2, 1, 2)
	copy(frames.Pix, []uint16{1, 2, 0, 3})
	runner.SetFrameStats(NewFrameStatsBox(frames, 2))

	details, err := runner.Run(context.Background(), func(onStep StepCallback, onFrame func(done, total int)) (map[string]string, error) {
		onStep(1, "", StepRunning, "")
		onStep(1, "", StepComplete, "")
		onStep(2, "", StepRunning, "")
		onFrame(1, 2)
		onFrame(2, 2)
		onStep(2, "", StepComplete, "2 frames")
		return map[string]string{"Frames": "2"}, nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if details["Duration"] == "" {
		t.Error("Expected duration added to details")
	}

	out := buf.String()
	for _, want := range []string{"RECORD", "Open camera", "2/2 frames", "SUCCESS", "Record complete", "Frame Statistics", "blank"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestRunner_Failure(t *testing.T) {
	var buf bytes.Buffer
	runner := NewRunner(RunnerConfig{Title: "Record", TotalSteps: 1, Output: &buf})

	_, err := runner.Run(context.Background(), func(onStep StepCallback, onFrame func(done, total int)) (map[string]string, error) {
		onStep(1, "Record frames", StepRunning, "")
		err := camera.NewTimeoutError(0, 1000, nil)
		onStep(1, "", StepFailed, "frame 0")
		return nil, err
	})
	if !camera.IsTimeoutError(err) {
		t.Fatalf("Expected timeout error, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "Troubleshooting") {
		t.Errorf("Expected failure box:\n%s", out)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(RunnerConfig{Title: "Record", Output: &buf}).Run(ctx,
		func(StepCallback, func(int, int)) (map[string]string, error) { return nil, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTroubleshooting(t *testing.T) {
	tips := Troubleshooting(camera.NewDeviceError("found 0"))
	if len(tips) != 3 || !strings.Contains(tips[0], "exactly one") {
		t.Errorf("Unexpected tips %v", tips)
	}

	tips = Troubleshooting(errors.New("plain"))
	if len(tips) != 1 || !strings.Contains(tips[0], "--log-level") {
		t.Errorf("Unexpected fallback tips %v", tips)
	}
}

func TestFrameStatsBox(t *testing.T) {
	frames := camera.NewFrames(3, 1, 2)
	copy(frames.Pix, []uint16{5, 6, 0, 9, 7, 8})

	box := NewFrameStatsBox(frames, 10)
	if len(box.Stats) != 3 {
		t.Fatalf("Expected stats capped at frame count, got %d", len(box.Stats))
	}
	if box.Blank() != 1 {
		t.Errorf("Expected 1 blank frame, got %d", box.Blank())
	}

	out := box.SetMaxLines(2).Render()
	if !strings.Contains(out, "1 more frames") || !strings.Contains(out, "1 of 3 frames") {
		t.Errorf("Unexpected render:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "TEST", []string{"warning"}, "Proceed?")
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Proceed? [y/N]") {
			t.Errorf("Expected prompt in output, got:\n%s", out.String())
		}
	}
}

func TestConfirmProfileDelete(t *testing.T) {
	var out bytes.Buffer
	if !ConfirmProfileDelete(strings.NewReader("y\n"), &out, "dark", true) {
		t.Error("Expected confirmation")
	}
	if !strings.Contains(out.String(), "default profile") {
		t.Errorf("Expected default profile warning:\n%s", out.String())
	}
}
