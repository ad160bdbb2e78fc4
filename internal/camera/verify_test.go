package camera

import (
	"strings"
	"testing"
)

func TestVerify_Success(t *testing.T) {
	cam, _ := openSmall(t)

	result := cam.Verify()
	if !result.Success {
		t.Fatalf("Expected verification success, got %v", result.Error)
	}
	if len(result.Mismatches) != 0 {
		t.Errorf("Expected no mismatches, got %v", result.Mismatches)
	}
	if result.Actual.Image.Width != 640 || result.Actual.Image.Height != 480 {
		t.Errorf("Unexpected actual image %+v", result.Actual.Image)
	}
}

func TestVerify_Mismatches(t *testing.T) {
	tests := []struct {
		name      string
		exposure  float32
		gain      int32
		wantCount int
		wantText  string
	}{
		{"exposure drift", 0.001, 0, 1, "exposure_us: expected 100, got 1100"},
		{"gain drift", 0, -3, 1, "gain: expected 383, got 380"},
		{"both", 0.001, -3, 2, "2 mismatches"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam, sim := openSmall(t)
			sim.SetReadbackDrift(tt.exposure, tt.gain)

			result := cam.Verify()
			if result.Success {
				t.Fatal("Expected verification failure")
			}
			if len(result.Mismatches) != tt.wantCount {
				t.Errorf("Expected %d mismatches, got %v", tt.wantCount, result.Mismatches)
			}
			if result.Error == nil || !strings.Contains(result.Error.Error(), tt.wantText) {
				t.Errorf("Expected error containing %q, got %v", tt.wantText, result.Error)
			}
		})
	}
}

func TestVerify_Closed(t *testing.T) {
	cam, _ := openSmall(t)
	_ = cam.Close()

	result := cam.Verify()
	if result.Success || !IsStateError(result.Error) {
		t.Errorf("Expected state error, got %+v", result)
	}
}

func TestFormatMismatches(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "none"},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "2 mismatches: a; b"},
	}
	for _, tt := range tests {
		if got := formatMismatches(tt.in); got != tt.want {
			t.Errorf("formatMismatches(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
