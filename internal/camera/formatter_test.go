package camera

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestConfig_FormatDetailed(t *testing.T) {
	cam, _ := openSmall(t)
	out := cam.Info().FormatDetailed()

	for _, want := range []string{
		"DMK 33UJ003 CAMERA CONFIGURATION",
		"Device Name: " + cam.DeviceName(),
		"Video Format: Y16 (640x480)",
		"640 x 480 px",
		"Bit Depth:    16",
		"Exposure:   100 µs (range 100-1600000)",
		"Trigger:    ENABLED",
		"Timeout:    1000 ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestConfig_FormatCompact(t *testing.T) {
	cam, _ := openSmall(t)
	_ = cam.ApplySettings(Settings{TimeoutMS: Int(NoTimeout)})

	out := cam.Info().FormatCompact()
	if !strings.Contains(out, "[640x480, 16-bit]") {
		t.Errorf("Missing image summary:\n%s", out)
	}
	if !strings.Contains(out, "none (block until frame)") {
		t.Errorf("Missing NoTimeout rendering:\n%s", out)
	}
}

func TestConfig_FormatJSON(t *testing.T) {
	cam, _ := openSmall(t)
	out, err := cam.Info().FormatJSON()
	if err != nil {
		t.Fatalf("FormatJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded["video_format"] != "Y16 (640x480)" {
		t.Errorf("Unexpected video_format %v", decoded["video_format"])
	}
	if decoded["exposure_us"] != float64(100) {
		t.Errorf("Unexpected exposure_us %v", decoded["exposure_us"])
	}
}

func TestFormatVideoFormatTable(t *testing.T) {
	cam, _ := openSmall(t)
	out := FormatVideoFormatTable(cam.DeviceVideoFormats())

	if !strings.Contains(out, "  17  | Y16 (3856x2764)") {
		t.Errorf("Missing supported row:\n%s", out)
	}
	if !strings.Contains(out, "not usable") || !strings.Contains(out, "  Y16 (720x480)") {
		t.Errorf("Missing unusable formats:\n%s", out)
	}

	if strings.Contains(FormatVideoFormatTable(nil), "not usable") {
		t.Error("Expected no unusable section without device formats")
	}
}

func TestSettings_FormatChanges(t *testing.T) {
	if !strings.Contains(Settings{}.FormatChanges(), "no changes") {
		t.Error("Expected empty changes message")
	}

	out := Settings{ExposureUS: Float(2500.5), TriggerEnable: Bool(false)}.FormatChanges()
	if !strings.Contains(out, "Exposure:    2500 µs") {
		t.Errorf("Expected half-even rounded exposure:\n%s", out)
	}
	if !strings.Contains(out, "Trigger:     false") {
		t.Errorf("Missing trigger:\n%s", out)
	}
}

func TestFormatDiff(t *testing.T) {
	old := Config{ExposureUS: 100, Gain: 383, VideoFormat: "Y16 (640x480)", TimeoutMS: 1000, NumImages: 1}

	if !strings.Contains(FormatDiff(old, old), "no differences") {
		t.Error("Expected no differences")
	}

	updated := old
	updated.Gain = 200
	updated.TimeoutMS = NoTimeout
	out := FormatDiff(old, updated)
	if !strings.Contains(out, "383 → 200") {
		t.Errorf("Missing gain change:\n%s", out)
	}
	if !strings.Contains(out, "1000 ms → none") {
		t.Errorf("Missing timeout change:\n%s", out)
	}
	if strings.Contains(out, "Exposure") {
		t.Errorf("Unexpected exposure line:\n%s", out)
	}
}
