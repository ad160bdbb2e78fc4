package camera

import (
	"fmt"
	"strings"

	"github.com/muurk/tiscam/internal/grabber"
)

// VerificationResult contains the results of a configuration verification
type VerificationResult struct {
	// Success indicates whether every readback matched the record
	Success bool

	// Actual holds the values read back from the driver
	Actual Config

	// Mismatches lists all detected mismatches between record and device
	Mismatches []string

	// Error is any error that occurred while reading back
	Error error
}

// Verify re-reads every verifiable setting from the driver and compares it
// against the configuration record. Frame count and timeout are host-side
// only and always match.
func (c *Camera) Verify() *VerificationResult {
	result := &VerificationResult{Mismatches: []string{}}
	if err := c.requireOpen("verify"); err != nil {
		result.Error = err
		return result
	}

	actual := c.Info()

	exposure, err := c.readExposure()
	if err != nil {
		result.Error = err
		return result
	}
	actual.ExposureUS = exposure

	gain, err := c.drv.VideoProperty(c.handle, grabber.VideoPropertyGain)
	if err != nil {
		result.Error = NewDriverError("failed to read gain", err)
		return result
	}
	actual.Gain = int(gain)

	if idx, ok := videoFormats[c.videoFormat]; ok {
		name, err := c.drv.VideoFormat(c.handle, idx)
		if err != nil {
			result.Error = NewDriverError("failed to read video format", err)
			return result
		}
		actual.VideoFormat = name
	}

	desc, err := c.drv.ImageDescription(c.handle)
	if err != nil {
		result.Error = NewDriverError("failed to read image description", err)
		return result
	}
	actual.Image = ImageParameters{
		Width:       int(desc.Width),
		Height:      int(desc.Height),
		BitDepth:    int(desc.BitsPerPixel),
		ColorFormat: desc.ColorFormat,
	}

	result.Actual = actual
	result.Mismatches = compareConfig(c.Info(), actual)

	autoExp, err := c.drv.AutoCameraProperty(c.handle, grabber.CameraPropertyExposure)
	if err == nil && autoExp {
		result.Mismatches = append(result.Mismatches, "auto exposure: expected false, got true")
	}
	autoGain, err := c.drv.AutoVideoProperty(c.handle, grabber.VideoPropertyGain)
	if err == nil && autoGain {
		result.Mismatches = append(result.Mismatches, "auto gain: expected false, got true")
	}

	result.Success = len(result.Mismatches) == 0
	if !result.Success {
		result.Error = fmt.Errorf("verification failed: %s", formatMismatches(result.Mismatches))
	}
	return result
}

// compareConfig returns a list of mismatches between two configuration records
func compareConfig(expected, actual Config) []string {
	var mismatches []string

	if expected.ExposureUS != actual.ExposureUS {
		mismatches = append(mismatches, fmt.Sprintf("exposure_us: expected %d, got %d", expected.ExposureUS, actual.ExposureUS))
	}
	if expected.Gain != actual.Gain {
		mismatches = append(mismatches, fmt.Sprintf("gain: expected %d, got %d", expected.Gain, actual.Gain))
	}
	if expected.VideoFormat != actual.VideoFormat {
		mismatches = append(mismatches, fmt.Sprintf("video_format: expected %s, got %s", expected.VideoFormat, actual.VideoFormat))
	}
	if expected.Image != actual.Image {
		mismatches = append(mismatches, fmt.Sprintf("image: expected %dx%d %d-bit %s, got %dx%d %d-bit %s",
			expected.Image.Width, expected.Image.Height, expected.Image.BitDepth, expected.Image.ColorFormat,
			actual.Image.Width, actual.Image.Height, actual.Image.BitDepth, actual.Image.ColorFormat))
	}

	return mismatches
}

// formatMismatches creates a human-readable summary of mismatches
func formatMismatches(mismatches []string) string {
	switch len(mismatches) {
	case 0:
		return "none"
	case 1:
		return mismatches[0]
	default:
		return fmt.Sprintf("%d mismatches: %s", len(mismatches), strings.Join(mismatches, "; "))
	}
}
