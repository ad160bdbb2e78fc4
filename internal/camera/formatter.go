package camera

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the configuration record
func (c Config) Summary() string {
	return fmt.Sprintf("%s %s: %s, %d µs, gain %d", c.DeviceType, c.DeviceName, c.VideoFormat, c.ExposureUS, c.Gain)
}

// FormatDeviceInfo returns a formatted string with device identification information
func (c Config) FormatDeviceInfo() string {
	var b strings.Builder

	b.WriteString("=== Device Information ===\n")
	b.WriteString(fmt.Sprintf("Adaptor:     %s\n", c.Name))
	b.WriteString(fmt.Sprintf("Device Name: %s\n", c.DeviceName))
	b.WriteString(fmt.Sprintf("Device Type: %s\n", c.DeviceType))
	b.WriteString(fmt.Sprintf("State:       %s\n", c.State))

	return b.String()
}

// FormatImage returns the image description
func (c Config) FormatImage() string {
	var b strings.Builder

	b.WriteString("=== Image ===\n")
	b.WriteString(fmt.Sprintf("Video Format: %s\n", c.VideoFormat))
	b.WriteString(fmt.Sprintf("Size:         %d x %d px (width x height)\n", c.Image.Width, c.Image.Height))
	b.WriteString(fmt.Sprintf("Bit Depth:    %d\n", c.Image.BitDepth))
	b.WriteString(fmt.Sprintf("Color Format: %s\n", c.Image.ColorFormat))

	return b.String()
}

// FormatAcquisition returns exposure, gain, trigger and timing settings
func (c Config) FormatAcquisition() string {
	var b strings.Builder

	b.WriteString("=== Acquisition ===\n")
	b.WriteString(fmt.Sprintf("Exposure:   %d µs (range %d-%d)\n", c.ExposureUS, c.Limits.MinExposureUS, c.Limits.MaxExposureUS))
	b.WriteString(fmt.Sprintf("Gain:       %d (range %d-%d)\n", c.Gain, c.Limits.MinGain, c.Limits.MaxGain))
	if c.TriggerEnabled {
		b.WriteString("Trigger:    ENABLED (frames wait for a trigger)\n")
	} else {
		b.WriteString("Trigger:    DISABLED (free running)\n")
	}
	b.WriteString(fmt.Sprintf("Timeout:    %s\n", FormatTimeout(c.TimeoutMS)))
	b.WriteString(fmt.Sprintf("Num Images: %d\n", c.NumImages))

	return b.String()
}

// FormatTimeout renders a timeout, spelling out NoTimeout
func FormatTimeout(ms int) string {
	if ms == NoTimeout {
		return "none (block until frame)"
	}
	return fmt.Sprintf("%d ms", ms)
}

// FormatCompact returns a compact multi-line format suitable for terminal display
func (c Config) FormatCompact() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Device:   %s (%s)\n", c.DeviceName, c.State))
	b.WriteString(fmt.Sprintf("Format:   %s [%dx%d, %d-bit]\n", c.VideoFormat, c.Image.Width, c.Image.Height, c.Image.BitDepth))
	b.WriteString(fmt.Sprintf("Exposure: %d µs  Gain: %d\n", c.ExposureUS, c.Gain))
	b.WriteString(fmt.Sprintf("Trigger:  %v  Timeout: %s  Frames: %d\n", c.TriggerEnabled, FormatTimeout(c.TimeoutMS), c.NumImages))

	return b.String()
}

// FormatDetailed returns a comprehensive formatted string with all configuration details
func (c Config) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║              DMK 33UJ003 CAMERA CONFIGURATION                  ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n")
	b.WriteString("\n")

	b.WriteString(c.FormatDeviceInfo())
	b.WriteString("\n")
	b.WriteString(c.FormatImage())
	b.WriteString("\n")
	b.WriteString(c.FormatAcquisition())

	return b.String()
}

// FormatJSON returns the record as indented JSON
func (c Config) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return string(data), nil
}

// FormatVideoFormatTable lists the supported formats with their device index
func FormatVideoFormatTable(deviceFormats []string) string {
	var b strings.Builder

	b.WriteString("=== Supported Video Formats ===\n")
	b.WriteString("Index | Format\n")
	b.WriteString("------+------------------\n")
	for _, name := range SupportedVideoFormats() {
		b.WriteString(fmt.Sprintf("  %2d  | %s\n", videoFormats[name], name))
	}

	var unusable []string
	for _, f := range deviceFormats {
		if _, ok := videoFormats[f]; !ok {
			unusable = append(unusable, f)
		}
	}
	if len(unusable) > 0 {
		b.WriteString("\nAdvertised by the device but not usable:\n")
		for _, f := range unusable {
			b.WriteString(fmt.Sprintf("  %s\n", f))
		}
	}

	return b.String()
}

// FormatChanges returns a formatted string showing what will be changed
func (s Settings) FormatChanges() string {
	var b strings.Builder
	b.WriteString("=== Settings Changes ===\n")

	if s.IsEmpty() {
		b.WriteString("(no changes specified)\n")
		return b.String()
	}
	if s.NumImages != nil {
		b.WriteString(fmt.Sprintf("  Num Images:  %d\n", *s.NumImages))
	}
	if s.ExposureUS != nil {
		b.WriteString(fmt.Sprintf("  Exposure:    %d µs\n", roundHalfEven(*s.ExposureUS)))
	}
	if s.Gain != nil {
		b.WriteString(fmt.Sprintf("  Gain:        %d\n", roundHalfEven(*s.Gain)))
	}
	if s.VideoFormat != nil {
		b.WriteString(fmt.Sprintf("  Format:      %s\n", *s.VideoFormat))
	}
	if s.TriggerEnable != nil {
		b.WriteString(fmt.Sprintf("  Trigger:     %v\n", *s.TriggerEnable))
	}
	if s.TimeoutMS != nil {
		b.WriteString(fmt.Sprintf("  Timeout:     %s\n", FormatTimeout(*s.TimeoutMS)))
	}
	return b.String()
}

// FormatDiff returns a formatted diff between two configuration records
func FormatDiff(old, new Config) string {
	var b strings.Builder
	b.WriteString("=== Configuration Differences ===\n")

	hasChanges := false
	line := func(label string, from, to any) {
		b.WriteString(fmt.Sprintf("  %-12s %v → %v\n", label+":", from, to))
		hasChanges = true
	}

	if old.NumImages != new.NumImages {
		line("Num Images", old.NumImages, new.NumImages)
	}
	if old.ExposureUS != new.ExposureUS {
		line("Exposure", fmt.Sprintf("%d µs", old.ExposureUS), fmt.Sprintf("%d µs", new.ExposureUS))
	}
	if old.Gain != new.Gain {
		line("Gain", old.Gain, new.Gain)
	}
	if old.VideoFormat != new.VideoFormat {
		line("Format", old.VideoFormat, new.VideoFormat)
	}
	if old.TriggerEnabled != new.TriggerEnabled {
		line("Trigger", old.TriggerEnabled, new.TriggerEnabled)
	}
	if old.TimeoutMS != new.TimeoutMS {
		line("Timeout", FormatTimeout(old.TimeoutMS), FormatTimeout(new.TimeoutMS))
	}

	if !hasChanges {
		b.WriteString("\n(no differences detected)\n")
	}
	return b.String()
}
