package camera

import (
	"fmt"
	"math"
	"strings"
)

// roundHalfEven rounds exposure and gain inputs to integers; 2.5 rounds to 2.
func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}

// ValidateNumImages validates the number of frames per recording.
func ValidateNumImages(n int) error {
	if n < 1 {
		return NewValidationError("num_images", fmt.Sprintf("num_images must be >= 1, got %d", n))
	}
	return nil
}

// ValidateExposure validates an exposure already rounded to whole microseconds.
func ValidateExposure(us int, limits Limits) error {
	if us < limits.MinExposureUS || us > limits.MaxExposureUS {
		return NewValidationError("exposure_us", fmt.Sprintf("exposure_us (%d) out of range %d-%d",
			us, limits.MinExposureUS, limits.MaxExposureUS))
	}
	return nil
}

// ValidateGain validates a rounded gain value.
func ValidateGain(gain int, limits Limits) error {
	if gain < limits.MinGain || gain > limits.MaxGain {
		return NewValidationError("gain", fmt.Sprintf("gain %d out of range %d-%d",
			gain, limits.MinGain, limits.MaxGain))
	}
	return nil
}

// ValidateVideoFormat checks the format against the supported table
func ValidateVideoFormat(name string) error {
	if _, ok := videoFormats[name]; !ok {
		return NewValidationError("video_format", fmt.Sprintf("video format %q not supported (one of: %s)",
			name, strings.Join(SupportedVideoFormats(), ", ")))
	}
	return nil
}

// ValidateTimeout accepts NoTimeout or any non-negative number of milliseconds
func ValidateTimeout(ms int) error {
	if ms < NoTimeout {
		return NewValidationError("timeout_ms", fmt.Sprintf("timeout_ms must be -1 or >= 0, got %d", ms))
	}
	return nil
}

// ValidateSettings validates every set field of a settings update.
// Returns a slice of validation errors (empty if valid).
func ValidateSettings(s Settings, limits Limits) []error {
	var errs []error

	if s.NumImages != nil {
		if err := ValidateNumImages(*s.NumImages); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ExposureUS != nil {
		if err := validateFinite("exposure_us", *s.ExposureUS); err != nil {
			errs = append(errs, err)
		} else if err := ValidateExposure(roundHalfEven(*s.ExposureUS), limits); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Gain != nil {
		if err := validateFinite("gain", *s.Gain); err != nil {
			errs = append(errs, err)
		} else if err := ValidateGain(roundHalfEven(*s.Gain), limits); err != nil {
			errs = append(errs, err)
		}
	}
	if s.VideoFormat != nil {
		if err := ValidateVideoFormat(*s.VideoFormat); err != nil {
			errs = append(errs, err)
		}
	}
	if s.TimeoutMS != nil {
		if err := ValidateTimeout(*s.TimeoutMS); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

func validateFinite(property string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewValidationError(property, fmt.Sprintf("%s must be a finite number", property))
	}
	return nil
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Settings validation failed with %d error(s):\n", len(errs)))
	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
