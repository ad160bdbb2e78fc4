package camera

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/tiscam/internal/grabber"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeDriver indicates a library call returned a non-success status
	ErrTypeDriver ErrorType = iota
	// ErrTypeValidation indicates a setting was rejected before reaching the driver
	ErrTypeValidation
	// ErrTypeVerification indicates a readback did not match the written value
	ErrTypeVerification
	// ErrTypeTimeout indicates no frame arrived before the snap timeout
	ErrTypeTimeout
	// ErrTypeTransfer indicates the frame could not be copied out of the driver
	ErrTypeTransfer
	// ErrTypeState indicates the operation is not allowed in the current state
	ErrTypeState
	// ErrTypeDevice indicates a missing, duplicate or unsupported device
	ErrTypeDevice
	// ErrTypeUnsupported indicates the driver is not available on this platform
	ErrTypeUnsupported
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeDriver:
		return "Driver Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeVerification:
		return "Verification Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeTransfer:
		return "Transfer Error"
	case ErrTypeState:
		return "State Error"
	case ErrTypeDevice:
		return "Device Error"
	case ErrTypeUnsupported:
		return "Unsupported Platform"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// CameraError is returned by every camera operation that fails
type CameraError struct {
	Type     ErrorType // Category of error
	Message  string    // Human-readable error message
	Property string    // Setting involved, if any (e.g. "exposure_us")
	Expected string    // Verification: value written
	Actual   string    // Verification: value read back
	Frame    int       // Acquisition: zero-based frame index, -1 if not applicable
	Err      error     // Underlying error (if any)
}

// Error implements the error interface
func (e *CameraError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *CameraError) Unwrap() error {
	return e.Err
}

// NewDriverError wraps a failed library call
func NewDriverError(message string, err error) *CameraError {
	return &CameraError{Type: ErrTypeDriver, Message: message, Frame: -1, Err: err}
}

// NewValidationError creates a validation error for a property
func NewValidationError(property, message string) *CameraError {
	return &CameraError{Type: ErrTypeValidation, Property: property, Message: message, Frame: -1}
}

// NewVerificationError reports a readback mismatch
func NewVerificationError(property string, expected, actual any) *CameraError {
	return &CameraError{
		Type:     ErrTypeVerification,
		Property: property,
		Message:  fmt.Sprintf("%s readback mismatch: wrote %v, read %v", property, expected, actual),
		Expected: fmt.Sprint(expected),
		Actual:   fmt.Sprint(actual),
		Frame:    -1,
	}
}

// NewTimeoutError reports a snap that did not deliver a frame
func NewTimeoutError(frame, timeoutMS int, err error) *CameraError {
	msg := fmt.Sprintf("frame %d: no image within %d ms (buffer timeout?)", frame, timeoutMS)
	if timeoutMS < 0 {
		msg = fmt.Sprintf("frame %d: snap failed while blocking without timeout", frame)
	}
	return &CameraError{Type: ErrTypeTimeout, Message: msg, Frame: frame, Err: err}
}

// NewTransferError reports a failed copy out of the driver buffer
func NewTransferError(frame int, err error) *CameraError {
	return &CameraError{
		Type:    ErrTypeTransfer,
		Message: fmt.Sprintf("frame %d: image transfer failed", frame),
		Frame:   frame,
		Err:     err,
	}
}

// NewStateError reports an operation attempted in the wrong state
func NewStateError(message string) *CameraError {
	return &CameraError{Type: ErrTypeState, Message: message, Frame: -1}
}

// NewDeviceError reports a device enumeration or identity problem
func NewDeviceError(message string) *CameraError {
	return &CameraError{Type: ErrTypeDevice, Message: message, Frame: -1}
}

// classifyDriverError maps the platform sentinel onto ErrTypeUnsupported
func classifyDriverError(message string, err error) *CameraError {
	if errors.Is(err, grabber.ErrUnsupportedPlatform) {
		return &CameraError{Type: ErrTypeUnsupported, Message: message, Frame: -1, Err: err}
	}
	return NewDriverError(message, err)
}

func asCameraError(err error) (*CameraError, bool) {
	var camErr *CameraError
	if errors.As(err, &camErr) {
		return camErr, true
	}
	return nil, false
}

func isType(err error, t ErrorType) bool {
	camErr, ok := asCameraError(err)
	return ok && camErr.Type == t
}

// IsDriverError checks if an error is a driver error
func IsDriverError(err error) bool { return isType(err, ErrTypeDriver) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return isType(err, ErrTypeValidation) }

// IsVerificationError checks if an error is a verification error
func IsVerificationError(err error) bool { return isType(err, ErrTypeVerification) }

// IsTimeoutError checks if an error is an acquisition timeout
func IsTimeoutError(err error) bool { return isType(err, ErrTypeTimeout) }

// IsTransferError checks if an error is an image transfer error
func IsTransferError(err error) bool { return isType(err, ErrTypeTransfer) }

// IsStateError checks if an error is a state error
func IsStateError(err error) bool { return isType(err, ErrTypeState) }

// IsDeviceError checks if an error is a device error
func IsDeviceError(err error) bool { return isType(err, ErrTypeDevice) }

// IsUnsupportedError checks if an error is an unsupported platform error
func IsUnsupportedError(err error) bool { return isType(err, ErrTypeUnsupported) }

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	camErr, ok := asCameraError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch camErr.Type {
	case ErrTypeDevice:
		return strings.Join([]string{
			"The camera could not be identified.",
			"Troubleshooting:",
			"  • Connect exactly one DMK 33UJ003 to a USB 3.0 port",
			"  • Close other programs that may hold the camera (IC Capture)",
			"  • Check the device in the Windows device manager",
		}, "\n")

	case ErrTypeUnsupported:
		return strings.Join([]string{
			"The vendor library is only available on Windows.",
			"Troubleshooting:",
			"  • Run on Windows with tisgrabber_x64.dll installed",
			"  • Use --simulate to exercise the tool without hardware",
		}, "\n")

	case ErrTypeDriver:
		hint := []string{"The camera driver rejected a call."}
		var drvErr *grabber.DriverError
		if errors.As(camErr.Err, &drvErr) {
			hint = append(hint, fmt.Sprintf("%s returned %d (%s).", drvErr.Call, drvErr.Code, grabber.StatusText(drvErr.Code)))
		}
		hint = append(hint, "Troubleshooting:",
			"  • Check that tisgrabber_x64.dll and TIS_UDSHL10_x64.dll are in --dll-dir",
			"  • Unplug and replug the camera",
		)
		return strings.Join(hint, "\n")

	case ErrTypeTimeout:
		return strings.Join([]string{
			"No frame arrived before the timeout.",
			"Troubleshooting:",
			"  • With the trigger enabled, send a software or hardware trigger",
			"  • Increase --timeout (or use -1 to block)",
			"  • Long exposures need a longer timeout",
		}, "\n")

	case ErrTypeTransfer:
		return strings.Join([]string{
			"The frame could not be copied from the driver.",
			"Troubleshooting:",
			"  • Re-apply the video format to refresh the image size",
			"  • Check USB 3.0 bandwidth (avoid hubs)",
		}, "\n")

	case ErrTypeVerification:
		return fmt.Sprintf("The camera did not keep the value written to %s. Try a value inside the supported range.", camErr.Property)

	case ErrTypeState:
		return "The camera is closed. Open it again before issuing commands."

	case ErrTypeValidation:
		return "The settings are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	camErr, ok := asCameraError(err)
	if !ok {
		return err.Error()
	}

	switch camErr.Type {
	case ErrTypeDevice:
		return camErr.Message
	case ErrTypeUnsupported:
		return "Camera driver not available on this platform"
	case ErrTypeDriver:
		return "Driver call failed - " + camErr.Message
	case ErrTypeTimeout:
		return "Acquisition timed out"
	case ErrTypeTransfer:
		return "Image transfer failed"
	case ErrTypeVerification:
		return fmt.Sprintf("Camera rejected %s (wrote %s, read %s)", camErr.Property, camErr.Expected, camErr.Actual)
	default:
		return camErr.Message
	}
}
