package grabber

import (
	"errors"
	"fmt"
)

const (
	// LibraryName is the vendor library loaded on Windows (without extension)
	LibraryName = "tisgrabber_x64"

	// CompanionLibrary must be loadable from the same directory as LibraryName
	CompanionLibrary = "TIS_UDSHL10_x64"

	// StatusSuccess is the value returned by library calls that succeeded
	StatusSuccess = 1
)

// Library status codes other than success
const (
	StatusError                     = 0
	StatusNoHandle                  = -1
	StatusNoDevice                  = -2
	StatusNotAvailable              = -3
	StatusPropertyItemNotAvailable  = -4
	StatusPropertyElementNotAvail   = -5
	StatusPropertyElementWrongIface = -6
)

// Library function names, used for error reporting and fault injection
const (
	CallInitLibrary              = "IC_InitLibrary"
	CallGetDeviceCount           = "IC_GetDeviceCount"
	CallGetUniqueName            = "IC_GetUniqueNamefromList"
	CallCreateGrabber            = "IC_CreateGrabber"
	CallReleaseGrabber           = "IC_ReleaseGrabber"
	CallOpenByUniqueName         = "IC_OpenDevByUniqueName"
	CallIsDevValid               = "IC_IsDevValid"
	CallStartLive                = "IC_StartLive"
	CallStopLive                 = "IC_StopLive"
	CallRemoveOverlay            = "IC_RemoveOverlay"
	CallGetFormat                = "IC_GetFormat"
	CallSetFormat                = "IC_SetFormat"
	CallGetAutoCameraProperty    = "IC_GetAutoCameraProperty"
	CallEnableAutoCameraProperty = "IC_EnableAutoCameraProperty"
	CallGetExpAbsValRange        = "IC_GetExpAbsValRange"
	CallGetExpAbsVal             = "IC_GetExpAbsVal"
	CallSetExpAbsVal             = "IC_SetExpAbsVal"
	CallGetAutoVideoProperty     = "IC_GetAutoVideoProperty"
	CallEnableAutoVideoProperty  = "IC_EnableAutoVideoProperty"
	CallVideoPropertyGetRange    = "IC_VideoPropertyGetRange"
	CallGetVideoProperty         = "IC_GetVideoProperty"
	CallSetVideoProperty         = "IC_SetVideoProperty"
	CallGetVideoFormatCount      = "IC_GetVideoFormatCount"
	CallGetVideoFormat           = "IC_GetVideoFormat"
	CallSetVideoFormat           = "IC_SetVideoFormat"
	CallGetImageDescription      = "IC_GetImageDescription"
	CallIsTriggerAvailable       = "IC_IsTriggerAvailable"
	CallEnableTrigger            = "IC_EnableTrigger"
	CallSoftwareTrigger          = "IC_SoftwareTrigger"
	CallSnapImage                = "IC_SnapImage"
	CallGetImagePtr              = "IC_GetImagePtr"
)

// CameraProperty indexes the library's CAMERA_PROPERTY enumeration
type CameraProperty int

const (
	CameraPropertyPan CameraProperty = iota
	CameraPropertyTilt
	CameraPropertyRoll
	CameraPropertyZoom
	CameraPropertyExposure
	CameraPropertyIris
	CameraPropertyFocus
)

// VideoProperty indexes the library's VIDEO_PROPERTY enumeration
type VideoProperty int

const (
	VideoPropertyBrightness VideoProperty = iota
	VideoPropertyContrast
	VideoPropertyHue
	VideoPropertySaturation
	VideoPropertySharpness
	VideoPropertyGamma
	VideoPropertyColorEnable
	VideoPropertyWhiteBalance
	VideoPropertyBacklightCompensation
	VideoPropertyGain
)

// ColorFormat is the sink color format (COLORFORMAT enumeration)
type ColorFormat int

const (
	ColorFormatY800 ColorFormat = iota
	ColorFormatRGB24
	ColorFormatRGB32
	ColorFormatUYVY
	ColorFormatY16
)

// String returns the library name of the color format
func (c ColorFormat) String() string {
	switch c {
	case ColorFormatY800:
		return "Y800"
	case ColorFormatRGB24:
		return "RGB24"
	case ColorFormatRGB32:
		return "RGB32"
	case ColorFormatUYVY:
		return "UYVY"
	case ColorFormatY16:
		return "Y16"
	default:
		return fmt.Sprintf("ColorFormat(%d)", int(c))
	}
}

// Handle is an opaque grabber handle (HGRABBER)
type Handle uintptr

// ImageDescription is the result of IC_GetImageDescription
type ImageDescription struct {
	Width        int32
	Height       int32
	BitsPerPixel int32
	ColorFormat  ColorFormat
}

// BytesPerFrame returns the size of one frame in the sink buffer
func (d ImageDescription) BytesPerFrame() int {
	return int(d.Width) * int(d.Height) * int((d.BitsPerPixel+7)/8)
}

// Driver is the set of vendor library calls used by the camera adaptor.
type Driver interface {
	InitLibrary() error
	DeviceCount() int
	UniqueName(index int) (string, error)

	CreateGrabber() (Handle, error)
	ReleaseGrabber(h Handle)
	OpenByUniqueName(h Handle, name string) error
	IsDevValid(h Handle) error

	StartLive(h Handle, showWindow bool) error
	StopLive(h Handle)
	RemoveOverlay(h Handle, enable bool) error

	Format(h Handle) ColorFormat
	SetFormat(h Handle, format ColorFormat) error

	AutoCameraProperty(h Handle, p CameraProperty) (bool, error)
	EnableAutoCameraProperty(h Handle, p CameraProperty, enable bool) error
	ExposureRange(h Handle) (min, max float32, err error)
	Exposure(h Handle) (float32, error)
	SetExposure(h Handle, seconds float32) error

	AutoVideoProperty(h Handle, p VideoProperty) (bool, error)
	EnableAutoVideoProperty(h Handle, p VideoProperty, enable bool) error
	VideoPropertyRange(h Handle, p VideoProperty) (min, max int32, err error)
	VideoProperty(h Handle, p VideoProperty) (int32, error)
	SetVideoProperty(h Handle, p VideoProperty, value int32) error

	VideoFormatCount(h Handle) int
	VideoFormat(h Handle, index int) (string, error)
	SetVideoFormat(h Handle, name string) error
	ImageDescription(h Handle) (ImageDescription, error)

	IsTriggerAvailable(h Handle) error
	EnableTrigger(h Handle, enable bool) error
	SoftwareTrigger(h Handle) error
	SnapImage(h Handle, timeoutMS int) error
	CopyImage(h Handle, dst []byte) error
}

// ErrUnsupportedPlatform is returned by Open where the vendor library does not exist
var ErrUnsupportedPlatform = errors.New("tisgrabber is only available on windows (use the simulator elsewhere)")

// DriverError is a non-success status returned by a library call
type DriverError struct {
	Call string // Library function, e.g. "IC_SnapImage"
	Code int    // Status code returned by the library
}

// Error implements the error interface
func (e *DriverError) Error() string {
	return fmt.Sprintf("%s: driver error %d (%s)", e.Call, e.Code, StatusText(e.Code))
}

// StatusText returns a short description of a library status code
func StatusText(code int) string {
	switch code {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusNoHandle:
		return "no handle"
	case StatusNoDevice:
		return "no device"
	case StatusNotAvailable:
		return "not available"
	case StatusPropertyItemNotAvailable:
		return "property item not available"
	case StatusPropertyElementNotAvail:
		return "property element not available"
	case StatusPropertyElementWrongIface:
		return "property element has wrong interface"
	default:
		return "unknown"
	}
}

// checkStatus converts a library status code into an error
func checkStatus(call string, code int) error {
	if code == StatusSuccess {
		return nil
	}
	return &DriverError{Call: call, Code: code}
}

// IsDriverError reports whether err wraps a *DriverError, returning it
func IsDriverError(err error) (*DriverError, bool) {
	var drvErr *DriverError
	if errors.As(err, &drvErr) {
		return drvErr, true
	}
	return nil, false
}
