package camera

import (
	"fmt"
	"sort"

	"github.com/muurk/tiscam/internal/grabber"
)

// DeviceType is the only model this adaptor drives
const DeviceType = "DMK_33UJ003"

// MaxExposureUS caps the driver-reported range; frames are unreliable beyond ~1.6 s
const MaxExposureUS = 1_600_000

// Defaults applied by Open
const (
	DefaultVideoFormat = "Y16 (3856x2764)"
	DefaultTimeoutMS   = 1000
	DefaultNumImages   = 1
	DefaultTrigger     = true
)

// NoTimeout makes SnapImage block until a frame arrives
const NoTimeout = -1

// videoFormats maps the usable video formats to their index in the device
// format list. Other Y16 formats are advertised by the device but do not work.
var videoFormats = map[string]int{
	"Y16 (640x480)":   5,
	"Y16 (1024x768)":  11,
	"Y16 (1280x960)":  12,
	"Y16 (1280x1024)": 13,
	"Y16 (1600x1200)": 14,
	"Y16 (1920x1080)": 15,
	"Y16 (2048x1536)": 16,
	"Y16 (3856x2764)": 17,
}

// SupportedVideoFormats returns the usable video formats ordered by device index
func SupportedVideoFormats() []string {
	names := make([]string, 0, len(videoFormats))
	for name := range videoFormats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return videoFormats[names[i]] < videoFormats[names[j]]
	})
	return names
}

// VideoFormatIndex returns the device format index of a supported video format
func VideoFormatIndex(name string) (int, bool) {
	idx, ok := videoFormats[name]
	return idx, ok
}

// State is the adaptor lifecycle state
type State int

const (
	StateClosed State = iota
	StateIdle
	StateLive
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateIdle:
		return "idle"
	case StateLive:
		return "live"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Settings is a partial update of the configuration record.
// Only non-nil fields are applied, in the order
// NumImages, ExposureUS, Gain, VideoFormat, TriggerEnable, TimeoutMS.
type Settings struct {
	NumImages     *int     `json:"num_images,omitempty" yaml:"num_images,omitempty"`
	ExposureUS    *float64 `json:"exposure_us,omitempty" yaml:"exposure_us,omitempty"`
	Gain          *float64 `json:"gain,omitempty" yaml:"gain,omitempty"`
	VideoFormat   *string  `json:"video_format,omitempty" yaml:"video_format,omitempty"`
	TriggerEnable *bool    `json:"trigger_enable,omitempty" yaml:"trigger_enable,omitempty"`
	TimeoutMS     *int     `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// IsEmpty reports whether no field is set
func (s Settings) IsEmpty() bool {
	return s.NumImages == nil && s.ExposureUS == nil && s.Gain == nil &&
		s.VideoFormat == nil && s.TriggerEnable == nil && s.TimeoutMS == nil
}

// Merge returns s with every field set in other overriding it
func (s Settings) Merge(other Settings) Settings {
	if other.NumImages != nil {
		s.NumImages = other.NumImages
	}
	if other.ExposureUS != nil {
		s.ExposureUS = other.ExposureUS
	}
	if other.Gain != nil {
		s.Gain = other.Gain
	}
	if other.VideoFormat != nil {
		s.VideoFormat = other.VideoFormat
	}
	if other.TriggerEnable != nil {
		s.TriggerEnable = other.TriggerEnable
	}
	if other.TimeoutMS != nil {
		s.TimeoutMS = other.TimeoutMS
	}
	return s
}

// Int returns a pointer to v, for building Settings
func Int(v int) *int { return &v }

// Float returns a pointer to v, for building Settings
func Float(v float64) *float64 { return &v }

// String returns a pointer to v, for building Settings
func String(v string) *string { return &v }

// Bool returns a pointer to v, for building Settings
func Bool(v bool) *bool { return &v }

// ImageParameters is the image description reported by the driver
type ImageParameters struct {
	Width       int                 `json:"width_px"`
	Height      int                 `json:"height_px"`
	BitDepth    int                 `json:"bit_depth"`
	ColorFormat grabber.ColorFormat `json:"color_format"`
}

// Limits are the accepted ranges for exposure and gain
type Limits struct {
	MinExposureUS int `json:"min_exposure_us"`
	MaxExposureUS int `json:"max_exposure_us"`
	MinGain       int `json:"min_gain"`
	MaxGain       int `json:"max_gain"`
}

// Config is the configuration record of an opened camera
type Config struct {
	Name           string          `json:"name"`
	DeviceName     string          `json:"device_name"`
	DeviceType     string          `json:"device_type"`
	State          string          `json:"state"`
	Image          ImageParameters `json:"image"`
	Limits         Limits          `json:"limits"`
	ExposureUS     int             `json:"exposure_us"`
	Gain           int             `json:"gain"`
	VideoFormat    string          `json:"video_format"`
	TriggerEnabled bool            `json:"trigger_enable"`
	TimeoutMS      int             `json:"timeout_ms"`
	NumImages      int             `json:"num_images"`
}

// Settings returns the full settings needed to reproduce this record
func (c Config) Settings() Settings {
	return Settings{
		NumImages:     Int(c.NumImages),
		ExposureUS:    Float(float64(c.ExposureUS)),
		Gain:          Float(float64(c.Gain)),
		VideoFormat:   String(c.VideoFormat),
		TriggerEnable: Bool(c.TriggerEnabled),
		TimeoutMS:     Int(c.TimeoutMS),
	}
}

// FrameBytes returns the size of one 16-bit frame
func (c Config) FrameBytes() int {
	return 2 * c.Image.Width * c.Image.Height
}
