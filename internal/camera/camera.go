package camera

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/grabber"
	"github.com/muurk/tiscam/internal/logging"
)

// DefaultName identifies the adaptor in log fields and rendered output
const DefaultName = "tis_DMK_33UJ003"

// Options configures Open
type Options struct {
	// Name labels log entries and the configuration record.
	// Default: DefaultName
	Name string

	// Initial overrides the built-in defaults applied at the end of Open.
	// Unset fields keep the defaults (minimum exposure, maximum gain,
	// DefaultVideoFormat, trigger enabled, DefaultTimeoutMS, DefaultNumImages).
	Initial Settings
}

// Camera is an opened DMK 33UJ003. It is not safe for concurrent use;
// callers sharing a Camera must serialise access.
type Camera struct {
	drv    grabber.Driver
	handle grabber.Handle
	log    *zap.Logger

	name       string
	deviceName string
	deviceType string
	state      State

	deviceFormats []string
	limits        Limits
	image         ImageParameters

	exposureUS  int
	gain        int
	videoFormat string
	trigger     bool
	timeoutMS   int
	numImages   int

	scratch []byte
}

// Open initialises the driver, opens the single attached camera and applies
// the default configuration.
func Open(drv grabber.Driver, opts Options) (*Camera, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	c := &Camera{
		drv:       drv,
		name:      opts.Name,
		log:       logging.GetLogger().With(zap.String("camera", opts.Name)),
		numImages: DefaultNumImages,
	}

	c.log.Debug("Initializing driver library")
	if err := drv.InitLibrary(); err != nil {
		return nil, classifyDriverError("failed to initialize driver library", err)
	}

	count := drv.DeviceCount()
	c.log.Debug("Device count", zap.Int("num_devices", count))
	if count != 1 {
		return nil, NewDeviceError(fmt.Sprintf("currently only 1 device supported (found %d)", count))
	}

	name, err := drv.UniqueName(0)
	if err != nil {
		return nil, NewDriverError("failed to read device name", err)
	}
	c.deviceName = name
	c.deviceType = deviceTypeOf(name)
	c.log.Info("Found device", zap.String("device_name", name), zap.String("device_type", c.deviceType))
	if c.deviceType != DeviceType {
		return nil, NewDeviceError(fmt.Sprintf("device type %q not supported (want %s)", c.deviceType, DeviceType))
	}

	handle, err := drv.CreateGrabber()
	if err != nil {
		return nil, NewDriverError("failed to create grabber", err)
	}
	c.handle = handle
	c.state = StateIdle

	if err := c.setup(opts.Initial); err != nil {
		drv.ReleaseGrabber(handle)
		c.state = StateClosed
		return nil, err
	}

	c.log.Info("Camera opened",
		zap.String("video_format", c.videoFormat),
		zap.Int("exposure_us", c.exposureUS),
		zap.Int("gain", c.gain),
	)
	return c, nil
}

// deviceTypeOf joins the first two words of a unique name with "_",
// e.g. "DMK 33UJ003 12345678" -> "DMK_33UJ003"
func deviceTypeOf(uniqueName string) string {
	fields := strings.Fields(uniqueName)
	if len(fields) < 2 {
		return strings.Join(fields, "_")
	}
	return fields[0] + "_" + fields[1]
}

// setup runs everything in Open after the grabber exists
func (c *Camera) setup(initial Settings) error {
	if err := c.drv.OpenByUniqueName(c.handle, c.deviceName); err != nil {
		return NewDriverError("failed to open device", err)
	}
	if err := c.drv.IsDevValid(c.handle); err != nil {
		return NewDriverError("device is not valid", err)
	}

	n := c.drv.VideoFormatCount(c.handle)
	for i := 0; i < n; i++ {
		f, err := c.drv.VideoFormat(c.handle, i)
		if err != nil {
			return NewDriverError(fmt.Sprintf("failed to read video format %d", i), err)
		}
		if strings.HasPrefix(f, "Y16") {
			c.deviceFormats = append(c.deviceFormats, f)
		}
	}
	c.log.Debug("Device video formats", zap.Strings("y16_formats", c.deviceFormats))

	if err := c.setAutoExposure(false); err != nil {
		return err
	}
	lo, hi, err := c.drv.ExposureRange(c.handle)
	if err != nil {
		return NewDriverError("failed to read exposure range", err)
	}
	c.limits.MinExposureUS = secondsToUS(lo)
	c.limits.MaxExposureUS = min(secondsToUS(hi), MaxExposureUS)

	if err := c.setAutoGain(false); err != nil {
		return err
	}
	gmin, gmax, err := c.drv.VideoPropertyRange(c.handle, grabber.VideoPropertyGain)
	if err != nil {
		return NewDriverError("failed to read gain range", err)
	}
	c.limits.MinGain, c.limits.MaxGain = int(gmin), int(gmax)
	c.log.Debug("Property limits",
		zap.Int("min_exposure_us", c.limits.MinExposureUS),
		zap.Int("max_exposure_us", c.limits.MaxExposureUS),
		zap.Int("min_gain", c.limits.MinGain),
		zap.Int("max_gain", c.limits.MaxGain),
	)

	defaults := Settings{
		NumImages:     Int(DefaultNumImages),
		ExposureUS:    Float(float64(c.limits.MinExposureUS)),
		Gain:          Float(float64(c.limits.MaxGain)),
		VideoFormat:   String(DefaultVideoFormat),
		TriggerEnable: Bool(DefaultTrigger),
		TimeoutMS:     Int(DefaultTimeoutMS),
	}
	return c.ApplySettings(defaults.Merge(initial))
}

func secondsToUS(s float32) int {
	return roundHalfEven(1e6 * float64(s))
}

func (c *Camera) setAutoExposure(enable bool) error {
	if err := c.drv.EnableAutoCameraProperty(c.handle, grabber.CameraPropertyExposure, enable); err != nil {
		return NewDriverError("failed to set auto exposure", err)
	}
	got, err := c.drv.AutoCameraProperty(c.handle, grabber.CameraPropertyExposure)
	if err != nil {
		return NewDriverError("failed to read auto exposure", err)
	}
	if got != enable {
		return NewVerificationError("auto_exposure", enable, got)
	}
	return nil
}

func (c *Camera) setAutoGain(enable bool) error {
	if err := c.drv.EnableAutoVideoProperty(c.handle, grabber.VideoPropertyGain, enable); err != nil {
		return NewDriverError("failed to set auto gain", err)
	}
	got, err := c.drv.AutoVideoProperty(c.handle, grabber.VideoPropertyGain)
	if err != nil {
		return NewDriverError("failed to read auto gain", err)
	}
	if got != enable {
		return NewVerificationError("auto_gain", enable, got)
	}
	return nil
}

// ApplySettings validates every set field, then applies them in the order
// frame count, exposure, gain, video format, trigger, timeout. Each write is
// read back; the first failure stops the sequence, leaving earlier fields
// applied.
func (c *Camera) ApplySettings(s Settings) error {
	if err := c.requireOpen("apply settings"); err != nil {
		return err
	}
	if errs := ValidateSettings(s, c.limits); len(errs) > 0 {
		return joinValidation(errs)
	}

	c.log.Info("Applying settings")
	if s.NumImages != nil {
		c.numImages = *s.NumImages
	}
	if s.ExposureUS != nil {
		if err := c.setExposure(roundHalfEven(*s.ExposureUS)); err != nil {
			return err
		}
	}
	if s.Gain != nil {
		if err := c.setGain(roundHalfEven(*s.Gain)); err != nil {
			return err
		}
	}
	if s.VideoFormat != nil {
		if err := c.setVideoFormat(*s.VideoFormat); err != nil {
			return err
		}
	}
	if s.TriggerEnable != nil {
		if err := c.setTrigger(*s.TriggerEnable); err != nil {
			return err
		}
	}
	if s.TimeoutMS != nil {
		c.timeoutMS = *s.TimeoutMS
	}
	c.log.Info("Settings applied",
		zap.Int("num_images", c.numImages),
		zap.Int("exposure_us", c.exposureUS),
		zap.Int("gain", c.gain),
		zap.String("video_format", c.videoFormat),
		zap.Bool("trigger_enable", c.trigger),
		zap.Int("timeout_ms", c.timeoutMS),
	)
	return nil
}

func joinValidation(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	property := ""
	for i, err := range errs {
		msgs[i] = err.Error()
		if camErr, ok := asCameraError(err); ok && property == "" {
			property = camErr.Property
		}
	}
	return NewValidationError(property, strings.Join(msgs, "; "))
}

func (c *Camera) setExposure(us int) error {
	c.log.Debug("Setting exposure", zap.Int("exposure_us", us))
	if err := c.drv.SetExposure(c.handle, float32(1e-6*float64(us))); err != nil {
		return NewDriverError("failed to set exposure", err)
	}
	got, err := c.readExposure()
	if err != nil {
		return err
	}
	if got != us {
		return NewVerificationError("exposure_us", us, got)
	}
	c.exposureUS = us
	return nil
}

func (c *Camera) readExposure() (int, error) {
	v, err := c.drv.Exposure(c.handle)
	if err != nil {
		return 0, NewDriverError("failed to read exposure", err)
	}
	return secondsToUS(v), nil
}

func (c *Camera) setGain(gain int) error {
	c.log.Debug("Setting gain", zap.Int("gain", gain))
	if err := c.drv.SetVideoProperty(c.handle, grabber.VideoPropertyGain, int32(gain)); err != nil {
		return NewDriverError("failed to set gain", err)
	}
	got, err := c.drv.VideoProperty(c.handle, grabber.VideoPropertyGain)
	if err != nil {
		return NewDriverError("failed to read gain", err)
	}
	if int(got) != gain {
		return NewVerificationError("gain", gain, got)
	}
	c.gain = gain
	return nil
}

// setVideoFormat selects a format and reconfigures the sink for 16-bit frames.
// The overlay must be removed for Y16, and the sink color format only
// registers after a start/stop live cycle.
func (c *Camera) setVideoFormat(name string) error {
	c.log.Debug("Setting video format", zap.String("video_format", name))
	idx := videoFormats[name]
	if err := c.drv.SetVideoFormat(c.handle, name); err != nil {
		return NewDriverError("failed to set video format", err)
	}
	got, err := c.drv.VideoFormat(c.handle, idx)
	if err != nil {
		return NewDriverError("failed to read video format", err)
	}
	if got != name {
		return NewVerificationError("video_format", name, got)
	}
	c.videoFormat = name

	if err := c.drv.RemoveOverlay(c.handle, false); err != nil {
		return NewDriverError("failed to remove overlay", err)
	}
	if err := c.drv.SetFormat(c.handle, grabber.ColorFormatY16); err != nil {
		return NewDriverError("failed to set color format", err)
	}
	if err := c.startLive(); err != nil {
		return err
	}
	c.stopLive()
	if f := c.drv.Format(c.handle); f != grabber.ColorFormatY16 {
		return NewVerificationError("color_format", grabber.ColorFormatY16, f)
	}
	return c.refreshImage()
}

func (c *Camera) refreshImage() error {
	desc, err := c.drv.ImageDescription(c.handle)
	if err != nil {
		return NewDriverError("failed to read image description", err)
	}
	c.image = ImageParameters{
		Width:       int(desc.Width),
		Height:      int(desc.Height),
		BitDepth:    int(desc.BitsPerPixel),
		ColorFormat: desc.ColorFormat,
	}
	c.log.Debug("Image parameters",
		zap.Int("width_px", c.image.Width),
		zap.Int("height_px", c.image.Height),
		zap.Int("bit_depth", c.image.BitDepth),
		zap.Stringer("color_format", c.image.ColorFormat),
	)
	return nil
}

func (c *Camera) setTrigger(enable bool) error {
	c.log.Debug("Setting trigger", zap.Bool("trigger_enable", enable))
	if err := c.drv.IsTriggerAvailable(c.handle); err != nil {
		return NewDriverError("trigger not available", err)
	}
	if err := c.drv.EnableTrigger(c.handle, enable); err != nil {
		return NewDriverError("failed to set trigger", err)
	}
	c.trigger = enable
	return nil
}

func (c *Camera) startLive() error {
	if err := c.drv.StartLive(c.handle, false); err != nil {
		return NewDriverError("failed to start live", err)
	}
	c.state = StateLive
	return nil
}

func (c *Camera) stopLive() {
	c.drv.StopLive(c.handle)
	c.state = StateIdle
}

func (c *Camera) requireOpen(op string) error {
	if c.state == StateClosed {
		return NewStateError(fmt.Sprintf("cannot %s: camera is closed", op))
	}
	return nil
}

// Close stops streaming and releases the grabber. Closing twice is a no-op.
func (c *Camera) Close() error {
	if c.state == StateClosed {
		return nil
	}
	c.log.Info("Closing camera")
	if c.state == StateLive {
		c.stopLive()
	}
	c.drv.ReleaseGrabber(c.handle)
	c.state = StateClosed
	c.scratch = nil
	return nil
}

func (c *Camera) Name() string { return c.name }
func (c *Camera) DeviceName() string { return c.deviceName }
func (c *Camera) State() State { return c.state }
func (c *Camera) Exposure() int { return c.exposureUS }
func (c *Camera) Gain() int { return c.gain }
func (c *Camera) VideoFormat() string { return c.videoFormat }
func (c *Camera) TriggerEnabled() bool { return c.trigger }
func (c *Camera) Timeout() int { return c.timeoutMS }
func (c *Camera) NumImages() int { return c.numImages }
func (c *Camera) Limits() Limits { return c.limits }
func (c *Camera) ImageParameters() ImageParameters { return c.image }

// ExposureRange returns the accepted exposure range in microseconds
func (c *Camera) ExposureRange() (int, int) {
	return c.limits.MinExposureUS, c.limits.MaxExposureUS
}

// GainRange returns the accepted gain range
func (c *Camera) GainRange() (int, int) {
	return c.limits.MinGain, c.limits.MaxGain
}

// VideoFormats returns the formats ApplySettings accepts
func (c *Camera) VideoFormats() []string {
	return SupportedVideoFormats()
}

// DeviceVideoFormats returns every Y16 format the device advertises,
// including ones that are not usable.
func (c *Camera) DeviceVideoFormats() []string {
	return append([]string(nil), c.deviceFormats...)
}

// Info returns a copy of the configuration record
func (c *Camera) Info() Config {
	return Config{
		Name:           c.name,
		DeviceName:     c.deviceName,
		DeviceType:     c.deviceType,
		State:          c.state.String(),
		Image:          c.image,
		Limits:         c.limits,
		ExposureUS:     c.exposureUS,
		Gain:           c.gain,
		VideoFormat:    c.videoFormat,
		TriggerEnabled: c.trigger,
		TimeoutMS:      c.timeoutMS,
		NumImages:      c.numImages,
	}
}
