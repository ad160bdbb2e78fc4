package grabber

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// SimulatedDeviceName is the unique name reported by a default Simulator
const SimulatedDeviceName = "DMK 33UJ003 12345678"

// Simulated property limits, matching a real DMK 33UJ003
const (
	SimExposureMin float32 = 1e-4
	SimExposureMax float32 = 30
	SimGainMin     int32   = 100
	SimGainMax     int32   = 383
)

// simulatedFormats is the video format list of a DMK 33UJ003. Only some of
// the Y16 entries are usable on the real device.
var simulatedFormats = []string{
	"Y800 (640x480)",
	"Y800 (1024x768)",
	"Y800 (1280x960)",
	"RGB24 (640x480)",
	"RGB32 (640x480)",
	"Y16 (640x480)",
	"Y16 (720x480)",
	"Y16 (720x576)",
	"Y16 (768x576)",
	"Y16 (800x600)",
	"Y16 (960x720)",
	"Y16 (1024x768)",
	"Y16 (1280x960)",
	"Y16 (1280x1024)",
	"Y16 (1600x1200)",
	"Y16 (1920x1080)",
	"Y16 (2048x1536)",
	"Y16 (3856x2764)",
}

type simGrabber struct {
	opened        bool
	live          bool
	overlay       bool
	sinkFormat    ColorFormat
	pendingFormat ColorFormat
	autoExposure  bool
	exposure      float32
	autoGain      bool
	gain          int32
	brightness    int32
	gamma         int32
	videoFormat   int
	trigger       bool
	pending       int
	frame         []byte
	seq           uint32
}

// Simulator is an in-memory Driver emulating a single DMK 33UJ003.
//
// Behaviour that mirrors the real library:
//   - SetFormat only registers after a StartLive/StopLive cycle
//   - SnapImage fails when not live, or when the trigger is enabled and no
//     software trigger is pending
//   - CopyImage returns the last snapped frame as little-endian pixels
type Simulator struct {
	mu sync.Mutex

	deviceName       string
	numDevices       int
	triggerAvailable bool
	formats          []string

	snapHold    <-chan struct{}
	heldSnaps   int
	initialized bool
	nextHandle  Handle
	grabbers    map[Handle]*simGrabber

	faults        map[string]int
	faultsOnce    map[string]int
	exposureDrift float32
	gainDrift     int32
	snapTimeouts  int
	calls         map[string]int
}

// NewSimulator creates a simulator with one attached DMK 33UJ003.
func NewSimulator() *Simulator {
	return &Simulator{
		deviceName:       SimulatedDeviceName,
		numDevices:       1,
		triggerAvailable: true,
		formats:          append([]string(nil), simulatedFormats...),
		nextHandle:       0x1000,
		grabbers:         make(map[Handle]*simGrabber),
		faults:           make(map[string]int),
		faultsOnce:       make(map[string]int),
		calls:            make(map[string]int),
	}
}

// SetDevices changes the attached device count and the reported unique name
func (s *Simulator) SetDevices(count int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numDevices = count
	if name != "" {
		s.deviceName = name
	}
}

// SetTriggerAvailable controls the IC_IsTriggerAvailable result
func (s *Simulator) SetTriggerAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerAvailable = available
}

// Fail makes every subsequent call to the named library function return code.
func (s *Simulator) Fail(call string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[call] = code
}

// FailOnce makes only the next call to the named library function return code.
func (s *Simulator) FailOnce(call string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultsOnce[call] = code
}

// ClearFaults removes every injected fault, drift and pending timeout
func (s *Simulator) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]int)
	s.faultsOnce = make(map[string]int)
	s.exposureDrift = 0
	s.gainDrift = 0
	s.snapTimeouts = 0
}

// SetReadbackDrift offsets exposure (seconds) and gain readbacks from the written values
func (s *Simulator) SetReadbackDrift(exposure float32, gain int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exposureDrift = exposure
	s.gainDrift = gain
}

// FailSnaps makes the next n SnapImage calls time out
func (s *Simulator) FailSnaps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapTimeouts = n
}

// HoldSnaps makes SnapImage block until release is closed, like a snap
// waiting for an external trigger with no timeout. Pass nil to stop holding.
func (s *Simulator) HoldSnaps(release <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapHold = release
}

// HeldSnaps returns the number of SnapImage calls currently blocked by HoldSnaps
func (s *Simulator) HeldSnaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heldSnaps
}

// Calls returns how many times the named library function was invoked
func (s *Simulator) Calls(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[call]
}

// IsLive reports whether the grabber is streaming
func (s *Simulator) IsLive(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grabbers[h]
	return ok && g.live
}

// OpenGrabbers returns the number of grabbers not yet released
func (s *Simulator) OpenGrabbers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grabbers)
}

// enter records the call and returns an injected fault, if any.
// Must be called with s.mu held.
func (s *Simulator) enter(call string) error {
	s.calls[call]++
	if code, ok := s.faultsOnce[call]; ok {
		delete(s.faultsOnce, call)
		return &DriverError{Call: call, Code: code}
	}
	if code, ok := s.faults[call]; ok {
		return &DriverError{Call: call, Code: code}
	}
	return nil
}

// grabber looks up an opened grabber. Must be called with s.mu held.
func (s *Simulator) grabber(call string, h Handle) (*simGrabber, error) {
	if err := s.enter(call); err != nil {
		return nil, err
	}
	g, ok := s.grabbers[h]
	if !ok {
		return nil, &DriverError{Call: call, Code: StatusNoHandle}
	}
	if !g.opened {
		return nil, &DriverError{Call: call, Code: StatusNoDevice}
	}
	return g, nil
}

func (s *Simulator) InitLibrary() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallInitLibrary); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

func (s *Simulator) DeviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallGetDeviceCount]++
	if !s.initialized {
		return 0
	}
	return s.numDevices
}

func (s *Simulator) UniqueName(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallGetUniqueName); err != nil {
		return "", err
	}
	if index < 0 || index >= s.numDevices {
		return "", &DriverError{Call: CallGetUniqueName, Code: StatusNoDevice}
	}
	if index == 0 {
		return s.deviceName, nil
	}
	return fmt.Sprintf("%s-%d", s.deviceName, index), nil
}

func (s *Simulator) CreateGrabber() (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallCreateGrabber); err != nil {
		return 0, err
	}
	h := s.nextHandle
	s.nextHandle++
	s.grabbers[h] = &simGrabber{
		autoExposure: true,
		exposure:     1.0 / 30,
		autoGain:     true,
		gain:         SimGainMin,
		gamma:        100,
		sinkFormat:   ColorFormatY800,
		videoFormat:  0,
	}
	return h, nil
}

func (s *Simulator) ReleaseGrabber(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallReleaseGrabber]++
	delete(s.grabbers, h)
}

func (s *Simulator) OpenByUniqueName(h Handle, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallOpenByUniqueName); err != nil {
		return err
	}
	g, ok := s.grabbers[h]
	if !ok {
		return &DriverError{Call: CallOpenByUniqueName, Code: StatusNoHandle}
	}
	if name != s.deviceName || s.numDevices < 1 {
		return &DriverError{Call: CallOpenByUniqueName, Code: StatusNoDevice}
	}
	g.opened = true
	return nil
}

func (s *Simulator) IsDevValid(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.grabber(CallIsDevValid, h)
	return err
}

func (s *Simulator) StartLive(h Handle, showWindow bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallStartLive, h)
	if err != nil {
		return err
	}
	g.live = true
	g.sinkFormat = g.pendingFormat
	return nil
}

func (s *Simulator) StopLive(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallStopLive]++
	if g, ok := s.grabbers[h]; ok {
		g.live = false
		g.pending = 0
	}
}

func (s *Simulator) RemoveOverlay(h Handle, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallRemoveOverlay, h)
	if err != nil {
		return err
	}
	g.overlay = enable
	return nil
}

func (s *Simulator) Format(h Handle) ColorFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallGetFormat]++
	if g, ok := s.grabbers[h]; ok {
		return g.sinkFormat
	}
	return ColorFormat(StatusNoHandle)
}

func (s *Simulator) SetFormat(h Handle, format ColorFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallSetFormat, h)
	if err != nil {
		return err
	}
	if format < ColorFormatY800 || format > ColorFormatY16 {
		return &DriverError{Call: CallSetFormat, Code: StatusError}
	}
	g.pendingFormat = format
	return nil
}

func (s *Simulator) AutoCameraProperty(h Handle, p CameraProperty) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallGetAutoCameraProperty, h)
	if err != nil {
		return false, err
	}
	if p != CameraPropertyExposure {
		return false, &DriverError{Call: CallGetAutoCameraProperty, Code: StatusPropertyItemNotAvailable}
	}
	return g.autoExposure, nil
}

func (s *Simulator) EnableAutoCameraProperty(h Handle, p CameraProperty, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallEnableAutoCameraProperty, h)
	if err != nil {
		return err
	}
	if p != CameraPropertyExposure {
		return &DriverError{Call: CallEnableAutoCameraProperty, Code: StatusPropertyItemNotAvailable}
	}
	g.autoExposure = enable
	return nil
}

func (s *Simulator) ExposureRange(h Handle) (float32, float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.grabber(CallGetExpAbsValRange, h); err != nil {
		return 0, 0, err
	}
	return SimExposureMin, SimExposureMax, nil
}

func (s *Simulator) Exposure(h Handle) (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallGetExpAbsVal, h)
	if err != nil {
		return 0, err
	}
	return g.exposure + s.exposureDrift, nil
}

func (s *Simulator) SetExposure(h Handle, seconds float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallSetExpAbsVal, h)
	if err != nil {
		return err
	}
	if seconds < SimExposureMin || seconds > SimExposureMax {
		return &DriverError{Call: CallSetExpAbsVal, Code: StatusPropertyElementNotAvail}
	}
	g.exposure = seconds
	return nil
}

func (s *Simulator) AutoVideoProperty(h Handle, p VideoProperty) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallGetAutoVideoProperty, h)
	if err != nil {
		return false, err
	}
	if p != VideoPropertyGain {
		return false, nil
	}
	return g.autoGain, nil
}

func (s *Simulator) EnableAutoVideoProperty(h Handle, p VideoProperty, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallEnableAutoVideoProperty, h)
	if err != nil {
		return err
	}
	if p != VideoPropertyGain {
		return &DriverError{Call: CallEnableAutoVideoProperty, Code: StatusPropertyItemNotAvailable}
	}
	g.autoGain = enable
	return nil
}

func (s *Simulator) VideoPropertyRange(h Handle, p VideoProperty) (int32, int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.grabber(CallVideoPropertyGetRange, h); err != nil {
		return 0, 0, err
	}
	switch p {
	case VideoPropertyGain:
		return SimGainMin, SimGainMax, nil
	case VideoPropertyBrightness:
		return 0, 4095, nil
	case VideoPropertyGamma:
		return 1, 500, nil
	default:
		return 0, 0, &DriverError{Call: CallVideoPropertyGetRange, Code: StatusPropertyItemNotAvailable}
	}
}

func (s *Simulator) VideoProperty(h Handle, p VideoProperty) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallGetVideoProperty, h)
	if err != nil {
		return 0, err
	}
	switch p {
	case VideoPropertyGain:
		return g.gain + s.gainDrift, nil
	case VideoPropertyBrightness:
		return g.brightness, nil
	case VideoPropertyGamma:
		return g.gamma, nil
	default:
		return 0, &DriverError{Call: CallGetVideoProperty, Code: StatusPropertyItemNotAvailable}
	}
}

func (s *Simulator) SetVideoProperty(h Handle, p VideoProperty, value int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallSetVideoProperty, h)
	if err != nil {
		return err
	}
	switch p {
	case VideoPropertyGain:
		if value < SimGainMin || value > SimGainMax {
			return &DriverError{Call: CallSetVideoProperty, Code: StatusPropertyElementNotAvail}
		}
		g.gain = value
	case VideoPropertyBrightness:
		g.brightness = value
	case VideoPropertyGamma:
		g.gamma = value
	default:
		return &DriverError{Call: CallSetVideoProperty, Code: StatusPropertyItemNotAvailable}
	}
	return nil
}

func (s *Simulator) VideoFormatCount(h Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.grabber(CallGetVideoFormatCount, h); err != nil {
		return 0
	}
	return len(s.formats)
}

func (s *Simulator) VideoFormat(h Handle, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.grabber(CallGetVideoFormat, h); err != nil {
		return "", err
	}
	if index < 0 || index >= len(s.formats) {
		return "", &DriverError{Call: CallGetVideoFormat, Code: StatusNotAvailable}
	}
	return s.formats[index], nil
}

func (s *Simulator) SetVideoFormat(h Handle, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallSetVideoFormat, h)
	if err != nil {
		return err
	}
	for i, f := range s.formats {
		if f == name {
			g.videoFormat = i
			g.frame = nil
			return nil
		}
	}
	return &DriverError{Call: CallSetVideoFormat, Code: StatusError}
}

func (s *Simulator) ImageDescription(h Handle) (ImageDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallGetImageDescription, h)
	if err != nil {
		return ImageDescription{}, err
	}
	return s.describe(g), nil
}

// describe derives the image description. Must be called with s.mu held.
func (s *Simulator) describe(g *simGrabber) ImageDescription {
	var width, height int32
	fmt.Sscanf(formatSize(s.formats[g.videoFormat]), "%dx%d", &width, &height)
	bits := int32(8)
	switch g.sinkFormat {
	case ColorFormatY16:
		bits = 16
	case ColorFormatRGB24:
		bits = 24
	case ColorFormatRGB32:
		bits = 32
	case ColorFormatUYVY:
		bits = 16
	}
	return ImageDescription{Width: width, Height: height, BitsPerPixel: bits, ColorFormat: g.sinkFormat}
}

// formatSize extracts "WxH" from a name like "Y16 (640x480)"
func formatSize(name string) string {
	start, end := -1, -1
	for i, r := range name {
		switch r {
		case '(':
			start = i + 1
		case ')':
			end = i
		}
	}
	if start < 0 || end <= start {
		return ""
	}
	return name[start:end]
}

func (s *Simulator) IsTriggerAvailable(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.grabber(CallIsTriggerAvailable, h); err != nil {
		return err
	}
	if !s.triggerAvailable {
		return &DriverError{Call: CallIsTriggerAvailable, Code: StatusNotAvailable}
	}
	return nil
}

func (s *Simulator) EnableTrigger(h Handle, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallEnableTrigger, h)
	if err != nil {
		return err
	}
	g.trigger = enable
	return nil
}

func (s *Simulator) SoftwareTrigger(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallSoftwareTrigger, h)
	if err != nil {
		return err
	}
	if !g.live {
		return &DriverError{Call: CallSoftwareTrigger, Code: StatusError}
	}
	g.pending++
	return nil
}

func (s *Simulator) SnapImage(h Handle, timeoutMS int) error {
	s.mu.Lock()
	if hold := s.snapHold; hold != nil {
		s.heldSnaps++
		s.mu.Unlock()
		<-hold
		s.mu.Lock()
		s.heldSnaps--
	}
	defer s.mu.Unlock()
	g, err := s.grabber(CallSnapImage, h)
	if err != nil {
		return err
	}
	if !g.live {
		return &DriverError{Call: CallSnapImage, Code: StatusError}
	}
	if s.snapTimeouts > 0 {
		s.snapTimeouts--
		return &DriverError{Call: CallSnapImage, Code: StatusError}
	}
	if g.trigger {
		if g.pending == 0 {
			return &DriverError{Call: CallSnapImage, Code: StatusError}
		}
		g.pending--
	}
	g.seq++
	g.frame = s.synthesize(g)
	return nil
}

// synthesize renders a gradient whose level follows exposure and gain.
// Must be called with s.mu held.
func (s *Simulator) synthesize(g *simGrabber) []byte {
	desc := s.describe(g)
	w, h := int(desc.Width), int(desc.Height)
	bpp := int((desc.BitsPerPixel + 7) / 8)
	buf := make([]byte, w*h*bpp)
	if bpp != 2 {
		for i := range buf {
			buf[i] = byte(1 + (i+int(g.seq))%254)
		}
		return buf
	}

	level := float64(g.exposure) * float64(g.gain) * 1e3
	base := uint16(math.Min(level, 32000)) + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := base + uint16((x+y+int(g.seq))%4096)
			binary.LittleEndian.PutUint16(buf[2*(y*w+x):], v)
		}
	}
	return buf
}

func (s *Simulator) CopyImage(h Handle, dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.grabber(CallGetImagePtr, h)
	if err != nil {
		return err
	}
	if g.frame == nil || len(dst) > len(g.frame) {
		return &DriverError{Call: CallGetImagePtr, Code: StatusNotAvailable}
	}
	copy(dst, g.frame)
	return nil
}
