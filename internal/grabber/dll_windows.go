//go:build windows

package grabber

import (
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

// dllDriver calls tisgrabber_x64.dll through lazily resolved procedures.
type dllDriver struct {
	dll   *windows.LazyDLL
	procs map[string]*windows.LazyProc
}

// Open loads the vendor library from dir (the working directory when empty).
// The companion TIS_UDSHL10_x64.dll must live in the same directory.
func Open(dir string) (Driver, error) {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dll directory: %w", err)
		}
		if err := windows.SetDllDirectory(abs); err != nil {
			return nil, fmt.Errorf("failed to set dll directory %s: %w", abs, err)
		}
		dir = abs
	}

	path := LibraryName + ".dll"
	if dir != "" {
		path = filepath.Join(dir, path)
	}

	dll := windows.NewLazyDLL(path)
	if err := dll.Load(); err != nil {
		return nil, fmt.Errorf("failed to load %s (is %s.dll next to it?): %w", path, CompanionLibrary, err)
	}

	d := &dllDriver{dll: dll, procs: make(map[string]*windows.LazyProc)}
	for _, name := range []string{
		CallInitLibrary, CallGetDeviceCount, CallGetUniqueName, CallCreateGrabber,
		CallReleaseGrabber, CallOpenByUniqueName, CallIsDevValid, CallStartLive,
		CallStopLive, CallRemoveOverlay, CallGetFormat, CallSetFormat,
		CallGetAutoCameraProperty, CallEnableAutoCameraProperty, CallGetExpAbsValRange,
		CallGetExpAbsVal, CallSetExpAbsVal, CallGetAutoVideoProperty,
		CallEnableAutoVideoProperty, CallVideoPropertyGetRange, CallGetVideoProperty,
		CallSetVideoProperty, CallGetVideoFormatCount, CallGetVideoFormat,
		CallSetVideoFormat, CallGetImageDescription, CallIsTriggerAvailable,
		CallEnableTrigger, CallSoftwareTrigger, CallSnapImage, CallGetImagePtr,
	} {
		proc := dll.NewProc(name)
		if err := proc.Find(); err != nil {
			return nil, fmt.Errorf("%s does not export %s: %w", path, name, err)
		}
		d.procs[name] = proc
	}
	return d, nil
}

// call invokes a procedure and returns its raw result register. Pointer
// arguments converted to uintptr at the call site stay live until it returns.
//
//go:uintptrescapes
func (d *dllDriver) call(name string, args ...uintptr) uintptr {
	r1, _, _ := d.procs[name].Call(args...)
	return r1
}

// status invokes a procedure whose C return type is int status
//
//go:uintptrescapes
func (d *dllDriver) status(name string, args ...uintptr) error {
	return checkStatus(name, int(int32(d.call(name, args...))))
}

func boolArg(v bool) uintptr {
	if v {
		return 1
	}
	return 0
}

func cString(s string) (*byte, error) {
	return windows.BytePtrFromString(s)
}

func goString(r1 uintptr) string {
	if r1 == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(r1)))
}

func (d *dllDriver) InitLibrary() error {
	return d.status(CallInitLibrary, 0)
}

func (d *dllDriver) DeviceCount() int {
	return int(int32(d.call(CallGetDeviceCount)))
}

func (d *dllDriver) UniqueName(index int) (string, error) {
	name := goString(d.call(CallGetUniqueName, uintptr(index)))
	if name == "" {
		return "", &DriverError{Call: CallGetUniqueName, Code: StatusNoDevice}
	}
	return name, nil
}

func (d *dllDriver) CreateGrabber() (Handle, error) {
	h := d.call(CallCreateGrabber)
	if h == 0 {
		return 0, &DriverError{Call: CallCreateGrabber, Code: StatusNoHandle}
	}
	return Handle(h), nil
}

func (d *dllDriver) ReleaseGrabber(h Handle) {
	d.call(CallReleaseGrabber, uintptr(unsafe.Pointer(&h)))
}

func (d *dllDriver) OpenByUniqueName(h Handle, name string) error {
	p, err := cString(name)
	if err != nil {
		return err
	}
	err = d.status(CallOpenByUniqueName, uintptr(h), uintptr(unsafe.Pointer(p)))
	runtime.KeepAlive(p)
	return err
}

func (d *dllDriver) IsDevValid(h Handle) error {
	return d.status(CallIsDevValid, uintptr(h))
}

func (d *dllDriver) StartLive(h Handle, showWindow bool) error {
	return d.status(CallStartLive, uintptr(h), boolArg(showWindow))
}

func (d *dllDriver) StopLive(h Handle) {
	d.call(CallStopLive, uintptr(h))
}

func (d *dllDriver) RemoveOverlay(h Handle, enable bool) error {
	return d.status(CallRemoveOverlay, uintptr(h), boolArg(enable))
}

func (d *dllDriver) Format(h Handle) ColorFormat {
	return ColorFormat(int32(d.call(CallGetFormat, uintptr(h))))
}

func (d *dllDriver) SetFormat(h Handle, format ColorFormat) error {
	return d.status(CallSetFormat, uintptr(h), uintptr(format))
}

func (d *dllDriver) AutoCameraProperty(h Handle, p CameraProperty) (bool, error) {
	var on int32
	err := d.status(CallGetAutoCameraProperty, uintptr(h), uintptr(p), uintptr(unsafe.Pointer(&on)))
	return on != 0, err
}

func (d *dllDriver) EnableAutoCameraProperty(h Handle, p CameraProperty, enable bool) error {
	return d.status(CallEnableAutoCameraProperty, uintptr(h), uintptr(p), boolArg(enable))
}

func (d *dllDriver) ExposureRange(h Handle) (float32, float32, error) {
	var lo, hi float32
	err := d.status(CallGetExpAbsValRange, uintptr(h), uintptr(unsafe.Pointer(&lo)), uintptr(unsafe.Pointer(&hi)))
	return lo, hi, err
}

func (d *dllDriver) Exposure(h Handle) (float32, error) {
	var v float32
	err := d.status(CallGetExpAbsVal, uintptr(h), uintptr(unsafe.Pointer(&v)))
	return v, err
}

// SetExposure passes the float by its IEEE bits; the amd64 syscall path
// mirrors integer arguments into XMM0-3.
func (d *dllDriver) SetExposure(h Handle, seconds float32) error {
	return d.status(CallSetExpAbsVal, uintptr(h), uintptr(math.Float32bits(seconds)))
}

func (d *dllDriver) AutoVideoProperty(h Handle, p VideoProperty) (bool, error) {
	var on int32
	err := d.status(CallGetAutoVideoProperty, uintptr(h), uintptr(p), uintptr(unsafe.Pointer(&on)))
	return on != 0, err
}

func (d *dllDriver) EnableAutoVideoProperty(h Handle, p VideoProperty, enable bool) error {
	return d.status(CallEnableAutoVideoProperty, uintptr(h), uintptr(p), boolArg(enable))
}

// C long is 32 bits on windows
func (d *dllDriver) VideoPropertyRange(h Handle, p VideoProperty) (int32, int32, error) {
	var lo, hi int32
	err := d.status(CallVideoPropertyGetRange, uintptr(h), uintptr(p), uintptr(unsafe.Pointer(&lo)), uintptr(unsafe.Pointer(&hi)))
	return lo, hi, err
}

func (d *dllDriver) VideoProperty(h Handle, p VideoProperty) (int32, error) {
	var v int32
	err := d.status(CallGetVideoProperty, uintptr(h), uintptr(p), uintptr(unsafe.Pointer(&v)))
	return v, err
}

func (d *dllDriver) SetVideoProperty(h Handle, p VideoProperty, value int32) error {
	return d.status(CallSetVideoProperty, uintptr(h), uintptr(p), uintptr(uint32(value)))
}

func (d *dllDriver) VideoFormatCount(h Handle) int {
	return int(int32(d.call(CallGetVideoFormatCount, uintptr(h))))
}

func (d *dllDriver) VideoFormat(h Handle, index int) (string, error) {
	name := goString(d.call(CallGetVideoFormat, uintptr(h), uintptr(index)))
	if name == "" {
		return "", &DriverError{Call: CallGetVideoFormat, Code: StatusNotAvailable}
	}
	return name, nil
}

func (d *dllDriver) SetVideoFormat(h Handle, name string) error {
	p, err := cString(name)
	if err != nil {
		return err
	}
	err = d.status(CallSetVideoFormat, uintptr(h), uintptr(unsafe.Pointer(p)))
	runtime.KeepAlive(p)
	return err
}

func (d *dllDriver) ImageDescription(h Handle) (ImageDescription, error) {
	var width, height, bits, format int32
	err := d.status(CallGetImageDescription, uintptr(h),
		uintptr(unsafe.Pointer(&width)), uintptr(unsafe.Pointer(&height)),
		uintptr(unsafe.Pointer(&bits)), uintptr(unsafe.Pointer(&format)))
	return ImageDescription{
		Width:        width,
		Height:       height,
		BitsPerPixel: bits,
		ColorFormat:  ColorFormat(format),
	}, err
}

func (d *dllDriver) IsTriggerAvailable(h Handle) error {
	return d.status(CallIsTriggerAvailable, uintptr(h))
}

func (d *dllDriver) EnableTrigger(h Handle, enable bool) error {
	return d.status(CallEnableTrigger, uintptr(h), boolArg(enable))
}

func (d *dllDriver) SoftwareTrigger(h Handle) error {
	return d.status(CallSoftwareTrigger, uintptr(h))
}

func (d *dllDriver) SnapImage(h Handle, timeoutMS int) error {
	return d.status(CallSnapImage, uintptr(h), uintptr(int32(timeoutMS)))
}

// CopyImage copies len(dst) bytes out of the sink buffer.
func (d *dllDriver) CopyImage(h Handle, dst []byte) error {
	ptr := d.call(CallGetImagePtr, uintptr(h))
	if ptr == 0 {
		return &DriverError{Call: CallGetImagePtr, Code: StatusNotAvailable}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(dst))
	copy(dst, src)
	return nil
}
