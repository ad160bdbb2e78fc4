// Package grabber binds the vendor "tisgrabber" library used to drive
// The Imaging Source USB3 industrial cameras.
//
// The package exposes a Driver interface whose methods map one-to-one onto
// the IC_* functions of the vendor library. It performs no verification or
// unit conversion of its own; that is the job of the camera package. Every
// library call that reports a status code is checked against the library's
// success value (1) and surfaced as a *DriverError otherwise.
//
// # Implementations
//
//   - Windows: Open loads tisgrabber_x64.dll (and its companion
//     TIS_UDSHL10_x64.dll) through golang.org/x/sys/windows.
//   - Other platforms: Open returns ErrUnsupportedPlatform.
//   - Simulator: an in-memory DMK 33UJ003 for tests and --simulate runs,
//     with fault injection for status codes, readback drift and snap
//     timeouts.
//
// # Usage Example
//
//	drv, err := grabber.Open("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := drv.InitLibrary(); err != nil {
//	    log.Fatal(err)
//	}
//	name, _ := drv.UniqueName(0)
//	h, _ := drv.CreateGrabber()
//	defer drv.ReleaseGrabber(h)
//	_ = drv.OpenByUniqueName(h, name)
//
// # Thread Safety
//
// The vendor library is not safe for concurrent use on one grabber handle.
// Callers must serialise access; the Simulator is internally locked.
package grabber
