// Package camera is the device adaptor for The Imaging Source DMK 33UJ003
// USB 3.0 monochrome industrial camera.
//
// A Camera owns one grabber handle and one configuration record. Every
// setting written through ApplySettings is read back from the driver and a
// mismatch is reported as a verification error. Acquisition is synchronous:
// Record starts streaming, then for each frame sends an optional software
// trigger, snaps with a timeout and copies the 16-bit pixels into the
// caller's buffer, and finally stops streaming.
//
// # Lifecycle
//
//	closed ──Open──▶ idle ◀──▶ live (only while recording or switching format)
//	   ▲               │
//	   └────Close──────┘
//
// # Usage Example
//
//	drv, err := grabber.Open(dllDir)
//	if err != nil {
//	    return err
//	}
//	cam, err := camera.Open(drv, camera.Options{})
//	if err != nil {
//	    fmt.Println(camera.GetTroubleshootingHint(err))
//	    return err
//	}
//	defer cam.Close()
//
//	err = cam.ApplySettings(camera.Settings{
//	    NumImages:   camera.Int(3),
//	    ExposureUS:  camera.Float(100),
//	    VideoFormat: camera.String("Y16 (640x480)"),
//	})
//	frames, _, err := cam.RecordNew(ctx, camera.DefaultRecordOptions())
//
// # Safe Updates
//
// RollbackManager.SafeApply snapshots the record, applies and verifies new
// settings, and restores the snapshot if anything fails.
//
// # Thread Safety
//
// Camera is not safe for concurrent use. RollbackManager protects only its
// own snapshot list.
package camera
