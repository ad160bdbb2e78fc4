// Package logging provides structured logging for tiscam.
//
// This package wraps a zap logger with convenience functions used by the
// camera adaptor, the preview server and the CLI. Logging is silent unless a
// level is passed on the command line or TISCAM_LOG_LEVEL is set.
//
// # Log Levels
//
//   - Debug: every driver write and readback, image parameters, websocket frames
//   - Info: open/close, settings applied, acquisitions, HTTP requests
//   - Warn: failed acquisitions, rollbacks, dropped preview clients
//
// # Structured Logging
//
// Camera log entries carry the adaptor name:
//
//	log := logging.GetLogger().With(zap.String("camera", "tis_DMK_33UJ003"))
//	log.Info("Settings applied", zap.Int("exposure_us", 100))
//
// # Configuration
//
// Console output goes to stderr. Initialize logging at startup, optionally
// with a rotating JSON log file (lumberjack):
//
//	if err := logging.InitializeWithFile("debug", logging.FileOptions{Path: "tiscam.log"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// must be called before other goroutines log.
package logging
