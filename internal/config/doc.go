// Package config provides user configuration management for tiscam.
//
// This package manages a YAML-based configuration file that stores named
// settings profiles, metadata about cameras that have been opened, and
// application preferences (DLL directory, journal location, log level and the
// default profile). The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/tiscam/config.yaml or $HOME/.config/tiscam/config.yaml
//   - macOS: $HOME/.config/tiscam/config.yaml
//   - Windows: %LOCALAPPDATA%\tiscam\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = registry.SetProfile("dark", "long exposure, max gain", camera.Settings{
//	    ExposureUS: camera.Float(1_000_000),
//	    Gain:       camera.Float(383),
//	})
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
