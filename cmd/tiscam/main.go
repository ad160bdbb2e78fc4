// Tiscam drives an Imaging Source DMK 33UJ003 monochrome USB 3.0 camera.
//
// It opens the camera through the vendor tisgrabber library, applies and
// verifies acquisition settings, records 16-bit frames to TIFF, keeps a
// journal of acquisitions and can serve a live preview on the network.
//
// Usage:
//
//	tiscam [command] [flags]
//
// Every command accepts --simulate to run against an in-memory camera.
// See 'tiscam --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/config"
	"github.com/muurk/tiscam/internal/logging"
	"github.com/muurk/tiscam/internal/version"
)

// Global flags
var (
	simulate bool
	dllDir   string
	logLevel string
	logFile  string
)

// registry is loaded before every command runs
var registry *config.Registry

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tiscam",
	Short: "DMK 33UJ003 Camera Utility",
	Long: `Control an Imaging Source DMK 33UJ003 camera from the command line.

Open the camera, inspect and verify its settings, record 16-bit frames to
TIFF files and browse the acquisition journal. 'tiscam serve' publishes a
live preview over HTTP and WebSocket, and 'tiscam scan' finds running
preview servers on the network.

The vendor library (tisgrabber_x64.dll) is only available on Windows.
Use --simulate anywhere else.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	Example: `  # Show the camera configuration
  tiscam info

  # Record 10 frames at 5 ms exposure into ./run/frame_<n>.tif
  tiscam record --frames 10 --exposure 5000 --out run/frame

  # Serve a live preview on port 8080
  tiscam serve --port 8080`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use a simulated camera instead of the vendor library")
	rootCmd.PersistentFlags().StringVar(&dllDir, "dll-dir", "", "Directory holding tisgrabber_x64.dll (default: preference or DLL search path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent by default")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file (rotated)")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the config registry and initialises logging. Flags take
// precedence over preferences; TISCAM_LOG_LEVEL applies when neither is set.
func setup(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	registry = reg

	level := logLevel
	if level == "" {
		level = registry.Preferences.LogLevel
	}
	if err := logging.InitializeWithFile(level, logging.FileOptions{Path: logFile}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if dllDir == "" {
		dllDir = registry.Preferences.DLLDir
	}

	logging.Debug("Starting command",
		zap.String("command", cmd.CommandPath()),
		zap.String("version", version.Full()),
		zap.Bool("simulate", simulate),
	)
	return nil
}
