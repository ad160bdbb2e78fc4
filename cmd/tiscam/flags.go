package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/grabber"
	"github.com/muurk/tiscam/internal/logging"
)

// Settings flags shared by apply, record and profile save
var (
	exposureFlag float64
	gainFlag     float64
	formatFlag   string
	triggerFlag  bool
	timeoutFlag  int
	framesFlag   int
	profileFlag  string
)

// addSettingsFlags registers the settings flags on cmd
func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&exposureFlag, "exposure", 0, "Exposure time in µs (100 - 1600000)")
	cmd.Flags().Float64Var(&gainFlag, "gain", 0, "Gain (device range, 100 - 383 on a DMK 33UJ003)")
	cmd.Flags().StringVar(&formatFlag, "format", "", `Video format, e.g. "Y16 (1920x1080)" (see 'tiscam formats')`)
	cmd.Flags().BoolVar(&triggerFlag, "trigger", camera.DefaultTrigger, "Enable the trigger (frames wait for a software or hardware trigger)")
	cmd.Flags().IntVar(&timeoutFlag, "timeout", camera.DefaultTimeoutMS, "Snap timeout in ms, added to the exposure time (-1 = block)")
	cmd.Flags().IntVar(&framesFlag, "frames", camera.DefaultNumImages, "Number of frames per recording")
}

// addProfileFlag registers --profile on cmd
func addProfileFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&profileFlag, "profile", "", "Settings profile to start from (default: preferences.default_profile)")
}

// settingsFromFlags returns a settings update holding only the flags the
// user actually set
func settingsFromFlags(cmd *cobra.Command) camera.Settings {
	var s camera.Settings
	flags := cmd.Flags()
	if flags.Changed("frames") {
		s.NumImages = camera.Int(framesFlag)
	}
	if flags.Changed("exposure") {
		s.ExposureUS = camera.Float(exposureFlag)
	}
	if flags.Changed("gain") {
		s.Gain = camera.Float(gainFlag)
	}
	if flags.Changed("format") {
		s.VideoFormat = camera.String(formatFlag)
	}
	if flags.Changed("trigger") {
		s.TriggerEnable = camera.Bool(triggerFlag)
	}
	if flags.Changed("timeout") {
		s.TimeoutMS = camera.Int(timeoutFlag)
	}
	return s
}

// resolveSettings merges the flags over the selected (or default) profile
func resolveSettings(cmd *cobra.Command) (camera.Settings, error) {
	base, err := registry.ResolveSettings(profileFlag)
	if err != nil {
		return camera.Settings{}, err
	}
	return base.Merge(settingsFromFlags(cmd)), nil
}

// settingsParams renders a settings update for a command header
func settingsParams(s camera.Settings) map[string]string {
	params := make(map[string]string)
	if s.NumImages != nil {
		params["Frames"] = fmt.Sprintf("%d", *s.NumImages)
	}
	if s.ExposureUS != nil {
		params["Exposure"] = fmt.Sprintf("%g µs", *s.ExposureUS)
	}
	if s.Gain != nil {
		params["Gain"] = fmt.Sprintf("%g", *s.Gain)
	}
	if s.VideoFormat != nil {
		params["Format"] = *s.VideoFormat
	}
	if s.TriggerEnable != nil {
		params["Trigger"] = fmt.Sprintf("%t", *s.TriggerEnable)
	}
	if s.TimeoutMS != nil {
		params["Timeout"] = camera.FormatTimeout(*s.TimeoutMS)
	}
	if simulate {
		params["Camera"] = "simulated"
	}
	return params
}

// estimateAcquisition is the time spent exposing frames alone
func estimateAcquisition(frames, exposureUS int) time.Duration {
	return time.Duration(frames) * time.Duration(exposureUS) * time.Microsecond
}

type longAction int

const (
	longSilent   longAction = iota // short enough to start right away
	longAsk                        // confirm on the terminal first
	longAnnounce                   // cannot or need not ask; print the estimate
)

// longAcquisitionAction decides what record does before an acquisition
// whose exposure estimate is known.
func longAcquisitionAction(estimate time.Duration, assumeYes, interactive bool) longAction {
	switch {
	case estimate <= longAcquisition:
		return longSilent
	case assumeYes || !interactive:
		return longAnnounce
	default:
		return longAsk
	}
}

// openDriver returns the vendor library or a simulator
func openDriver() (grabber.Driver, error) {
	if simulate {
		logging.Debug("Using simulated camera")
		return grabber.NewSimulator(), nil
	}
	drv, err := grabber.Open(dllDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor library: %w", err)
	}
	return drv, nil
}

// openCamera opens the camera with initial settings. The returned close
// function records the final settings in the config registry.
func openCamera(initial camera.Settings) (*camera.Camera, func(), error) {
	drv, err := openDriver()
	if err != nil {
		return nil, nil, err
	}

	cam, err := camera.Open(drv, camera.Options{Initial: initial})
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		info := cam.Info()
		registry.UpdateCameraLastSeen(info.DeviceName, info.Settings())
		if err := registry.Save(); err != nil {
			logging.Warn("Failed to save camera metadata", zap.Error(err))
		}
		if err := cam.Close(); err != nil {
			logging.Warn("Failed to close camera", zap.Error(err))
		}
	}
	return cam, closeFn, nil
}
