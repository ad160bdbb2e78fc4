package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/export"
	"github.com/muurk/tiscam/internal/journal"
	"github.com/muurk/tiscam/internal/logging"
	"github.com/muurk/tiscam/internal/ui"
)

// longAcquisition is the exposure budget above which record asks first, or
// prints the estimate when it cannot ask
const longAcquisition = 10 * time.Second

// Command flags
var (
	outputFormat string
	saveProfile  string
	recordOut    string
	deflate      bool
	noJournal    bool
	noSoftTrig   bool
	verbose      bool
	assumeYes    bool
)

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(recordCmd)
}

// infoCmd opens the camera and prints its configuration record
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show camera configuration",
	Long: `Open the camera, apply the default settings (or a profile) and print
the resulting configuration record: device, image size, exposure and gain
ranges, trigger and timeout.`,
	Example: `  # Detailed view
  tiscam info

  # One block per line, for quick checks
  tiscam info --format compact

  # JSON output for scripting
  tiscam info --format json --profile dark`,
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
	addProfileFlag(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	initial, err := registry.ResolveSettings(profileFlag)
	if err != nil {
		return err
	}

	cam, closeFn, err := openCamera(initial)
	if err != nil {
		ui.PrintFailure("Could not open camera", err, ui.Troubleshooting(err))
		return err
	}
	defer closeFn()

	cfg := cam.Info()
	switch outputFormat {
	case "compact":
		fmt.Print(cfg.FormatCompact())
	case "json":
		out, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Println(out)
	case "detailed":
		fmt.Print(cfg.FormatDetailed())
	default:
		return fmt.Errorf("unknown format %q (use detailed, compact or json)", outputFormat)
	}
	return nil
}

// formatsCmd lists the video formats
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported video formats",
	Long: `List the 16-bit video formats that work on the DMK 33UJ003, with their
index in the device format list, followed by the formats the device
advertises but cannot deliver.`,
	RunE: runFormats,
}

func runFormats(cmd *cobra.Command, args []string) error {
	cam, closeFn, err := openCamera(camera.Settings{})
	if err != nil {
		ui.PrintFailure("Could not open camera", err, ui.Troubleshooting(err))
		return err
	}
	defer closeFn()

	table := camera.FormatVideoFormatTable(cam.DeviceVideoFormats())
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return ui.RenderOnce(table)
	}
	fmt.Print(table)
	return nil
}

// applyCmd applies and verifies settings with rollback
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply and verify camera settings",
	Long: `Apply settings to the camera, read every value back and roll back to
the previous settings when any write or read-back fails.

Settings come from --profile (or the default profile) with the flags
layered on top. Use --save-profile to store the verified result.`,
	Example: `  # Check that a 20 ms exposure at gain 200 is accepted
  tiscam apply --exposure 20000 --gain 200

  # Verify a profile and save a variant of it
  tiscam apply --profile dark --format "Y16 (1920x1080)" --save-profile dark-hd`,
	RunE: runApply,
}

func init() {
	addSettingsFlags(applyCmd)
	addProfileFlag(applyCmd)
	applyCmd.Flags().StringVar(&saveProfile, "save-profile", "", "Save the verified settings as this profile")
}

func runApply(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	if settings.IsEmpty() {
		return errors.New("nothing to apply: give settings flags or --profile")
	}

	ui.PrintCommandHeader("Apply Settings", "tiscam apply", settingsParams(settings))

	cam, closeFn, err := openCamera(camera.Settings{})
	if err != nil {
		ui.PrintFailure("Could not open camera", err, ui.Troubleshooting(err))
		return err
	}
	defer closeFn()

	before := cam.Info()
	result := camera.NewRollbackManager(cam).SafeApply(settings, "tiscam apply")
	if !result.Success {
		ui.PrintFailure("Settings not applied", result.Error, ui.Troubleshooting(result.Error))
		if result.RollbackAttempted {
			status := "previous settings restored"
			if !result.RollbackSucceeded {
				status = "rollback failed; reopen the camera"
			}
			ui.PrintWarning("Rollback", map[string]string{"Camera": status})
		}
		return result.Error
	}

	after := cam.Info()
	fmt.Println()
	fmt.Print(camera.FormatDiff(before, after))

	details := map[string]string{
		"Format":   after.VideoFormat,
		"Exposure": fmt.Sprintf("%d µs", after.ExposureUS),
		"Gain":     fmt.Sprintf("%d", after.Gain),
		"Trigger":  fmt.Sprintf("%t", after.TriggerEnabled),
		"Timeout":  camera.FormatTimeout(after.TimeoutMS),
	}
	if saveProfile != "" {
		if err := registry.SetProfile(saveProfile, "saved by tiscam apply", after.Settings()); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		details["Saved As"] = saveProfile
	}
	ui.PrintSuccess("Settings applied and verified", details)
	return nil
}

// recordCmd records frames
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record frames",
	Long: `Open the camera, apply settings and record frames. Each frame is
preceded by a software trigger unless --no-software-trigger is given, in
which case frames wait for a hardware trigger (or arrive freely when the
trigger is disabled).

With --out the frames are written as 16-bit TIFF files: <out>.tif for a
single frame, <out>_<n>.tif otherwise. Every recording, successful or not,
is added to the acquisition journal (see 'tiscam history').`,
	Example: `  # Record one frame with the default settings
  tiscam record --out dark

  # Ten frames at 5 ms, deflate-compressed, with per-frame statistics
  tiscam record --frames 10 --exposure 5000 --out run/frame --deflate -v

  # Wait for hardware triggers without a timeout
  tiscam record --frames 100 --timeout -1 --no-software-trigger`,
	RunE: runRecord,
}

func init() {
	addSettingsFlags(recordCmd)
	addProfileFlag(recordCmd)
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Write frames as TIFF to this base path")
	recordCmd.Flags().BoolVar(&deflate, "deflate", false, "Deflate-compress TIFF files")
	recordCmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not add the recording to the journal")
	recordCmd.Flags().BoolVar(&noSoftTrig, "no-software-trigger", false, "Do not send a software trigger before each frame")
	recordCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-frame statistics")
	recordCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before long recordings. The estimate is frames x exposure from flags or profile; without a terminal on stdin it is printed instead of asked")
}

func runRecord(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	numFrames := camera.DefaultNumImages
	if settings.NumImages != nil {
		numFrames = *settings.NumImages
	}
	exposureUS := 0
	if settings.ExposureUS != nil {
		exposureUS = int(*settings.ExposureUS)
	}
	estimate := estimateAcquisition(numFrames, exposureUS)
	switch longAcquisitionAction(estimate, assumeYes, term.IsTerminal(int(os.Stdin.Fd()))) {
	case longAsk:
		if !ui.ConfirmLongAcquisition(os.Stdin, os.Stdout, numFrames, exposureUS) {
			return nil
		}
		fallthrough
	case longAnnounce:
		logging.Info("Long acquisition",
			zap.Int("frames", numFrames),
			zap.Int("exposure_us", exposureUS),
			zap.Duration("estimate", estimate),
		)
		ui.PrintPleaseWait("Recording", "about "+estimate.Round(time.Second).String()+" of exposure")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	steps := []string{"Open camera", "Record frames"}
	if recordOut != "" {
		steps = append(steps, "Export TIFF")
	}
	if !noJournal {
		steps = append(steps, "Write journal")
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:      "Record",
		Command:    "tiscam record",
		Params:     settingsParams(settings),
		TotalSteps: len(steps),
		StepNames:  steps,
		Verbose:    verbose,
	})

	var closeFn func()
	defer func() {
		if closeFn != nil {
			closeFn()
		}
	}()

	_, err = runner.Run(ctx, func(onStep ui.StepCallback, onFrame func(done, total int)) (map[string]string, error) {
		step := 1
		onStep(step, "", ui.StepRunning, "")
		cam, closer, err := openCamera(settings)
		if err != nil {
			onStep(step, "", ui.StepFailed, "")
			return nil, err
		}
		closeFn = closer
		cfg := cam.Info()
		onStep(step, "", ui.StepComplete, cfg.VideoFormat)

		step++
		onStep(step, "", ui.StepRunning, "")
		opts := camera.DefaultRecordOptions()
		opts.SoftwareTrigger = !noSoftTrig
		opts.Progress = onFrame
		frames, res, recErr := cam.RecordNew(ctx, opts)

		recorded := 0
		var elapsed time.Duration
		if res != nil {
			recorded, elapsed = res.Frames, res.Duration
		}
		logging.LogAcquisition(cfg.Name, recorded, elapsed, recErr)

		entry := journal.NewEntry(cfg, frames, res, recErr)
		if recErr != nil {
			onStep(step, "", ui.StepFailed, fmt.Sprintf("%d/%d frames", recorded, cfg.NumImages))
			if !noJournal {
				if err := addJournalEntry(entry); err != nil {
					logging.Warn("Failed to journal failed recording", zap.Error(err))
				}
			}
			return nil, recErr
		}
		onStep(step, "", ui.StepComplete, fmt.Sprintf("%d frames", recorded))
		runner.SetFrameStats(ui.NewFrameStatsBox(frames, recorded))

		details := map[string]string{
			"Frames":   fmt.Sprintf("%d", recorded),
			"Format":   cfg.VideoFormat,
			"Exposure": fmt.Sprintf("%d µs", cfg.ExposureUS),
			"Gain":     fmt.Sprintf("%d", cfg.Gain),
			"Pixels":   fmt.Sprintf("%d - %d", entry.MinValue, entry.MaxValue),
		}
		if entry.BlankFrames > 0 {
			details["Blank Frames"] = fmt.Sprintf("%d", entry.BlankFrames)
		}

		if recordOut != "" {
			step++
			onStep(step, "", ui.StepRunning, "")
			paths, err := export.WriteFrames(recordOut, frames, export.Options{Deflate: deflate})
			if err != nil {
				onStep(step, "", ui.StepFailed, "")
				return details, err
			}
			onStep(step, "", ui.StepComplete, fmt.Sprintf("%d files", len(paths)))
			entry.Output = recordOut
			details["Output"] = paths[0]
			if len(paths) > 1 {
				details["Output"] = fmt.Sprintf("%s (+%d more)", paths[0], len(paths)-1)
			}
		}

		if !noJournal {
			step++
			onStep(step, "", ui.StepRunning, "")
			if err := addJournalEntry(entry); err != nil {
				// the frames are safe; only the journal row is missing
				onStep(step, "", ui.StepFailed, err.Error())
				logging.Warn("Failed to write journal entry", zap.Error(err))
			} else {
				onStep(step, "", ui.StepComplete, "")
			}
		}
		return details, nil
	})
	return err
}

// addJournalEntry appends e to the journal configured in the registry
func addJournalEntry(e journal.Entry) error {
	path, err := registry.JournalPath()
	if err != nil {
		return err
	}
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = j.Add(ctx, e)
	return err
}
