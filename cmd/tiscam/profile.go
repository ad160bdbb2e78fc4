package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/tiscam/internal/config"
	"github.com/muurk/tiscam/internal/journal"
	"github.com/muurk/tiscam/internal/ui"
)

var (
	profileDescription string
	historyLimit       int
	historyJSON        bool
)

func init() {
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(historyCmd)

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileDefaultCmd)

	addSettingsFlags(profileSaveCmd)
	profileSaveCmd.Flags().StringVarP(&profileDescription, "description", "d", "", "Profile description")
	profileDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output entries as JSON")
}

// profileCmd groups the settings profile commands
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage settings profiles",
	Long: `Settings profiles are named, partial settings stored in the config file.
A profile is the starting point of apply, record and info (--profile), and
the default profile is used when no --profile is given.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := registry.ProfileNames()
		if len(names) == 0 {
			fmt.Println("No profiles saved.")
			fmt.Println("Use 'tiscam profile save <name> --exposure ...' to create one")
			return nil
		}

		def := ""
		if registry.Preferences != nil {
			def = registry.Preferences.DefaultProfile
		}
		for _, name := range names {
			p := registry.GetProfile(name)
			marker := " "
			if name == def {
				marker = "*"
			}
			fmt.Printf("%s %-20s %s\n", marker, name, p.Description)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the settings of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := registry.GetProfile(args[0])
		if p == nil {
			return fmt.Errorf("profile %q not found", args[0])
		}
		fmt.Printf("%s\n", args[0])
		if p.Description != "" {
			fmt.Printf("  %s\n", p.Description)
		}
		if !p.UpdatedAt.IsZero() {
			fmt.Printf("  Updated: %s\n", p.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Println()
		fmt.Print(p.Settings.FormatChanges())
		return nil
	},
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save settings flags as a profile",
	Long: `Save the given settings flags as a profile, replacing any profile of the
same name. Values are checked against the static limits (supported video
formats, timeout) before saving; exposure and gain are checked against the
camera when the profile is applied.`,
	Example: `  tiscam profile save dark --exposure 1000000 --gain 383 --frames 10
  tiscam profile save preview --format "Y16 (640x480)" --trigger=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settingsFromFlags(cmd)
		if s.IsEmpty() {
			return errors.New("no settings given: use --exposure, --gain, --format, --trigger, --timeout or --frames")
		}
		if err := registry.SetProfile(args[0], profileDescription, s); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved profile %q\n", args[0])
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if registry.GetProfile(name) == nil {
			return fmt.Errorf("profile %q not found", name)
		}
		isDefault := registry.Preferences != nil && registry.Preferences.DefaultProfile == name
		if !assumeYes && term.IsTerminal(int(os.Stdin.Fd())) {
			if !ui.ConfirmProfileDelete(os.Stdin, os.Stdout, name, isDefault) {
				return nil
			}
		}
		if err := registry.DeleteProfile(name); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Deleted profile %q\n", name)
		return nil
	},
}

var profileDefaultCmd = &cobra.Command{
	Use:   "default [name]",
	Short: "Show or set the default profile",
	Long:  `Without an argument, print the default profile. Pass "" to clear it.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			if registry.Preferences == nil || registry.Preferences.DefaultProfile == "" {
				fmt.Println("No default profile set.")
				return nil
			}
			fmt.Println(registry.Preferences.DefaultProfile)
			return nil
		}

		name := args[0]
		if name != "" && registry.GetProfile(name) == nil {
			return fmt.Errorf("profile %q not found", name)
		}
		if registry.Preferences == nil {
			registry.Preferences = &config.Preferences{}
		}
		registry.Preferences.DefaultProfile = name
		if err := registry.Save(); err != nil {
			return err
		}
		if name == "" {
			fmt.Println("Cleared default profile")
		} else {
			fmt.Printf("Default profile is now %q\n", name)
		}
		return nil
	},
}

// historyCmd lists journalled recordings
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent recordings",
	Long: `List recordings from the acquisition journal, newest first. Each entry
holds the settings used, frame count, duration, pixel range, number of
blank frames and, for failed recordings, the error.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
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
	entries, err := j.List(ctx, historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No recordings yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Println(formatEntry(e))
	}
	return nil
}

// formatEntry renders one journal entry as a single line
func formatEntry(e journal.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d  %s  %-16s %3d frames  %8s",
		e.ID, e.RecordedAt.Local().Format("2006-01-02 15:04:05"), e.Camera, e.Frames,
		e.Duration.Round(time.Millisecond))
	if e.Settings.ExposureUS != nil {
		fmt.Fprintf(&b, "  %gµs", *e.Settings.ExposureUS)
	}
	if e.Frames > 0 {
		fmt.Fprintf(&b, "  [%d-%d]", e.MinValue, e.MaxValue)
	}
	if e.BlankFrames > 0 {
		fmt.Fprintf(&b, "  %d blank", e.BlankFrames)
	}
	if e.Output != "" {
		fmt.Fprintf(&b, "  -> %s", e.Output)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, "  FAILED: %s", e.Error)
	}
	return b.String()
}
