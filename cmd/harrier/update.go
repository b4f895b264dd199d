package main

import (
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/charmbracelet/huh"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

const updateRepo = "blackcoderx/harrier"

var (
	updateCheckOnly bool
	updateYes       bool
)

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "report whether a newer release exists without installing it")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "install without asking for confirmation")
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update harrier to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		if version == "dev" {
			fmt.Fprintln(os.Stderr, "development builds cannot self-update; install a released binary first")
			return nil
		}
		current, err := semver.Parse(version)
		if err != nil {
			return fmt.Errorf("update: parse current version %q: %w", version, err)
		}

		latest, found, err := selfupdate.DetectLatest(updateRepo)
		if err != nil {
			return fmt.Errorf("update: detect latest release: %w", err)
		}
		if !found || latest.Version.LTE(current) {
			fmt.Printf("harrier %s is up to date\n", version)
			return nil
		}

		fmt.Printf("harrier %s -> %s\n", current, latest.Version)
		if latest.ReleaseNotes != "" {
			// Same markdown rendering path the run summary uses.
			fmt.Print(renderMarkdown(latest.ReleaseNotes))
		}
		if updateCheckOnly {
			return nil
		}

		if !updateYes {
			if !isInteractive() {
				return fmt.Errorf("update: refusing to install without --yes on a non-interactive terminal")
			}
			var confirmed bool
			prompt := huh.NewConfirm().
				Title(fmt.Sprintf("Install harrier %s?", latest.Version)).
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				return fmt.Errorf("update: %w", err)
			}
			if !confirmed {
				return nil
			}
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("update: locate executable: %w", err)
		}
		if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
			return fmt.Errorf("update: install %s: %w", latest.Version, err)
		}
		fmt.Printf("installed harrier %s\n", latest.Version)
		return nil
	},
}
