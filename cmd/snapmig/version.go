package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/snapmig/internal/buildinfo"
	"github.com/pthm/snapmig/internal/update"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, buildinfo.Info())
		if !versionCheck {
			return nil
		}

		info, err := update.CheckWithCache(cmd.Context())
		if err != nil {
			logger.Warn("update check failed", "error", err)
			return nil
		}
		if info.UpdateAvailable {
			fmt.Fprintf(out, "\nA newer version is available: %s (current: %s)\n", info.LatestVersion, info.CurrentVersion)
			if info.ReleaseURL != "" {
				fmt.Fprintln(out, info.ReleaseURL)
			}
		} else {
			fmt.Fprintln(out, "\nYou are running the latest version.")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
