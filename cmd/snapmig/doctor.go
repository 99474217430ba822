package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/snapmig/internal/cli"
	"github.com/pthm/snapmig/internal/doctor"
)

var (
	doctorProject string
	doctorDir     string
	doctorDetails bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Check the database configuration and connection, the schema objects available to capture, and the migrations directory.`,
	Example: `  # Run health checks
  snapmig doctor

  # Show details for every check
  snapmig doctor --details`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !quiet {
			fmt.Fprintln(out, "snapmig doctor - Health Check")
		}

		d := doctor.New(cfg.Database, cfg.ResolveMigrationsDir(doctorProject, doctorDir))
		report, err := d.Run(cmd.Context())
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}

		report.Print(out, doctorDetails || verbose > 0)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorProject, "project", ".", "project directory used to locate the migrations directory")
	f.StringVar(&doctorDir, "dir", "", "migrations directory")
	f.BoolVar(&doctorDetails, "details", false, "show detailed output")
}
