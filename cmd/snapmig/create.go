package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/snapmig/pkg/migrator"
)

var (
	createProject     string
	createDir         string
	createPackage     string
	createVersion     string
	createDescription string
	createForce       bool
)

var createCmd = &cobra.Command{
	Use:   "create <name[,name...]>",
	Short: "Create empty migrations",
	Long: `Create empty migration skeletons for hand-written changes.

No database connection is made. Versions are resolved the same way as for
generate.`,
	Example: `  # Next minor version
  snapmig create backfill_orders

  # Timestamped version
  snapmig create backfill_orders -d "backfill order totals"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := migrator.Create(migrator.Options{
			MigrationsDir: cfg.ResolveMigrationsDir(createProject, createDir),
			ObjectName:    args[0],
			Version:       createVersion,
			Description:   createDescription,
			Force:         createForce,
			Package:       resolveString(createPackage, cfg.Migrations.Package),
			Logger:        logger,
		})
		if err != nil {
			return classify("creating migrations", err)
		}

		if !quiet {
			out := cmd.OutOrStdout()
			if res.WasWritten {
				fmt.Fprintf(out, "Version %s was successfully created\n", res.Version)
			} else {
				fmt.Fprintln(out, "Nothing to create.")
			}
		}
		return nil
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createProject, "project", ".", "project directory used to locate the migrations directory")
	f.StringVar(&createDir, "dir", "", "migrations directory")
	f.StringVar(&createPackage, "package", "", "package clause of generated sources")
	f.StringVar(&createVersion, "version", "", "explicit version, e.g. 1.2.0")
	f.StringVarP(&createDescription, "description", "d", "", "use a timestamped version with this description")
	f.BoolVarP(&createForce, "force", "f", false, "write into an existing version directory")
}
