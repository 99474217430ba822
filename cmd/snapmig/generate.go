package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/snapmig/internal/cli"
	"github.com/pthm/snapmig/internal/dialect"
	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/generator"
	"github.com/pthm/snapmig/pkg/migrator"
)

var (
	genProject         string
	genDir             string
	genPackage         string
	genTypes           string
	genVersion         string
	genDescription     string
	genExport          string
	genWidth           int
	genForce           bool
	genNoAutoIncrement bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [object[,object...] | @]",
	Short: "Generate migrations from the live schema",
	Long: `Generate one migration per schema object into a new version directory.

With no argument or "@", every object in the schema is captured, optionally
restricted with --types. Explicit names are captured regardless of --types.

The version is, in order of precedence: a timestamp when --description is
given, --version when given, or the next minor version after the greatest
existing one (1.0.0 when there is none).`,
	Example: `  # Capture every object
  snapmig generate

  # Capture tables with their data
  snapmig generate @ --types table --export oncreate

  # Capture two objects into an explicit version
  snapmig generate users,orders --version 2.1.0

  # Timestamped version with a description
  snapmig generate active_users -d "rework active users view"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		object := migrator.AllObjects
		if len(args) == 1 {
			object = args[0]
		}

		exportMode, err := generator.ParseExportMode(resolveString(genExport, cfg.Generate.Export))
		if err != nil {
			return cli.ConfigError("invalid --export", err)
		}
		types, err := catalog.ParseTypeList(resolveString(genTypes, cfg.Generate.Types))
		if err != nil {
			return cli.ConfigError("invalid --types", err)
		}

		opts := migrator.Options{
			MigrationsDir:      cfg.ResolveMigrationsDir(genProject, genDir),
			ObjectName:         object,
			Types:              types,
			Version:            genVersion,
			Description:        genDescription,
			Force:              resolveBool(genForce, cfg.Generate.Force),
			NoAutoIncrement:    resolveBool(genNoAutoIncrement, cfg.Generate.NoAutoIncrement),
			Export:             exportMode,
			Package:            resolveString(genPackage, cfg.Migrations.Package),
			Width:              resolveInt(genWidth, cfg.Migrations.WrapWidth),
			DatabaseConfigured: cfg.Database.Configured(),
			Logger:             logger,
		}
		if !opts.DatabaseConfigured {
			return classify("generating migrations", migrator.ErrMissingDatabaseConfig)
		}

		d, err := dialect.Get(cfg.Database.Adapter)
		if err != nil {
			return cli.ConfigError("database configuration", err)
		}
		db, _, err := dialect.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = db.Close() }()

		schema := dialect.Schema(d, cfg.Database)
		logger.Info("inspecting schema", "adapter", d.Name(), "schema", schema, "dir", opts.MigrationsDir)

		res, err := migrator.Generate(cmd.Context(), d.NewSource(db, schema), schema, opts)
		if err != nil {
			return classify("generating migrations", err)
		}

		if !quiet {
			out := cmd.OutOrStdout()
			if res.WasWritten {
				fmt.Fprintf(out, "Version %s was successfully generated\n", res.Version)
			} else {
				fmt.Fprintln(out, "Nothing to generate. You should create DB tables or objects first.")
			}
		}
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genProject, "project", ".", "project directory used to locate the migrations directory")
	f.StringVar(&genDir, "dir", "", "migrations directory (default: migrations.dir, app/migrations, apps/migrations or migrations)")
	f.StringVar(&genPackage, "package", "", "package clause of generated sources")
	f.StringVar(&genTypes, "types", "", "comma-separated object types to capture with @ (table,view,function,procedure,trigger,event)")
	f.StringVar(&genVersion, "version", "", "explicit version, e.g. 1.2.0")
	f.StringVarP(&genDescription, "description", "d", "", "use a timestamped version with this description")
	f.StringVar(&genExport, "export", "", "snapshot table data: off, oncreate or always")
	f.IntVar(&genWidth, "width", 0, "maximum width of wrapped view lines")
	f.BoolVarP(&genForce, "force", "f", false, "write into an existing version directory")
	f.BoolVar(&genNoAutoIncrement, "no-auto-increment", false, "strip AUTO_INCREMENT=<n> from table definitions")
}

// classify maps run errors to exit codes.
func classify(msg string, err error) error {
	switch {
	case migrator.IsMissingDatabaseConfigErr(err):
		return cli.ConfigError(msg, err)
	case migrator.IsInvalidVersionErr(err), migrator.IsVersionExistsErr(err):
		return cli.VersionError(msg, err)
	case migrator.IsDirectoryUnwritableErr(err):
		return cli.OutputError(msg+" (check permissions on the migrations directory)", err)
	case migrator.IsIOErr(err):
		return cli.OutputError(msg, err)
	case migrator.IsObjectNotFoundErr(err), migrator.IsUnsupportedObjectTypeErr(err), migrator.IsPatternNotFoundErr(err):
		return cli.ObjectError(msg, err)
	default:
		return cli.GeneralError(msg, err)
	}
}
