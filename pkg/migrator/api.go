package migrator

import "context"

// Generate captures schema objects from a live database into a new
// migration version. This is the high-level API behind `snapmig generate`.
//
// The run:
//  1. Lists the schema's objects and selects opts.ObjectName (AllObjects
//     filtered by opts.Types, or an explicit comma-separated list)
//  2. Resolves the version (description, explicit, or next minor)
//  3. Creates <MigrationsDir>/<version>, failing if it exists unless Force
//  4. Writes one <object>.go per object, plus <table>.dat when Export asks
//     for table data
//
// Example:
//
//	res, err := migrator.Generate(ctx, src, "app", migrator.Options{
//	    MigrationsDir:      "migrations",
//	    ObjectName:         migrator.AllObjects,
//	    Types:              []catalog.ObjectType{catalog.TypeTable},
//	    Export:             generator.ExportOnCreate,
//	    DatabaseConfigured: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !res.WasWritten {
//	    fmt.Println("Nothing to generate.")
//	}
func Generate(ctx context.Context, src Source, schema string, opts Options) (Result, error) {
	return NewMigrator(src, schema, opts).Generate(ctx)
}

// Create writes empty migration skeletons for opts.ObjectName into a new
// version without connecting to a database. The generated Up and Down are
// left for the developer to fill in.
//
//	res, err := migrator.Create(migrator.Options{
//	    MigrationsDir: "migrations",
//	    ObjectName:    "backfill_orders",
//	    Description:   "backfill orders",
//	})
func Create(opts Options) (Result, error) {
	return NewMigrator(nil, "", opts).Create()
}
