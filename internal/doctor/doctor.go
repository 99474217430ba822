// Package doctor provides health checks for a snapmig project.
//
// The doctor command validates that generation can run: the database is
// configured and reachable, its schema has objects to capture, and the
// migrations directory is writable and holds well-formed versions.
//
// Example usage:
//
//	d := doctor.New(cfg.Database, "migrations")
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/pthm/snapmig/internal/cli"
	"github.com/pthm/snapmig/internal/dialect"
	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/version"
	"github.com/pthm/snapmig/pkg/writer"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Database", "Migrations").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on a snapmig project.
type Doctor struct {
	db            cli.DatabaseConfig
	migrationsDir string
}

// New creates a new Doctor instance.
func New(db cli.DatabaseConfig, migrationsDir string) *Doctor {
	return &Doctor{db: db, migrationsDir: migrationsDir}
}

// Run executes all health checks and returns a report. Check failures are
// recorded in the report; an error is returned only when a check itself
// could not run.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if db, dia := d.checkDatabase(ctx, report); db != nil {
		defer func() { _ = db.Close() }()
		if err := d.checkSchema(ctx, report, db, dia); err != nil {
			return nil, fmt.Errorf("checking schema objects: %w", err)
		}
	}
	d.checkMigrationsDir(report)

	return report, nil
}

// checkDatabase validates configuration and connectivity. It returns an
// open connection when both pass.
func (d *Doctor) checkDatabase(ctx context.Context, report *Report) (*sql.DB, dialect.Dialect) {
	if !d.db.Configured() {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "configured",
			Status:   StatusFail,
			Message:  "No database connection configured",
			FixHint:  "Set database.url (or database.host/name/user) in snapmig.yaml",
		})
		return nil, nil
	}

	if _, err := dialect.Get(d.db.Adapter); err != nil {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "adapter",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Unknown database adapter %q", d.db.Adapter),
			Details:  err.Error(),
			FixHint:  fmt.Sprintf("Set database.adapter to one of: %s", strings.Join(dialect.Names(), ", ")),
		})
		return nil, nil
	}

	report.AddCheck(CheckResult{
		Category: "Database",
		Name:     "configured",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Database configured (%s)", d.db.Adapter),
	})

	db, dia, err := dialect.Open(ctx, d.db)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "connect",
			Status:   StatusFail,
			Message:  "Cannot connect to database",
			Details:  err.Error(),
			FixHint:  "Check credentials and that the server is reachable",
		})
		return nil, nil
	}

	report.AddCheck(CheckResult{
		Category: "Database",
		Name:     "connect",
		Status:   StatusPass,
		Message:  "Connected to database",
	})
	return db, dia
}

// checkSchema counts the objects generate would capture.
func (d *Doctor) checkSchema(ctx context.Context, report *Report, db *sql.DB, dia dialect.Dialect) error {
	schema := dialect.Schema(dia, d.db)
	cat := catalog.New(dia.NewSource(db, schema), schema)

	objects, err := cat.ListObjects(ctx)
	if err != nil {
		return err
	}

	if len(objects) == 0 {
		report.AddCheck(CheckResult{
			Category: "Schema",
			Name:     "objects",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Schema %q has no objects", schema),
			FixHint:  "Create tables or other objects before running 'snapmig generate'",
		})
		return nil
	}

	counts := make(map[catalog.ObjectType]int)
	var unknown []string
	for _, o := range objects {
		counts[o.Type]++
		if !o.Type.Known() {
			unknown = append(unknown, fmt.Sprintf("%s (%s)", o.Name, o.Type))
		}
	}
	var parts []string
	for _, t := range catalog.AllTypes {
		if counts[t] > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", t.Lower(), counts[t]))
		}
	}

	report.AddCheck(CheckResult{
		Category: "Schema",
		Name:     "objects",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Schema %q has %d objects", schema, len(objects)),
		Details:  strings.Join(parts, "\n"),
	})

	if len(unknown) > 0 {
		report.AddCheck(CheckResult{
			Category: "Schema",
			Name:     "unsupported",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d objects have unsupported types", len(unknown)),
			Details:  strings.Join(unknown, "\n"),
			FixHint:  "Exclude them with --types or name objects explicitly",
		})
	}
	return nil
}

// checkMigrationsDir validates the output directory and existing versions.
func (d *Doctor) checkMigrationsDir(report *Report) {
	info, err := os.Stat(d.migrationsDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		report.AddCheck(CheckResult{
			Category: "Migrations",
			Name:     "directory",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Migrations directory %s does not exist", d.migrationsDir),
			Details:  "It will be created by the first generate or create run",
		})
		return
	case err != nil:
		report.AddCheck(CheckResult{
			Category: "Migrations",
			Name:     "directory",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Cannot inspect %s", d.migrationsDir),
			Details:  err.Error(),
		})
		return
	case !info.IsDir():
		report.AddCheck(CheckResult{
			Category: "Migrations",
			Name:     "directory",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%s is not a directory", d.migrationsDir),
			FixHint:  "Point migrations.dir at a directory",
		})
		return
	}

	probe, err := os.CreateTemp(d.migrationsDir, ".snapmig-doctor-*")
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Migrations",
			Name:     "writable",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Migrations directory %s is not writable", d.migrationsDir),
			Details:  err.Error(),
			FixHint:  "Fix the directory permissions",
		})
		return
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	report.AddCheck(CheckResult{
		Category: "Migrations",
		Name:     "writable",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Migrations directory %s is writable", d.migrationsDir),
	})

	d.checkVersions(report)
}

func (d *Doctor) checkVersions(report *Report) {
	names, err := writer.ScanVersions(d.migrationsDir)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Migrations",
			Name:     "versions",
			Status:   StatusFail,
			Message:  "Cannot list versions",
			Details:  err.Error(),
		})
		return
	}

	var other []string
	for _, n := range names {
		if !version.IsIncremental(n) && !isTimestamped(n) {
			other = append(other, n)
		}
	}

	var r version.Resolver
	next, err := r.Resolve("", "", names)
	if err != nil {
		return
	}
	report.AddCheck(CheckResult{
		Category: "Migrations",
		Name:     "versions",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%d versions found, next incremental version is %s", len(names), next),
		Details:  strings.Join(names, "\n"),
	})

	if len(other) > 0 {
		report.AddCheck(CheckResult{
			Category: "Migrations",
			Name:     "non_incremental",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d directories are not recognised versions", len(other)),
			FixHint:  "Move unrelated directories out of the migrations root",
			Details:  strings.Join(other, "\n"),
		})
	}
}

// isTimestamped reports whether name looks like <micros> or
// <micros>_<description>.
func isTimestamped(name string) bool {
	digits, _, _ := strings.Cut(name, "_")
	if digits == "" {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
