// Package main provides the snapmig CLI.
//
// The CLI supports:
//   - generate: Capture live schema objects into a new migration version
//   - create: Write empty migration skeletons for hand-written changes
//   - doctor: Run health checks on configuration, database and output
//   - config show: Print the effective configuration
//   - version: Print version information
//
// Usage:
//
//	snapmig [flags] <command>
//
// generate and doctor need a database section in snapmig.yaml (or the
// SNAPMIG_DATABASE_* environment variables). create never connects.
package main

import (
	_ "github.com/pthm/snapmig/internal/dialect/mysql"
	_ "github.com/pthm/snapmig/internal/dialect/postgres"
	_ "github.com/pthm/snapmig/internal/dialect/sqlite"
)

func main() {
	Execute()
}
