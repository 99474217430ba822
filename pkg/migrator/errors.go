package migrator

import (
	"errors"

	"github.com/pthm/snapmig/pkg/catalog"
	"github.com/pthm/snapmig/pkg/generator"
	"github.com/pthm/snapmig/pkg/reformat"
	"github.com/pthm/snapmig/pkg/version"
	"github.com/pthm/snapmig/pkg/writer"
)

// Sentinel errors for generation runs. Errors owned by the lower-level
// packages are re-exported here so callers only need this package.
//
// Use the Is*Err helpers to map failures to user-facing messages.
var (
	// ErrMissingDatabaseConfig is returned by Generate when no database
	// connection was configured. It is checked before anything is written.
	ErrMissingDatabaseConfig = errors.New("snapmig: database is not configured")

	// ErrObjectNameRequired is returned by Create without explicit object
	// names; skeletons cannot be created for "@".
	ErrObjectNameRequired = errors.New("snapmig: object name required")

	ErrInvalidVersion        = version.ErrInvalidVersion
	ErrVersionExists         = writer.ErrVersionExists
	ErrDirectoryUnwritable   = writer.ErrDirectoryUnwritable
	ErrIO                    = writer.ErrIO
	ErrObjectNotFound        = catalog.ErrObjectNotFound
	ErrInvalidObjectType     = catalog.ErrInvalidObjectType
	ErrUnsupportedObjectType = generator.ErrUnsupportedObjectType
	ErrInvalidExportMode     = generator.ErrInvalidExportMode
	ErrPatternNotFound       = reformat.ErrPatternNotFound
)

// IsMissingDatabaseConfigErr returns true if err is or wraps ErrMissingDatabaseConfig.
func IsMissingDatabaseConfigErr(err error) bool {
	return errors.Is(err, ErrMissingDatabaseConfig)
}

// IsInvalidVersionErr returns true if err is or wraps ErrInvalidVersion.
func IsInvalidVersionErr(err error) bool {
	return errors.Is(err, ErrInvalidVersion)
}

// IsVersionExistsErr returns true if err is or wraps ErrVersionExists.
func IsVersionExistsErr(err error) bool {
	return errors.Is(err, ErrVersionExists)
}

// IsDirectoryUnwritableErr returns true if err is or wraps ErrDirectoryUnwritable.
func IsDirectoryUnwritableErr(err error) bool {
	return errors.Is(err, ErrDirectoryUnwritable)
}

// IsIOErr returns true if err is or wraps ErrIO.
func IsIOErr(err error) bool {
	return errors.Is(err, ErrIO)
}

// IsObjectNotFoundErr returns true if err is or wraps ErrObjectNotFound.
func IsObjectNotFoundErr(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsUnsupportedObjectTypeErr returns true if err is or wraps ErrUnsupportedObjectType.
func IsUnsupportedObjectTypeErr(err error) bool {
	return errors.Is(err, ErrUnsupportedObjectType)
}

// IsPatternNotFoundErr returns true if err is or wraps ErrPatternNotFound.
func IsPatternNotFoundErr(err error) bool {
	return errors.Is(err, ErrPatternNotFound)
}
