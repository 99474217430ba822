// Package writer lays out generated migrations on disk: one directory per
// version under the migrations root, one source file per object and an
// optional data snapshot next to it.
package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pthm/snapmig/pkg/snapshot"
	"github.com/pthm/snapmig/pkg/version"
)

// Sentinel errors for migration output.
var (
	// ErrVersionExists is returned when the target version directory
	// already exists and overwriting was not requested.
	ErrVersionExists = errors.New("snapmig: version already exists")

	// ErrDirectoryUnwritable is returned when a directory cannot be
	// created for lack of permission.
	ErrDirectoryUnwritable = errors.New("snapmig: directory is not writable")

	// ErrIO is shared with the snapshot exporter.
	ErrIO = snapshot.ErrIO
)

const (
	// SourceExt is the extension of generated migration sources.
	SourceExt = ".go"

	// SnapshotExt is the extension of table data snapshots.
	SnapshotExt = ".dat"
)

// EnsureDirectory creates path and any missing parents. It is a no-op when
// path already exists.
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrDirectoryUnwritable, path)
		}
		return fmt.Errorf("%w: creating %s: %w", ErrIO, path, err)
	}
	return nil
}

// ResolveVersionPath returns root/<v>, creating it when missing. An
// existing directory is reused only when force is set. For incremental
// versions any directory naming the same version counts as existing, so
// "2.0" is found when v is 2.0.0.
func ResolveVersionPath(root string, v version.Version, force bool) (string, error) {
	path, err := versionDir(root, v)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s is not a directory", ErrIO, path)
		}
		if !force {
			return "", fmt.Errorf("%w: %s (use --force to overwrite)", ErrVersionExists, v)
		}
		return path, nil
	case errors.Is(err, fs.ErrNotExist):
		if err := EnsureDirectory(path); err != nil {
			return "", err
		}
		return path, nil
	case errors.Is(err, fs.ErrPermission):
		return "", fmt.Errorf("%w: %s", ErrDirectoryUnwritable, path)
	default:
		return "", fmt.Errorf("%w: inspecting %s: %w", ErrIO, path, err)
	}
}

// versionDir returns the directory for v under root. The canonical name is
// preferred; otherwise an existing directory whose name parses to the same
// incremental version is returned.
func versionDir(root string, v version.Version) (string, error) {
	canonical := filepath.Join(root, v.String())
	inc, ok := v.(version.Incremental)
	if !ok {
		return canonical, nil
	}
	if _, err := os.Stat(canonical); err == nil {
		return canonical, nil
	}

	names, err := ScanVersions(root)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if !version.IsIncremental(name) {
			continue
		}
		if other, err := version.Parse(name); err == nil && other == inc {
			return filepath.Join(root, name), nil
		}
	}
	return canonical, nil
}

// WriteUnit writes src to dir/<objectName>.go and reports whether any bytes
// were written.
func WriteUnit(dir, objectName string, src []byte) (bool, error) {
	path := SourcePath(dir, objectName)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return false, fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	return len(src) > 0, nil
}

// SourcePath returns the path of the generated source for objectName.
func SourcePath(dir, objectName string) string {
	return filepath.Join(dir, fileName(objectName)+SourceExt)
}

// SnapshotPath returns the path of the data snapshot for objectName.
func SnapshotPath(dir, objectName string) string {
	return filepath.Join(dir, fileName(objectName)+SnapshotExt)
}

// fileName keeps object names from escaping the version directory.
func fileName(objectName string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(objectName)
}

// ScanVersions returns the names of the subdirectories of root, sorted.
// A missing root yields no versions.
func ScanVersions(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, root, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
