// Package version resolves and orders migration versions.
//
// Two kinds of version exist. Incremental versions are dot-separated
// numeric triples (1.2.0) compared component-wise. Timestamped versions
// pair a microsecond epoch with a human description and are used for
// semantically named, hand-authored migrations. A timestamped version
// always sorts after every incremental version.
//
// Both render to a string that is safe to use as a directory name.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when an explicit version string does not
// match the incremental version pattern.
var ErrInvalidVersion = errors.New("snapmig: invalid version")

// incrementalPattern is the accepted shape of an explicit version string.
var incrementalPattern = regexp.MustCompile(`^[a-z0-9](\.[a-z0-9]+)*$`)

// Version is a resolved migration version. It is implemented only by
// Incremental and Timestamped.
type Version interface {
	// String renders the version as a directory name.
	String() string

	isVersion()
}

// Incremental is a major.minor.patch version. Missing components are 0.
type Incremental struct {
	Major int
	Minor int
	Patch int
}

func (Incremental) isVersion() {}

// String renders the canonical three-component form.
func (v Incremental) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// NextMinor returns the version with minor incremented and patch reset.
func (v Incremental) NextMinor() Incremental {
	return Incremental{Major: v.Major, Minor: v.Minor + 1}
}

// Timestamped is a microsecond epoch plus a description.
type Timestamped struct {
	Micros      int64
	Description string
}

func (Timestamped) isVersion() {}

// String renders <micros>_<description>.
func (v Timestamped) String() string {
	if v.Description == "" {
		return strconv.FormatInt(v.Micros, 10)
	}
	return strconv.FormatInt(v.Micros, 10) + "_" + v.Description
}

// IsIncremental reports whether s has the shape of an incremental version.
func IsIncremental(s string) bool {
	return incrementalPattern.MatchString(s)
}

// Parse parses an incremental version string such as "1", "1.2" or
// "1.2.3". Each component contributes its leading digits (a component
// without digits counts as 0); components past the third are ignored.
func Parse(s string) (Incremental, error) {
	if !IsIncremental(s) {
		return Incremental{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var parts [3]int
	for i, p := range strings.Split(s, ".") {
		if i >= len(parts) {
			break
		}
		n, err := leadingInt(p)
		if err != nil {
			return Incremental{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
		}
		parts[i] = n
	}
	return Incremental{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

// leadingInt returns the integer formed by the leading digits of s.
func leadingInt(s string) (int, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, nil
	}
	return strconv.Atoi(s[:end])
}

// Compare returns -1, 0 or +1 ordering a before, equal to, or after b.
// Timestamped versions sort after all incremental versions.
func Compare(a, b Version) int {
	switch av := a.(type) {
	case Incremental:
		switch bv := b.(type) {
		case Incremental:
			return compareIncremental(av, bv)
		case Timestamped:
			return -1
		}
	case Timestamped:
		switch bv := b.(type) {
		case Incremental:
			return 1
		case Timestamped:
			switch {
			case av.Micros < bv.Micros:
				return -1
			case av.Micros > bv.Micros:
				return 1
			}
			return strings.Compare(av.Description, bv.Description)
		}
	}
	panic(fmt.Sprintf("version: unknown version types %T and %T", a, b))
}

func compareIncremental(a, b Incremental) int {
	for _, d := range [...]int{a.Major - b.Major, a.Minor - b.Minor, a.Patch - b.Patch} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

// Max returns the greatest of the given versions. It returns false for an
// empty slice.
func Max(versions []Incremental) (Incremental, bool) {
	if len(versions) == 0 {
		return Incremental{}, false
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if compareIncremental(v, best) > 0 {
			best = v
		}
	}
	return best, true
}

// Sanitize strips every non-alphanumeric character from the rendered
// version, producing a suffix usable in an identifier.
func Sanitize(v Version) string {
	s := v.String()
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}
