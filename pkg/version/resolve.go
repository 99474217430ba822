package version

import (
	"strings"
	"time"
)

// Initial is the version used when no prior incremental version exists.
var Initial = Incremental{Major: 1}

// Resolver turns user intent plus the versions already on disk into a
// single Version. It performs no I/O.
type Resolver struct {
	// Now supplies the clock for timestamped versions. Defaults to time.Now.
	Now func() time.Time
}

// Resolve picks the version for one run:
//
//  1. A non-empty description yields Timestamped(now, description).
//  2. Otherwise a non-empty explicit version is parsed (ErrInvalidVersion
//     when malformed).
//  3. Otherwise the greatest incremental entry in existing is bumped by one
//     minor version, or Initial is returned when there is none.
//
// Entries of existing that are not incremental versions are ignored.
func (r *Resolver) Resolve(explicit, description string, existing []string) (Version, error) {
	if description != "" {
		return Timestamped{
			Micros:      r.now().UnixMicro(),
			Description: sanitizeDescription(description),
		}, nil
	}

	if explicit != "" {
		return Parse(explicit)
	}

	var parsed []Incremental
	for _, name := range existing {
		if !IsIncremental(name) {
			continue
		}
		v, err := Parse(name)
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
	}

	latest, ok := Max(parsed)
	if !ok {
		return Initial, nil
	}
	return latest.NextMinor(), nil
}

func (r *Resolver) now() time.Time {
	if r == nil || r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// sanitizeDescription keeps the description usable as part of a
// directory name: letters, digits, '-' and '_' pass through, anything
// else becomes '_'.
func sanitizeDescription(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
