// Package reformat turns a raw "CREATE ..." definition, as returned by a
// database's show-definition facility, into an idempotent statement split
// into anchor lines and a wrapped body, ready to be embedded in generated
// source.
package reformat

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pthm/snapmig/pkg/catalog"
)

// ErrPatternNotFound is returned when a definition does not contain the
// "<TYPE> <name>" marker the rewrite anchors on.
var ErrPatternNotFound = errors.New("snapmig: definition pattern not found")

// DefaultWidth is the line width used by Wrap when none is configured.
const DefaultWidth = 70

// Options controls reformatting.
type Options struct {
	// Width caps wrapped view lines. Zero means DefaultWidth.
	Width int

	// NoAutoIncrement strips AUTO_INCREMENT=<n> table options so the
	// generated table starts its counter from scratch.
	NoAutoIncrement bool
}

// Statement is a reformatted definition. First and Last are the anchor
// lines; Body holds everything in between.
type Statement struct {
	First string
	Body  []string
	Last  string
}

// Lines returns the statement as a flat list of lines with empty anchors
// omitted.
func (s Statement) Lines() []string {
	lines := make([]string, 0, len(s.Body)+2)
	if s.First != "" {
		lines = append(lines, s.First)
	}
	lines = append(lines, s.Body...)
	if s.Last != "" {
		lines = append(lines, s.Last)
	}
	return lines
}

// String joins the statement's lines with newlines.
func (s Statement) String() string {
	return strings.Join(s.Lines(), "\n")
}

var (
	createTable   = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?`)
	autoIncrement = regexp.MustCompile(`(?i)\s+AUTO_INCREMENT\s*=\s*\d+`)
)

// Reformat rewrites raw into its idempotent form and splits it into lines.
//
// TABLE definitions gain IF NOT EXISTS. VIEW definitions become CREATE OR
// REPLACE VIEW and are re-wrapped at opts.Width. Routines, triggers and
// events are rebuilt from their "<TYPE> <name>" marker, dropping any
// DEFINER or similar clause in front of it.
func Reformat(t catalog.ObjectType, name, raw string, opts Options) (Statement, error) {
	sql, err := rewrite(t, name, raw, opts)
	if err != nil {
		return Statement{}, err
	}

	var lines []string
	if t == catalog.TypeView {
		lines = Wrap(sql, opts.Width)
	} else {
		lines = strings.Split(sql, "\n")
		for i := range lines {
			lines[i] = strings.TrimSpace(lines[i])
		}
	}

	return anchor(lines), nil
}

// rewrite applies the per-type idempotency rewrite.
func rewrite(t catalog.ObjectType, name, raw string, opts Options) (string, error) {
	switch t {
	case catalog.TypeTable:
		sql := raw
		if loc := createTable.FindStringIndex(sql); loc != nil {
			sql = sql[:loc[0]] + "CREATE TABLE IF NOT EXISTS " + sql[loc[1]:]
		}
		if opts.NoAutoIncrement {
			sql = autoIncrement.ReplaceAllString(sql, "")
		}
		return sql, nil

	case catalog.TypeView:
		loc := marker("VIEW", name).FindStringIndex(raw)
		if loc == nil {
			return "", fmt.Errorf("%w: VIEW %s", ErrPatternNotFound, name)
		}
		return "CREATE OR REPLACE " + raw[loc[0]:], nil

	case catalog.TypeFunction, catalog.TypeProcedure, catalog.TypeTrigger, catalog.TypeEvent:
		loc := marker(string(t), name).FindStringIndex(raw)
		if loc == nil {
			return "", fmt.Errorf("%w: %s %s", ErrPatternNotFound, t, name)
		}
		return "CREATE " + raw[loc[0]:], nil

	default:
		return "", fmt.Errorf("%w: %q", catalog.ErrInvalidObjectType, string(t))
	}
}

// marker matches "<keyword> <name>" where the name may be quoted with
// backticks or double quotes and may carry a schema qualifier.
func marker(keyword, name string) *regexp.Regexp {
	const q = "[`\"]?"
	qualifier := "(?:" + q + "[^\\s`\".(]+" + q + "\\.)?"
	return regexp.MustCompile(`(?i)\b` + keyword + `\s+` + qualifier + q + regexp.QuoteMeta(name) + "(?:[`\"]|\\b|$)")
}

// anchor pops the first and last lines off lines.
func anchor(lines []string) Statement {
	var st Statement
	if len(lines) == 0 {
		return st
	}
	st.First, lines = lines[0], lines[1:]
	if len(lines) == 0 {
		return st
	}
	st.Last, lines = lines[len(lines)-1], lines[:len(lines)-1]
	st.Body = lines
	return st
}
