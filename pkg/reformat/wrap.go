package reformat

import (
	"regexp"
	"strings"
)

// clause is a SQL keyword that starts a new line in the tail of a wrapped
// view definition.
type clause struct {
	word string
	re   *regexp.Regexp
}

func newClause(word string) clause {
	return clause{word: word, re: regexp.MustCompile(`(?i) ` + word + ` `)}
}

// clauses are applied in this order to the final accumulated line.
var clauses = []clause{
	newClause("FROM"),
	newClause("WHERE"),
	newClause("GROUP BY"),
	newClause("HAVING"),
	newClause("ORDER BY"),
	newClause("LIMIT"),
}

var (
	lineBreaks    = regexp.MustCompile(`\s*\n\s*`)
	selectKeyword = regexp.MustCompile(`(?i) select `)
)

// Wrap splits a single SQL statement into lines no wider than width
// (DefaultWidth when width <= 0), breaking only after commas. The last
// accumulated line is then split in front of FROM, WHERE, GROUP BY,
// HAVING, ORDER BY and LIMIT so each clause starts its own line.
//
// Fragments longer than width are kept whole.
func Wrap(sql string, width int) []string {
	if width <= 0 {
		width = DefaultWidth
	}

	sql = lineBreaks.ReplaceAllString(sql, " ")
	sql = selectKeyword.ReplaceAllString(sql, " SELECT ")

	parts := strings.Split(sql, ",")
	line := parts[0] + ", "
	var lines []string

	for _, part := range parts[1:] {
		part = strings.TrimLeft(part, " \t")
		if len(line+part+", ") > width {
			lines = append(lines, line)
			line = ""
		}
		line += part + ", "
	}

	last := strings.TrimRight(line, ", ")
	for _, c := range clauses {
		loc := c.re.FindStringIndex(last)
		if loc == nil {
			continue
		}
		lines = append(lines, last[:loc[0]])
		last = c.word + " " + last[loc[1]:]
	}
	lines = append(lines, last)

	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}
