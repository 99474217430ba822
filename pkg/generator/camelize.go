package generator

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Camelize turns an object name such as "user_accounts" into a Go
// identifier fragment such as "UserAccounts". Segments are split on
// underscores, dashes, spaces and dots; any other character that cannot
// appear in an identifier is dropped.
func Camelize(name string) string {
	segments := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})

	title := cases.Title(language.Und, cases.NoLower)
	var sb strings.Builder
	for _, s := range segments {
		for _, r := range title.String(s) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				sb.WriteRune(r)
			}
		}
	}

	out := sb.String()
	if out == "" || !unicode.IsLetter([]rune(out)[0]) {
		out = "Object" + out
	}
	return out
}
