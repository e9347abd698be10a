package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	lower = cases.Lower(language.Und)
	fold  = cases.Fold()
)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(raw string) string {
	return lower.String(strings.TrimSpace(raw))
}

// NormalizeSearch trims and case-folds free text used in filters.
func NormalizeSearch(raw string) string {
	return fold.String(strings.Join(strings.Fields(raw), " "))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE substring pattern with wildcards escaped.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
