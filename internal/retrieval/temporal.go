package retrieval

import (
	"regexp"
	"strconv"
)

// yearPattern matches a plausible standalone 4-digit year (19xx/20xx).
// \b keeps it from firing inside longer digit runs like phone numbers.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ExtractQueryYear returns the first unambiguous 4-digit year in the query
// text, or 0 if none is present. At most one year is extracted; later
// matches are ignored.
func ExtractQueryYear(query string) int {
	m := yearPattern.FindString(query)
	if m == "" {
		return 0
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return y
}
