// Package classify decides how a raw extracted table is oriented. CbC
// filings lay tables out both ways: jurisdictions down the first column or
// across the header row. Counting jurisdiction-like cells and CbC
// vocabulary hits against the report's thresholds settles it before any
// mapping starts.
package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
)

// ErrUndecidable: no column or row carried enough signal to orient the table.
var ErrUndecidable = errors.New("classify: cannot tell whether transposed")

// Continents show up as aggregate rows in some filings and count as
// jurisdiction-like for orientation purposes.
var continents = map[string]struct{}{
	"AFRICA":        {},
	"EUROPE":        {},
	"AMERICA":       {},
	"ASIA":          {},
	"NORTH AMERICA": {},
}

// English terms first, then Italian; the filings are bilingual.
var termPatterns = compileTerms(
	"tax", `\wrelated`, "income", "employee", "unrelated", "third",
	"tangible", "assets", "party", "parties", "accrued", "profit", "revenue",
	"imposte", "pagate", "reddito", "utile",
)

func compileTerms(terms ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		out = append(out, regexp.MustCompile("(?i)"+t))
	}
	return out
}

// CountJurisdictions counts cells that read as a jurisdiction: a known
// countryish name, an alpha-3 code, or a continent.
func CountJurisdictions(cells []string, ix *jurisdiction.Index) int {
	total := 0
	for _, cell := range cells {
		n := jurisdiction.Neatify(cell)
		up := strings.ToUpper(n)
		if _, ok := ix.NameToCode(n); ok {
			total++
			continue
		}
		if ix.IsCode(up) {
			total++
			continue
		}
		if _, ok := continents[up]; ok {
			total++
		}
	}
	return total
}

// CountTerms counts how many distinct vocabulary terms appear in s. Each
// term counts once however often it repeats.
func CountTerms(s string) int {
	n := 0
	for _, re := range termPatterns {
		if re.MatchString(s) {
			n++
		}
	}
	return n
}

// IsTransposed decides the orientation of one table. Enough jurisdictions
// down any column mean it is upright. Otherwise rows are scanned: a row
// carrying the vocabulary means upright, a row carrying jurisdictions
// means transposed, in that order. A table with neither signal cannot be
// normalized.
func IsTransposed(t *cbc.Table, rep cbc.Report, ix *jurisdiction.Index) (bool, error) {
	for i := 0; i < t.Width(); i++ {
		if CountJurisdictions(t.Column(i), ix) >= rep.MinJurisdictions {
			return false, nil
		}
	}
	for i := 0; i < t.Height(); i++ {
		row := t.Row(i)
		if CountTerms(strings.Join(row, "\n")) >= rep.MinTerms {
			return false, nil
		}
		if CountJurisdictions(row, ix) >= rep.MinJurisdictions {
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: table %s", ErrUndecidable, t.Name)
}

// Orient decides on the first table and applies the decision to all of
// them; the pages of one filing share an orientation.
func Orient(tables []*cbc.Table, rep cbc.Report, ix *jurisdiction.Index) (bool, error) {
	if len(tables) == 0 {
		return false, nil
	}
	transposed, err := IsTransposed(tables[0], rep, ix)
	if err != nil {
		return false, err
	}
	if transposed {
		for _, t := range tables {
			t.Transpose()
		}
	}
	return transposed, nil
}
