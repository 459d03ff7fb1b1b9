package jurisdiction

import (
	"strings"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

// Resolution is the outcome of normalizing one label.
type Resolution struct {
	Value  string
	Method string
	Score  int
}

// ToISO3166 normalizes a raw jurisdiction label, cheapest path first: the
// cleaned text may already be a code, then the countryish-name table, then
// fuzzy matching. Fuzzy runs only for a non-empty cleaned label whose raw
// form is not itself a code, and a fuzzy miss is not fatal: the cleaned
// text comes back for later review, or the empty marker when nothing
// survived cleaning.
func (ix *Index) ToISO3166(raw string) Resolution {
	x := Neatify(raw)
	if up := strings.ToUpper(x); ix.IsCode(up) {
		return Resolution{Value: up, Method: cbc.MethodCode}
	}
	if c, ok := ix.NameToCode(x); ok {
		return Resolution{Value: c, Method: cbc.MethodReference}
	}
	if x != "" && !ix.IsCode(strings.ToUpper(raw)) {
		if ms, err := ix.SearchFuzzy(x); err == nil {
			return Resolution{Value: ms[0].Code, Method: cbc.MethodFuzzy, Score: ms[0].Score}
		}
	}
	if x != "" {
		return Resolution{Value: x, Method: cbc.MethodUnmapped}
	}
	return Resolution{Value: cbc.EmptyMarker, Method: cbc.MethodEmpty}
}
