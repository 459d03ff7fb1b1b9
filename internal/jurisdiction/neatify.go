// Package jurisdiction normalizes the jurisdiction labels found in CbC
// tables to ISO 3166-1 alpha-3 codes. Labels arrive mangled by PDF
// extraction: stray footnote marks, unit tokens, accents, translations.
// Cleaning, reference lookup and fuzzy matching are layered so the cheap
// exact paths win before any scoring happens.
package jurisdiction

import (
	"regexp"
	"strings"
)

var (
	// purgeRe drops everything outside letters, spaces and apostrophes;
	// digits, punctuation and footnote marks become spaces.
	purgeRe = regexp.MustCompile(`[^a-zA-Z ']`)
	// standAloneRe strips a trailing stand-alone character (a leftover
	// footnote letter) or a trailing "mn" unit token.
	standAloneRe = regexp.MustCompile(`(\s\S\s*$)|(\smn\s*$)`)
)

// Neatify cleans a raw label: purge non-letters, strip the trailing
// stand-alone token, collapse whitespace, lower-case.
func Neatify(s string) string {
	x := purgeRe.ReplaceAllString(s, " ")
	x = standAloneRe.ReplaceAllString(x, " ")
	return strings.ToLower(strings.Join(strings.Fields(x), " "))
}
