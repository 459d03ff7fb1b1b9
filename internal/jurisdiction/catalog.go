package jurisdiction

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pariz/gountries"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entry is one country of the reference catalog.
type Entry struct {
	Alpha2   string
	Code     string // ISO 3166-1 alpha-3
	Name     string
	Official string
	Comment  string

	// accent-folded, lower-cased copies used for matching
	name, official, comment string
}

// Catalog is the country reference the fuzzy matcher scores against. Built
// once, read-only afterwards.
type Catalog struct {
	entries []Entry
	keys    map[string]int // folded code/name → entries index
}

func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{entries: entries, keys: make(map[string]int, len(entries)*4)}
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].Code < c.entries[j].Code })
	for i := range c.entries {
		e := &c.entries[i]
		e.name = matchKey(e.Name)
		e.official = matchKey(e.Official)
		e.comment = matchKey(e.Comment)
		for _, k := range []string{matchKey(e.Alpha2), matchKey(e.Code), e.name, e.official, e.comment} {
			if k != "" {
				c.keys[k] = i
			}
		}
	}
	return c
}

// DefaultCatalog builds the catalog from the bundled ISO 3166 data.
func DefaultCatalog() *Catalog {
	q := gountries.New()
	all := q.FindAllCountries()
	entries := make([]Entry, 0, len(all))
	for _, ct := range all {
		entries = append(entries, Entry{
			Alpha2:   ct.Alpha2,
			Code:     ct.Alpha3,
			Name:     ct.Name.Common,
			Official: ct.Name.Official,
		})
	}
	return NewCatalog(entries)
}

// Lookup finds the single country whose code or name equals query exactly,
// accents and case aside.
func (c *Catalog) Lookup(query string) (Entry, bool) {
	i, ok := c.keys[matchKey(query)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.entries))
	for i := range c.entries {
		out = append(out, c.entries[i].Code)
	}
	return out
}

// foldAccents strips combining marks: "Côte d'Ivoire" becomes "Cote
// d'Ivoire". The transform chain is stateful, so it is built per call.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func matchKey(s string) string {
	return foldAccents(strings.ToLower(s))
}
