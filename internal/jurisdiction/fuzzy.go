package jurisdiction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoMatch: fuzzy matching scored nothing; callers fall back.
var ErrNoMatch = errors.New("jurisdiction: no fuzzy match")

type Match struct {
	Code  string
	Score int
}

// SearchFuzzy scores the catalog against query. An exact code or name hit
// is worth 50 points; a substring hit on the common name, official name or
// comment, first of those that matches, is worth max(5, 30-2*i) where i is
// where in the field the query appears. Results come back best first, ties
// broken by ascending code. The continents reported as jurisdictions in
// some filings short-circuit to themselves.
func (ix *Index) SearchFuzzy(query string) ([]Match, error) {
	q := foldAccents(strings.ToLower(strings.TrimSpace(query)))
	switch q {
	case "africa", "america", "europe":
		return []Match{{Code: q, Score: 51}}, nil
	}

	scores := make(map[string]int)
	if e, ok := ix.catalog.Lookup(q); ok {
		scores[e.Code] += 50
	}
	for i := range ix.catalog.entries {
		e := &ix.catalog.entries[i]
		for _, v := range []string{e.name, e.official, e.comment} {
			if v == "" {
				continue
			}
			if at := strings.Index(v, q); at >= 0 {
				bonus := 30 - 2*at
				if bonus < 5 {
					bonus = 5
				}
				scores[e.Code] += bonus
				break
			}
		}
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}

	out := make([]Match, 0, len(scores))
	for c, s := range scores {
		out = append(out, Match{Code: c, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}
