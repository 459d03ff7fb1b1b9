package rules

import (
	"sort"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

// irsColumns is the baseline CbC vocabulary from the IRS form; it is always
// part of the standard set even when no rule maps to it yet.
var irsColumns = []string{
	"unrelated_revenues",
	"related_revenues",
	"total_revenues",
	"profit_before_tax",
	"tax_paid",
	"tax_accrued",
	"stated_capital",
	"accumulated_earnings",
	"employees",
	"tangible_assets",
}

// StandardColumnNames returns the sorted set of sinks a normalized table
// may carry: the baseline vocabulary plus every sink reachable from any
// scope of the column axis, minus the drop sentinel.
func (b *Book) StandardColumnNames() []string {
	set := make(map[string]struct{}, len(irsColumns))
	for _, c := range irsColumns {
		set[c] = struct{}{}
	}
	collect := func(sm *ScopeMap) {
		if sm == nil || sm.err != nil {
			return
		}
		for _, r := range sm.rules {
			if r.err == nil {
				set[r.Sink] = struct{}{}
			}
		}
	}
	collect(b.col.def)
	for _, c := range b.col.companies {
		if c.err != nil {
			continue
		}
		collect(c.def)
		for _, yr := range c.years {
			collect(yr.rules)
		}
	}
	delete(set, cbc.SinkToDrop)
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
