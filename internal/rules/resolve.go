package rules

import (
	"fmt"
	"regexp"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

// Entry is a resolved strict rule: the sink plus the scope that supplied it.
type Entry struct {
	Sink  string
	Scope ScopeLevel
}

// RegexRule is a resolved pattern rule. Order matters: rules are tried
// first to last and matching is anchored at the start of the source.
type RegexRule struct {
	Pattern string
	Sink    string
	Scope   ScopeLevel

	re *regexp.Regexp
}

func (r RegexRule) matches(source string) bool { return r.re.MatchString(source) }

// RuleSet is the flat view of a rule book for one report: the global,
// company and year scopes merged key-wise (year wins over company wins over
// global) and partitioned into strict and regex rules. Regex order is the
// first-occurrence order of the keys across the merge.
type RuleSet struct {
	Strict map[string]Entry
	Regex  []RegexRule
}

// MatchRegex returns the first pattern rule matching source.
func (rs *RuleSet) MatchRegex(source string) (RegexRule, bool) {
	for _, r := range rs.Regex {
		if r.matches(source) {
			return r, true
		}
	}
	return RegexRule{}, false
}

// Resolve flattens the book for one report along one axis. Scopes the
// report does not have contribute nothing. A gathered scope that failed to
// decode, or a surviving rule without a usable sink, is a repair error.
func (b *Book) Resolve(axis Axis, rep cbc.Report) (*RuleSet, error) {
	t := b.tree(axis)
	type layer struct {
		sm    *ScopeMap
		level ScopeLevel
	}
	var layers []layer
	if t.def != nil {
		layers = append(layers, layer{t.def, ScopeGlobal})
	}
	if c := t.company(rep.GroupName); c != nil {
		if c.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRepair, axis, c.err)
		}
		if c.def != nil {
			layers = append(layers, layer{c.def, ScopeCompany})
		}
		if y := c.year(rep.EndOfYear); y != nil {
			layers = append(layers, layer{y, ScopeYear})
		}
	}
	for _, l := range layers {
		if l.sm.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRepair, axis, l.sm.err)
		}
	}

	type merged struct {
		rule  *Rule
		level ScopeLevel
	}
	order := make([]string, 0, 32)
	byKey := make(map[string]*merged)
	for _, l := range layers {
		for _, r := range l.sm.rules {
			if m, ok := byKey[r.Raw]; ok {
				m.rule, m.level = r, l.level
				continue
			}
			byKey[r.Raw] = &merged{r, l.level}
			order = append(order, r.Raw)
		}
	}

	rs := &RuleSet{Strict: make(map[string]Entry, len(order))}
	for _, k := range order {
		m := byKey[k]
		if m.rule.err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRepair, axis, m.rule.err)
		}
		if m.rule.re != nil {
			rs.Regex = append(rs.Regex, RegexRule{
				Pattern: m.rule.Pattern,
				Sink:    m.rule.Sink,
				Scope:   m.level,
				re:      m.rule.re,
			})
			continue
		}
		rs.Strict[k] = Entry{Sink: m.rule.Sink, Scope: m.level}
	}
	return rs, nil
}

// SinkStrict looks source up among the strict rules in effect for the
// report. ok is false on a plain miss.
func (b *Book) SinkStrict(rep cbc.Report, source string, axis Axis) (string, ScopeLevel, bool, error) {
	rs, err := b.Resolve(axis, rep)
	if err != nil {
		return "", 0, false, err
	}
	e, ok := rs.Strict[source]
	if !ok {
		return "", 0, false, nil
	}
	return e.Sink, e.Scope, true, nil
}

// SinkRegex tries the pattern rules in effect for the report against
// source, first match wins.
func (b *Book) SinkRegex(rep cbc.Report, source string, axis Axis) (string, ScopeLevel, bool, error) {
	rs, err := b.Resolve(axis, rep)
	if err != nil {
		return "", 0, false, err
	}
	r, ok := rs.MatchRegex(source)
	if !ok {
		return "", 0, false, nil
	}
	return r.Sink, r.Scope, true, nil
}
