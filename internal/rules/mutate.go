package rules

import (
	"fmt"
	"regexp"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

type WriteMode int

const (
	WriteGlobal WriteMode = iota
	WriteCompanyDefault
	WriteCompanyYear
)

// ParseWriteMode accepts the spelled-out scope names and the one-character
// shorthands operators historically typed.
func ParseWriteMode(s string) (WriteMode, bool) {
	switch s {
	case "global", "!":
		return WriteGlobal, true
	case "company", "#":
		return WriteCompanyDefault, true
	case "year", ".":
		return WriteCompanyYear, true
	}
	return 0, false
}

// Write records a learned mapping at the requested scope, creating company
// and year scopes as needed. Writing an existing source replaces its rule
// in place; callers only write sources no rule currently covers, so this is
// not guarded. The book is mutated in memory only, Save persists it.
func (b *Book) Write(source string, mode WriteMode, sink, justification string, axis Axis, rep cbc.Report) error {
	r, err := newWrittenRule(source, sink, justification)
	if err != nil {
		return err
	}
	t := b.tree(axis)
	var sm *ScopeMap
	switch mode {
	case WriteGlobal:
		if t.def == nil {
			t.def = newScopeMap()
		}
		sm = t.def
	case WriteCompanyDefault:
		c := t.ensureCompany(rep.GroupName)
		if c.err != nil {
			return fmt.Errorf("%w: %v", ErrRepair, c.err)
		}
		if c.def == nil {
			c.def = newScopeMap()
		}
		sm = c.def
	case WriteCompanyYear:
		c := t.ensureCompany(rep.GroupName)
		if c.err != nil {
			return fmt.Errorf("%w: %v", ErrRepair, c.err)
		}
		sm = c.ensureYear(rep.EndOfYear)
	default:
		return fmt.Errorf("rules: unknown write mode %d", mode)
	}
	if sm.err != nil {
		return fmt.Errorf("%w: %v", ErrRepair, sm.err)
	}
	sm.put(r)
	return nil
}

func newWrittenRule(source, sink, justification string) (*Rule, error) {
	r := &Rule{Raw: source, Sink: sink, Justification: justification, object: true}
	if m := markerPattern.FindStringSubmatch(source); m != nil {
		r.Pattern = m[1]
		re, err := regexp.Compile("^(?:" + r.Pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("rules: write %q: bad pattern: %v", source, err)
		}
		r.re = re
	}
	return r, nil
}
