package rules

import "fmt"

// Justification is one audit record: where a rule lives, what it maps, and
// the operator's reasoning. Global-scope rules carry "default" in the
// company and year fields.
type Justification struct {
	Axis    string
	Company string
	Year    string
	Source  string
	Sink    string
	Text    string
}

// Justifications collects the audit records of every justification-bearing
// rule in the book, in document order, column axis first. Bare string rules
// have nothing to audit and are skipped. A branch that failed to decode is
// an error here: the export must account for every scope it walks.
func (b *Book) Justifications() ([]Justification, error) {
	var out []Justification
	for _, s := range []struct {
		name string
		t    *tree
	}{{sectCol, b.col}, {sectJur, b.jur}} {
		rows, err := exportTree(s.name, s.t)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func exportTree(axis string, t *tree) ([]Justification, error) {
	var out []Justification
	emit := func(company, year string, sm *ScopeMap) error {
		if sm == nil {
			return nil
		}
		if sm.err != nil {
			return fmt.Errorf("%w: %s %s/%s: %v", ErrRepair, axis, company, year, sm.err)
		}
		for _, r := range sm.rules {
			if r.err != nil {
				return fmt.Errorf("%w: %s %s/%s: %v", ErrRepair, axis, company, year, r.err)
			}
			if !r.object {
				continue
			}
			out = append(out, Justification{
				Axis:    axis,
				Company: company,
				Year:    year,
				Source:  r.Raw,
				Sink:    r.Sink,
				Text:    r.Justification,
			})
		}
		return nil
	}
	if err := emit(globalKey, globalKey, t.def); err != nil {
		return nil, err
	}
	for _, c := range t.companies {
		if c.err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrRepair, axis, c.name, c.err)
		}
		if err := emit(c.name, globalKey, c.def); err != nil {
			return nil, err
		}
		for _, yr := range c.years {
			if err := emit(c.name, yr.year, yr.rules); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
