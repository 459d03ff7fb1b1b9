// Package pipeline drives a full normalization run: orient the parsed
// tables, push column headers and jurisdiction labels through the rule
// book, trim sentinel-marked columns and rows, and convert monetary
// columns when an exchange rate applies.
package pipeline

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/classify"
	"github.com/codewithboateng/cbcnorm/internal/fx"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
	"github.com/codewithboateng/cbcnorm/internal/rules"
)

var ErrNoTables = errors.New("pipeline: no tables to normalize")

// Pipeline bundles the reference inputs shared by every table of a run.
// Rates may be nil when conversion is not wanted.
type Pipeline struct {
	Book  *rules.Book
	Index *jurisdiction.Index
	Rates *fx.Rates
}

// Run normalizes tables in place, first header row not yet promoted, and
// returns the record of every mapping decision. Orientation and rule book
// repair problems abort the run; individual labels never do.
func (p *Pipeline) Run(tables []*cbc.Table, rep cbc.Report, source string) (*cbc.Run, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	run := &cbc.Run{
		ID:            uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		Source:        source,
		SchemaVersion: cbc.SchemaVersion,
		Report:        rep,
	}

	transposed, err := classify.Orient(tables, rep, p.Index)
	if err != nil {
		return nil, err
	}
	if transposed {
		slog.Info("tables transposed", "tables", len(tables))
	}

	fxRate, fxCols := p.exchange(rep)
	run.Context.FXRate = fxRate

	seen := map[string]bool{}
	for _, t := range tables {
		t.PromoteHeader()
		if err := p.mapColumns(t, rep, run, seen); err != nil {
			return nil, err
		}
		if err := p.mapJurisdictions(t, rep, run, seen); err != nil {
			return nil, err
		}
		droppedRows := t.DropRows(cbc.JurisdictionColumn, func(c string) bool { return c == cbc.SinkDeleteRow })
		droppedCols := t.DropColumns(cbc.SinkToDrop)
		converted := fxRate > 0 && fx.ConvertColumns(t, fxCols, fxRate) > 0

		run.Tables = append(run.Tables, cbc.TableResult{
			Name:        t.Name,
			Transposed:  transposed,
			Columns:     append([]string(nil), t.Names...),
			Rows:        t.Height(),
			DroppedCols: droppedCols,
			DroppedRows: droppedRows,
			Converted:   converted,
		})
	}
	return run, nil
}

// mapColumns renames every header through the rule book. Headers are
// cleaned before lookup, so rule sources are always in neatified form.
// When nothing maps to the jurisdiction column the first column is assumed
// to be it, which is where filings put it in practice.
func (p *Pipeline) mapColumns(t *cbc.Table, rep cbc.Report, run *cbc.Run, seen map[string]bool) error {
	for i, name := range t.Names {
		src := jurisdiction.Neatify(name)
		d := cbc.Decision{Table: t.Name, Axis: cbc.AxisColumn, Source: src}

		sink, scope, ok, err := p.Book.SinkStrict(rep, src, rules.AxisColumn)
		if err != nil {
			return err
		}
		if ok {
			d.Sink, d.Method, d.Scope = sink, cbc.MethodStrict, scope.String()
		} else {
			sink, scope, ok, err = p.Book.SinkRegex(rep, src, rules.AxisColumn)
			if err != nil {
				return err
			}
			if ok {
				d.Sink, d.Method, d.Scope = sink, cbc.MethodRegex, scope.String()
			} else {
				d.Sink, d.Method = src, cbc.MethodUnmapped
			}
		}
		t.Names[i] = d.Sink
		if record(run, seen, d) && d.Method == cbc.MethodUnmapped {
			slog.Warn("unmapped column", "table", t.Name, "source", d.Source)
		}
	}

	if _, ok := t.ColumnIndex(cbc.JurisdictionColumn); !ok && len(t.Names) > 0 {
		slog.Warn("no jurisdiction column mapped, assuming the first",
			"table", t.Name, "column", t.Names[0])
		t.Names[0] = cbc.JurisdictionColumn
	}
	return nil
}

// mapJurisdictions rewrites every cell of the jurisdiction column: rules
// first, matched on the raw label, then the automatic ISO mapping.
func (p *Pipeline) mapJurisdictions(t *cbc.Table, rep cbc.Report, run *cbc.Run, seen map[string]bool) error {
	ci, ok := t.ColumnIndex(cbc.JurisdictionColumn)
	if !ok {
		return nil
	}
	for _, row := range t.Cells {
		raw := row[ci]
		d := cbc.Decision{Table: t.Name, Axis: cbc.AxisJurisdiction, Source: raw}

		sink, scope, ok, err := p.Book.SinkStrict(rep, raw, rules.AxisJurisdiction)
		if err != nil {
			return err
		}
		if ok {
			d.Sink, d.Method, d.Scope = sink, cbc.MethodStrict, scope.String()
		} else {
			sink, scope, ok, err = p.Book.SinkRegex(rep, raw, rules.AxisJurisdiction)
			if err != nil {
				return err
			}
			if ok {
				d.Sink, d.Method, d.Scope = sink, cbc.MethodRegex, scope.String()
			} else {
				res := p.Index.ToISO3166(raw)
				d.Sink, d.Method, d.Score = res.Value, res.Method, res.Score
			}
		}
		row[ci] = d.Sink
		if record(run, seen, d) && d.Method == cbc.MethodUnmapped {
			slog.Warn("unmapped jurisdiction", "table", t.Name, "source", d.Source)
		}
	}
	return nil
}

// exchange resolves the conversion rate and the columns it applies to.
// EUR filings and missing rates both mean no conversion; the latter is
// worth a warning.
func (p *Pipeline) exchange(rep cbc.Report) (float64, []string) {
	if p.Rates == nil || rep.Currency == "" || strings.EqualFold(rep.Currency, "EUR") {
		return 0, nil
	}
	rate, ok := p.Rates.Rate(rep.Currency, rep.EndOfYear)
	if !ok {
		slog.Warn("no exchange rate, conversion skipped",
			"currency", rep.Currency, "year", rep.EndOfYear)
		return 0, nil
	}
	var cols []string
	for _, c := range p.Book.StandardColumnNames() {
		if c == "employees" || c == cbc.JurisdictionColumn {
			continue
		}
		cols = append(cols, c)
	}
	return rate, cols
}

// record appends d unless an earlier table already decided this label.
func record(run *cbc.Run, seen map[string]bool, d cbc.Decision) bool {
	k := d.Axis + "|" + d.Source
	if seen[k] {
		return false
	}
	seen[k] = true
	run.Decisions = append(run.Decisions, d)
	return true
}
