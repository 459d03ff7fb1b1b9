package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/rules"
)

// WriteTablesCSV writes every normalized table as its own CSV, one file
// per page, next to the run's other artifacts.
func WriteTablesCSV(runID, outDir string, tables []*cbc.Table) ([]string, error) {
	var paths []string
	for _, t := range tables {
		p := filepath.Join(outDir, runID+"_"+t.Name+".csv")
		f, err := os.Create(p)
		if err != nil {
			return paths, err
		}
		w := csv.NewWriter(f)
		if t.Names != nil {
			_ = w.Write(t.Names)
		}
		_ = w.WriteAll(t.Cells)
		if err := w.Error(); err != nil {
			_ = f.Close()
			return paths, err
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// WriteJustificationsCSV exports the audit trail of every justified rule.
// The layout is the historical one the reviewers' spreadsheets expect:
// comma-space separators, justification wrapped in plain quotes.
func WriteJustificationsCSV(w io.Writer, book *rules.Book) error {
	rows, err := book.Justifications()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "type_of_rule, mnc, report_end_of_year, column_name_found, column_name_assigned, justification"); err != nil {
		return err
	}
	for _, j := range rows {
		if _, err := fmt.Fprintf(w, "%s, %s, %s, %s, %s, \"%s\"\n",
			j.Axis, j.Company, j.Year, j.Source, j.Sink, j.Text); err != nil {
			return err
		}
	}
	return nil
}
