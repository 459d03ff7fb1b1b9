// Package fx converts the monetary columns of normalized tables using the
// rolling-average exchange rates a reporting year was filed under.
package fx

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/values"
)

type key struct {
	currency, year string
}

// Rates maps (currency, report year) to a EUR conversion rate.
type Rates struct {
	byKey map[key]float64
}

// Load reads a rate table CSV laid out as currency, year, window, rate.
// Rows that do not carry a parsable rate, the header included, are
// skipped.
func Load(path string) (*Rates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fx: rates: %w", err)
	}
	defer f.Close()
	r := &Rates{byKey: make(map[key]float64)}
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fx: rates %s: %w", path, err)
		}
		if len(row) < 4 {
			continue
		}
		rate, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			continue
		}
		r.byKey[key{row[0], row[1]}] = rate
	}
	return r, nil
}

// Rate returns the conversion rate for a currency and report year.
func (r *Rates) Rate(currency, year string) (float64, bool) {
	v, ok := r.byKey[key{currency, year}]
	return v, ok
}

// ConvertColumns multiplies the numeric cells of the named columns in
// place and reports how many cells changed. Cells that do not parse stay
// as they are.
func ConvertColumns(t *cbc.Table, columns []string, rate float64) int {
	want := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		want[c] = struct{}{}
	}
	converted := 0
	for i, name := range t.Names {
		if _, ok := want[name]; !ok {
			continue
		}
		for _, row := range t.Cells {
			v, ok := values.Parse(row[i])
			if !ok {
				continue
			}
			row[i] = strconv.FormatFloat(v*rate, 'f', -1, 64)
			converted++
		}
	}
	return converted
}
