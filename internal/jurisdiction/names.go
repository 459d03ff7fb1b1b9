package jurisdiction

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/cases"
)

// The bundled table maps names as they appear in filings, already through
// Neatify, to alpha-3 codes: translations, legacy names, truncations.
//
//go:embed countryish_names.csv
var defaultNamesCSV []byte

// DefaultNames returns the bundled countryish-name table.
func DefaultNames() map[string]string {
	m, err := parseNames(bytes.NewReader(defaultNamesCSV))
	if err != nil {
		panic(fmt.Sprintf("jurisdiction: bundled names table: %v", err))
	}
	return m
}

// LoadNames reads a name,code CSV from disk. Rows with an empty code are
// kept in such files as a record of labels reviewed and left unmapped;
// they contribute nothing.
func LoadNames(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jurisdiction: names table: %w", err)
	}
	defer f.Close()
	m, err := parseNames(f)
	if err != nil {
		return nil, fmt.Errorf("jurisdiction: names table %s: %w", path, err)
	}
	return m, nil
}

func parseNames(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	fold := cases.Fold()
	m := make(map[string]string, 128)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 2 || row[1] == "" {
			continue
		}
		m[fold.String(row[0])] = row[1]
	}
	return m, nil
}
