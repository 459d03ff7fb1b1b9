package parser

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

type Diagnostics struct {
	Warnings []string
}

// Parse loads every table under path, which may be a single file or a
// directory. One table per file, in name order, so multi-page filings
// split into page-NN.csv keep their page order. Files that fail to read
// become warnings, not errors; the remaining pages still normalize.
func Parse(path string) ([]*cbc.Table, Diagnostics) {
	diags := Diagnostics{}
	var files []string
	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".tsv") {
			return nil
		}
		files = append(files, p)
		return nil
	})
	sort.Strings(files)

	var tables []*cbc.Table
	for _, p := range files {
		t, err := parseFile(p)
		if err != nil {
			diags.Warnings = append(diags.Warnings, p+": "+err.Error())
			continue
		}
		if t.Height() > 0 {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		diags.Warnings = append(diags.Warnings, "no table files found or all empty")
	}
	return tables, diags
}

func parseFile(p string) (*cbc.Table, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	delim := sniffDelimiter(f)
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	cr := csv.NewReader(f)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	return cbc.NewTable(name, rows), nil
}

// sniffDelimiter counts candidate separators over the first lines; the
// most frequent wins, comma on a tie.
func sniffDelimiter(f *os.File) rune {
	counts := map[rune]int{',': 0, ';': 0, '\t': 0, '|': 0}
	sc := bufio.NewScanner(f)
	for i := 0; i < 20 && sc.Scan(); i++ {
		for _, ch := range sc.Text() {
			if _, ok := counts[ch]; ok {
				counts[ch]++
			}
		}
	}
	best, bestN := ',', 0
	for _, ch := range []rune{',', ';', '\t', '|'} {
		if counts[ch] > bestN {
			best, bestN = ch, counts[ch]
		}
	}
	return best
}
