package fx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

func writeRates(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rates.csv")
	data := "currency,year,window,rate\nUSD,2021,3y,0.85\nGBP,2021,3y,1.16\nUSD,2020,3y,0.88\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndRate(t *testing.T) {
	r, err := Load(writeRates(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, ok := r.Rate("USD", "2021"); !ok || v != 0.85 {
		t.Fatalf("USD/2021 = %v/%v", v, ok)
	}
	if _, ok := r.Rate("USD", "2019"); ok {
		t.Fatal("unexpected rate for missing year")
	}
	if _, ok := r.Rate("currency", "year"); ok {
		t.Fatal("header row leaked into the table")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("want error")
	}
}

func TestConvertColumns(t *testing.T) {
	tb := cbc.NewTable("t1", [][]string{
		{"jurisdiction", "tax_paid", "employees"},
		{"ITA", "1,000", "50"},
		{"FRA", "(200)", "n/a"},
	})
	tb.PromoteHeader()
	n := ConvertColumns(tb, []string{"tax_paid"}, 0.5)
	if n != 2 {
		t.Fatalf("converted %d cells, want 2", n)
	}
	if got := tb.Cells[0][1]; got != "500" {
		t.Fatalf("cell = %q", got)
	}
	if got := tb.Cells[1][1]; got != "-100" {
		t.Fatalf("negative cell = %q", got)
	}
	// Untouched: not in the column list, or not numeric.
	if tb.Cells[0][2] != "50" || tb.Cells[1][2] != "n/a" {
		t.Fatalf("employees column changed: %v", tb.Cells)
	}
}
