package classify

import (
	"errors"
	"testing"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
)

func testIndex() *jurisdiction.Index {
	cat := jurisdiction.NewCatalog([]jurisdiction.Entry{
		{Alpha2: "IT", Code: "ITA", Name: "Italy", Official: "Italian Republic"},
		{Alpha2: "FR", Code: "FRA", Name: "France", Official: "French Republic"},
		{Alpha2: "DE", Code: "DEU", Name: "Germany", Official: "Federal Republic of Germany"},
	})
	return jurisdiction.NewIndex(cat, map[string]string{"italia": "ITA"})
}

func testReport() cbc.Report {
	return cbc.Report{GroupName: "Acme", EndOfYear: "2021", MinJurisdictions: 3, MinTerms: 3}
}

func TestCountJurisdictions(t *testing.T) {
	ix := testIndex()
	cells := []string{"ITA", "Italia (1)", "Africa", "Revenues", "", "fra"}
	if got := CountJurisdictions(cells, ix); got != 4 {
		t.Fatalf("got %d, want 4", got)
	}
}

func TestCountTermsDistinct(t *testing.T) {
	if got := CountTerms("related parties"); got != 1 {
		t.Fatalf("related parties = %d, want 1", got)
	}
	// "unrelated" also satisfies the preceded-by-a-letter related pattern.
	if got := CountTerms("unrelated parties"); got != 3 {
		t.Fatalf("unrelated parties = %d, want 3", got)
	}
	if got := CountTerms("TAX PAID ON PROFIT"); got != 2 {
		t.Fatalf("case-insensitive count = %d, want 2", got)
	}
	if got := CountTerms("tax tax tax"); got != 1 {
		t.Fatalf("repeats = %d, want 1", got)
	}
}

func TestIsTransposedUprightByColumn(t *testing.T) {
	tb := cbc.NewTable("p1", [][]string{
		{"Jurisdiction", "Revenues"},
		{"ITA", "10"},
		{"FRA", "20"},
		{"DEU", "30"},
	})
	got, err := IsTransposed(tb, testReport(), testIndex())
	if err != nil || got {
		t.Fatalf("got %v/%v, want upright", got, err)
	}
}

func TestIsTransposedUprightByTermsRow(t *testing.T) {
	tb := cbc.NewTable("p1", [][]string{
		{"Tax paid", "Profit before tax", "Total revenues", "Employees"},
		{"1", "2", "3", "4"},
	})
	got, err := IsTransposed(tb, testReport(), testIndex())
	if err != nil || got {
		t.Fatalf("got %v/%v, want upright via terms", got, err)
	}
}

func TestIsTransposedByJurisdictionRow(t *testing.T) {
	tb := cbc.NewTable("p1", [][]string{
		{"Jurisdiction", "ITA", "FRA", "DEU"},
		{"Revenues", "10", "20", "30"},
	})
	got, err := IsTransposed(tb, testReport(), testIndex())
	if err != nil || !got {
		t.Fatalf("got %v/%v, want transposed", got, err)
	}
}

func TestIsTransposedUndecidable(t *testing.T) {
	tb := cbc.NewTable("p1", [][]string{
		{"1", "2"},
		{"3", "4"},
	})
	if _, err := IsTransposed(tb, testReport(), testIndex()); !errors.Is(err, ErrUndecidable) {
		t.Fatalf("want ErrUndecidable, got %v", err)
	}
}

func TestOrientAppliesToAllTables(t *testing.T) {
	first := cbc.NewTable("p1", [][]string{
		{"Jurisdiction", "ITA", "FRA", "DEU"},
		{"Revenues", "10", "20", "30"},
	})
	second := cbc.NewTable("p2", [][]string{
		{"Jurisdiction", "ITA", "FRA", "DEU"},
		{"Tax", "1", "2", "3"},
	})
	transposed, err := Orient([]*cbc.Table{first, second}, testReport(), testIndex())
	if err != nil || !transposed {
		t.Fatalf("got %v/%v, want transposed", transposed, err)
	}
	if first.Width() != 2 || second.Width() != 2 {
		t.Fatalf("tables not flipped: %dx%d, %dx%d", first.Width(), first.Height(), second.Width(), second.Height())
	}
	if got := first.Row(0)[0]; got != "Jurisdiction" {
		t.Fatalf("corner cell = %q", got)
	}
}
