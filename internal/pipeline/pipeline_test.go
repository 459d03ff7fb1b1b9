package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/classify"
	"github.com/codewithboateng/cbcnorm/internal/fx"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
	"github.com/codewithboateng/cbcnorm/internal/rules"
)

const testBook = `{
    "column_rules": {
        "default": {
            "total revenues": "total_revenues",
            "_regex_^prof": "profit_before_tax",
            "revenues": "total_revenues",
            "staff": "employees",
            "waste": "to_drop"
        }
    },
    "jurisdiction_rules": {
        "default": {
            "Total": "delete_row"
        }
    }
}`

func testIndex() *jurisdiction.Index {
	cat := jurisdiction.NewCatalog([]jurisdiction.Entry{
		{Alpha2: "IT", Code: "ITA", Name: "Italy", Official: "Italian Republic"},
		{Alpha2: "FR", Code: "FRA", Name: "France", Official: "French Republic"},
	})
	return jurisdiction.NewIndex(cat, map[string]string{"italia": "ITA", "francia": "FRA"})
}

func testPipeline(t *testing.T, book string) *Pipeline {
	t.Helper()
	b, err := rules.Load(book)
	if err != nil {
		t.Fatalf("load book: %v", err)
	}
	return &Pipeline{Book: b, Index: testIndex()}
}

func testReport() cbc.Report {
	return cbc.Report{GroupName: "Acme", EndOfYear: "2021", MinJurisdictions: 2, MinTerms: 2}
}

func decisionFor(run *cbc.Run, axis, source string) (cbc.Decision, bool) {
	for _, d := range run.Decisions {
		if d.Axis == axis && d.Source == source {
			return d, true
		}
	}
	return cbc.Decision{}, false
}

func TestRunNormalizesUprightTable(t *testing.T) {
	p := testPipeline(t, testBook)
	tb := cbc.NewTable("page-01", [][]string{
		{"Country", "Total revenues!", "Profit", "Waste"},
		{"Italia", "1.000", "200", "x"},
		{"Francia", "2.000", "300", "y"},
		{"Total", "9", "9", "z"},
	})

	run, err := p.Run([]*cbc.Table{tb}, testReport(), "samples/acme")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.ID == "" || run.SchemaVersion != cbc.SchemaVersion {
		t.Fatalf("run identity: %+v", run)
	}

	wantNames := []string{"jurisdiction", "total_revenues", "profit_before_tax"}
	if !reflect.DeepEqual(tb.Names, wantNames) {
		t.Fatalf("names = %v, want %v", tb.Names, wantNames)
	}
	if tb.Height() != 2 {
		t.Fatalf("height = %d, want 2 (aggregate row dropped)", tb.Height())
	}
	if got := tb.Cells[0][0]; got != "ITA" {
		t.Fatalf("jurisdiction cell = %q, want ITA", got)
	}

	tr := run.Tables[0]
	if tr.DroppedCols != 1 || tr.DroppedRows != 1 || tr.Transposed || tr.Converted {
		t.Fatalf("table result: %+v", tr)
	}
	if len(run.Decisions) != 7 {
		t.Fatalf("decisions = %d, want 7: %+v", len(run.Decisions), run.Decisions)
	}

	checks := []struct {
		axis, source, sink, method string
	}{
		{cbc.AxisColumn, "country", "country", cbc.MethodUnmapped},
		{cbc.AxisColumn, "total revenues", "total_revenues", cbc.MethodStrict},
		{cbc.AxisColumn, "profit", "profit_before_tax", cbc.MethodRegex},
		{cbc.AxisColumn, "waste", "to_drop", cbc.MethodStrict},
		{cbc.AxisJurisdiction, "Italia", "ITA", cbc.MethodReference},
		{cbc.AxisJurisdiction, "Total", "delete_row", cbc.MethodStrict},
	}
	for _, c := range checks {
		d, ok := decisionFor(run, c.axis, c.source)
		if !ok {
			t.Fatalf("no decision for %s %q", c.axis, c.source)
		}
		if d.Sink != c.sink || d.Method != c.method {
			t.Fatalf("%s %q = %q via %s, want %q via %s", c.axis, c.source, d.Sink, d.Method, c.sink, c.method)
		}
	}
	if d, _ := decisionFor(run, cbc.AxisColumn, "total revenues"); d.Scope != "default" {
		t.Fatalf("strict rule scope = %q, want default", d.Scope)
	}
}

func TestRunTransposedTable(t *testing.T) {
	p := testPipeline(t, testBook)
	tb := cbc.NewTable("page-01", [][]string{
		{"Country", "Italia", "Francia"},
		{"Total revenues", "100", "200"},
	})
	rep := testReport()
	rep.MinTerms = 1

	run, err := p.Run([]*cbc.Table{tb}, rep, "samples/acme")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !run.Tables[0].Transposed {
		t.Fatal("table not flagged transposed")
	}
	wantNames := []string{"jurisdiction", "total_revenues"}
	if !reflect.DeepEqual(tb.Names, wantNames) {
		t.Fatalf("names = %v, want %v", tb.Names, wantNames)
	}
	want := [][]string{{"ITA", "100"}, {"FRA", "200"}}
	if !reflect.DeepEqual(tb.Cells, want) {
		t.Fatalf("cells = %v, want %v", tb.Cells, want)
	}
}

func TestRunConvertsCurrency(t *testing.T) {
	p := testPipeline(t, testBook)
	path := filepath.Join(t.TempDir(), "rates.csv")
	if err := os.WriteFile(path, []byte("currency,year,window,rate\nUSD,2021,12,0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rates, err := fx.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p.Rates = rates

	tb := cbc.NewTable("page-01", [][]string{
		{"Country", "Revenues", "Staff"},
		{"Italia", "1,000", "10"},
		{"Francia", "(200)", "20"},
	})
	rep := testReport()
	rep.Currency = "USD"

	run, err := p.Run([]*cbc.Table{tb}, rep, "samples/acme")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Context.FXRate != 0.5 {
		t.Fatalf("fx rate = %v, want 0.5", run.Context.FXRate)
	}
	if !run.Tables[0].Converted {
		t.Fatal("table not flagged converted")
	}
	want := [][]string{{"ITA", "500", "10"}, {"FRA", "-100", "20"}}
	if !reflect.DeepEqual(tb.Cells, want) {
		t.Fatalf("cells = %v, want %v", tb.Cells, want)
	}
}

func TestRunSkipsConversionWithoutRate(t *testing.T) {
	p := testPipeline(t, testBook)
	path := filepath.Join(t.TempDir(), "rates.csv")
	if err := os.WriteFile(path, []byte("USD,2019,12,0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rates, err := fx.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p.Rates = rates

	tb := cbc.NewTable("page-01", [][]string{
		{"Country", "Revenues"},
		{"Italia", "1,000"},
		{"Francia", "2,000"},
	})
	rep := testReport()
	rep.Currency = "USD"

	run, err := p.Run([]*cbc.Table{tb}, rep, "samples/acme")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Context.FXRate != 0 || run.Tables[0].Converted {
		t.Fatalf("conversion happened without a rate: %+v", run.Tables[0])
	}
	if got := tb.Cells[0][1]; got != "1,000" {
		t.Fatalf("cell rewritten to %q", got)
	}
}

func TestRunDedupesDecisionsAcrossPages(t *testing.T) {
	p := testPipeline(t, testBook)
	mk := func(name string) *cbc.Table {
		return cbc.NewTable(name, [][]string{
			{"Country", "Revenues"},
			{"Italia", "1"},
			{"Francia", "2"},
		})
	}
	run, err := p.Run([]*cbc.Table{mk("page-01"), mk("page-02")}, testReport(), "samples/acme")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(run.Tables))
	}
	// country, revenues + Italia, Francia: once each, not per page.
	if len(run.Decisions) != 4 {
		t.Fatalf("decisions = %d, want 4: %+v", len(run.Decisions), run.Decisions)
	}
}

func TestRunNoTables(t *testing.T) {
	p := testPipeline(t, testBook)
	if _, err := p.Run(nil, testReport(), "x"); !errors.Is(err, ErrNoTables) {
		t.Fatalf("want ErrNoTables, got %v", err)
	}
}

func TestRunUndecidableOrientation(t *testing.T) {
	p := testPipeline(t, testBook)
	tb := cbc.NewTable("page-01", [][]string{
		{"1", "2"},
		{"3", "4"},
	})
	_, err := p.Run([]*cbc.Table{tb}, testReport(), "x")
	if !errors.Is(err, classify.ErrUndecidable) {
		t.Fatalf("want ErrUndecidable, got %v", err)
	}
}

func TestRunSurfacesRepairError(t *testing.T) {
	broken := `{
        "column_rules": {"default": {"revenues": "total_revenues"}, "Acme": "broken"},
        "jurisdiction_rules": {"default": {}}
    }`
	p := testPipeline(t, broken)
	tb := cbc.NewTable("page-01", [][]string{
		{"Country", "Revenues"},
		{"Italia", "1"},
		{"Francia", "2"},
	})
	_, err := p.Run([]*cbc.Table{tb}, testReport(), "x")
	if !errors.Is(err, rules.ErrRepair) {
		t.Fatalf("want ErrRepair, got %v", err)
	}
}
