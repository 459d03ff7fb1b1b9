package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/rules"
)

func sampleRun() *cbc.Run {
	return &cbc.Run{
		ID:            "run-1",
		SchemaVersion: cbc.SchemaVersion,
		Report:        cbc.Report{GroupName: "Acme", EndOfYear: "2021", Currency: "USD"},
		Context:       cbc.Context{FXRate: 0.5, RulesSource: "./rules.json"},
		Tables: []cbc.TableResult{
			{Name: "page-01", Columns: []string{"jurisdiction", "total_revenues"}, Rows: 2, DroppedRows: 1},
		},
		Decisions: []cbc.Decision{
			{Table: "page-01", Axis: cbc.AxisColumn, Source: "total revenues", Sink: "total_revenues", Method: cbc.MethodStrict, Scope: "default"},
			{Table: "page-01", Axis: cbc.AxisJurisdiction, Source: "Italia", Sink: "ITA", Method: cbc.MethodReference},
			{Table: "page-01", Axis: cbc.AxisJurisdiction, Source: "Atlantis", Sink: "atlantis", Method: cbc.MethodUnmapped},
		},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	run := sampleRun()
	path, err := WriteJSON(run.ID, dir, run)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got cbc.Run
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != run.ID || len(got.Decisions) != 3 || got.Context.FXRate != 0.5 {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

func TestWriteHTMLListsReviewQueue(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteHTML("run-1", dir, sampleRun())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{"run-1", "Acme", "Needs review", "Atlantis", "total_revenues", "reference"} {
		if !strings.Contains(s, want) {
			t.Fatalf("html missing %q", want)
		}
	}
}

func TestWriteHTMLNoUnmapped(t *testing.T) {
	run := sampleRun()
	run.Decisions = run.Decisions[:2]
	path, err := WriteHTML("run-2", t.TempDir(), run)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Every label mapped.") {
		t.Fatal("missing empty review queue note")
	}
}

func TestWriteTablesCSV(t *testing.T) {
	dir := t.TempDir()
	tb := cbc.NewTable("page-01", [][]string{
		{"ITA", "100"},
		{"FRA", "200"},
	})
	tb.Names = []string{"jurisdiction", "total_revenues"}

	paths, err := WriteTablesCSV("run-1", dir, []*cbc.Table{tb})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(paths) != 1 || !strings.HasSuffix(paths[0], "run-1_page-01.csv") {
		t.Fatalf("paths = %v", paths)
	}
	b, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	want := "jurisdiction,total_revenues\nITA,100\nFRA,200\n"
	if string(b) != want {
		t.Fatalf("csv = %q, want %q", b, want)
	}
}

func TestWriteJustificationsCSV(t *testing.T) {
	book, err := rules.Load(`{
        "column_rules": {
            "default": {
                "ricavi": {"sink": "total_revenues", "justification": "Italian label"}
            },
            "Acme": {
                "2021": {
                    "profit": {"sink": "profit_before_tax", "justification": "per filing note"}
                }
            }
        },
        "jurisdiction_rules": {"default": {}}
    }`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteJustificationsCSV(&buf, book); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "type_of_rule, mnc, report_end_of_year, column_name_found, column_name_assigned, justification\n" +
		"column_rules, default, default, ricavi, total_revenues, \"Italian label\"\n" +
		"column_rules, Acme, 2021, profit, profit_before_tax, \"per filing note\"\n"
	if buf.String() != want {
		t.Fatalf("csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteJustificationsCSVBrokenBook(t *testing.T) {
	book, err := rules.Load(`{
        "column_rules": {"default": {}, "Acme": "broken"},
        "jurisdiction_rules": {"default": {}}
    }`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteJustificationsCSV(&buf, book); err == nil {
		t.Fatal("want error on broken branch")
	}
}

func TestWriteDiffJSON(t *testing.T) {
	base := sampleRun()
	head := sampleRun()
	// changed: Atlantis now mapped by a new rule
	head.Decisions[2] = cbc.Decision{
		Table: "page-01", Axis: cbc.AxisJurisdiction, Source: "Atlantis",
		Sink: "delete_row", Method: cbc.MethodStrict, Scope: "company",
	}
	// new: another jurisdiction shows up
	head.Decisions = append(head.Decisions, cbc.Decision{
		Table: "page-01", Axis: cbc.AxisJurisdiction, Source: "France", Sink: "FRA", Method: cbc.MethodReference,
	})
	// removed: the column decision is gone
	head.Decisions = head.Decisions[1:]

	dir := t.TempDir()
	path, err := WriteDiffJSON("a", "b", dir, base, head)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got diffPayload
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Summary.NewCount != 1 || got.Summary.RemovedCount != 1 || got.Summary.ChangedCount != 1 {
		t.Fatalf("summary: %+v", got.Summary)
	}
	if got.New[0].Source != "France" || got.Removed[0].Source != "total revenues" {
		t.Fatalf("new=%+v removed=%+v", got.New, got.Removed)
	}
	ch := got.Changed[0]
	if ch.Key != "jurisdiction|Atlantis" {
		t.Fatalf("changed key = %q", ch.Key)
	}
	wantFields := []string{"sink", "method", "scope"}
	if len(ch.Changed) != 3 || ch.Changed[0] != wantFields[0] || ch.Changed[1] != wantFields[1] || ch.Changed[2] != wantFields[2] {
		t.Fatalf("fields = %v, want %v", ch.Changed, wantFields)
	}
}
