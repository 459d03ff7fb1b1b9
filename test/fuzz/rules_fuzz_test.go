package fuzz

import (
	"testing"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
	"github.com/codewithboateng/cbcnorm/internal/rules"
)

// Fuzz the rule book loader and the lookups behind it. Malformed books must
// come back as errors, and a book that loads must answer lookups without
// panicking whatever shape its scopes took.
func FuzzRuleBookNoPanic(f *testing.F) {
	seeds := []string{
		`{}`,
		`{"column_rules": {"default": {"a": "b"}}}`,
		`{"column_rules": {"default": {"_regex_tot": {"sink": "total_revenues", "justification": "j"}}}}`,
		`{"column_rules": {"default": {"_regex_(": "x"}}}`,
		`{"column_rules": 5}`,
		`{"jurisdiction_rules": {"Acme": {"2021": {"Tot": "delete_row"}, "default": {"X": "Y"}}}}`,
		`{"column_rules": {"Acme": "broken"}}`,
		`not json at all`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, src string) {
		book, err := rules.Load(src)
		if err != nil {
			return
		}
		rep := cbc.Report{GroupName: "Acme", EndOfYear: "2021"}
		_, _, _, _ = book.SinkStrict(rep, "total revenues", rules.AxisColumn)
		_, _, _, _ = book.SinkRegex(rep, "total revenues", rules.AxisColumn)
		_, _, _, _ = book.SinkStrict(rep, "Tot", rules.AxisJurisdiction)
		_, _ = book.Justifications()
		_ = book.StandardColumnNames()
	})
}

// Fuzz label cleaning: any raw PDF fragment must neatify without panicking
// and never come back with outer whitespace.
func FuzzNeatifyNoPanic(f *testing.F) {
	seeds := []string{
		"Italy (3)",
		"  Côte d'Ivoire mn ",
		"UNITED STATES 1",
		"123",
		"",
		"\x00\xff",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		out := jurisdiction.Neatify(raw)
		if out != "" && (out[0] == ' ' || out[len(out)-1] == ' ') {
			t.Fatalf("Neatify(%q) = %q has outer spaces", raw, out)
		}
	})
}
