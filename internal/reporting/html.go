package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

func WriteHTML(runID, outDir string, run *cbc.Run) (string, error) {
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Method mix + review queue
	counts := map[string]int{}
	var unmapped []cbc.Decision
	for _, d := range run.Decisions {
		counts[d.Method]++
		if d.Method == cbc.MethodUnmapped {
			unmapped = append(unmapped, d)
		}
	}
	sort.Slice(unmapped, func(i, j int) bool {
		if unmapped[i].Axis != unmapped[j].Axis {
			return unmapped[i].Axis < unmapped[j].Axis
		}
		return unmapped[i].Source < unmapped[j].Source
	})

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(runID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>cbcnorm report – <span class='mono'>%s</span></h1>", html.EscapeString(runID))
	fmt.Fprintf(f, "<p>%s, FY %s &nbsp; Tables: %d &nbsp; Decisions: %d</p>",
		html.EscapeString(run.Report.GroupName),
		html.EscapeString(run.Report.EndOfYear),
		len(run.Tables),
		len(run.Decisions),
	)
	if run.Context.FXRate > 0 {
		fmt.Fprintf(f, "<p class='dim'>Converted from %s at %.4f</p>",
			html.EscapeString(run.Report.Currency), run.Context.FXRate)
	}
	if run.Context.RulesSource != "" {
		fmt.Fprintf(f, "<p class='dim'>Rules: %s</p>", html.EscapeString(run.Context.RulesSource))
	}

	// Per-table summary
	fmt.Fprint(f, "<h2>Tables</h2><table><tr><th>Table</th><th>Rows</th><th>Columns</th><th>Dropped rows</th><th>Dropped cols</th><th>Transposed</th></tr>")
	for _, tr := range run.Tables {
		fmt.Fprintf(f, "<tr><td>%s</td><td>%d</td><td>%s</td><td>%d</td><td>%d</td><td>%v</td></tr>",
			html.EscapeString(tr.Name),
			tr.Rows,
			html.EscapeString(strings.Join(tr.Columns, ", ")),
			tr.DroppedRows,
			tr.DroppedCols,
			tr.Transposed,
		)
	}
	fmt.Fprint(f, "</table>")

	// Method counts
	fmt.Fprint(f, "<h2>Decision methods</h2><table><tr><th>Method</th><th>Count</th></tr>")
	for _, m := range []string{
		cbc.MethodStrict, cbc.MethodRegex, cbc.MethodCode,
		cbc.MethodReference, cbc.MethodFuzzy, cbc.MethodEmpty, cbc.MethodUnmapped,
	} {
		if counts[m] == 0 {
			continue
		}
		fmt.Fprintf(f, "<tr><td>%s</td><td>%d</td></tr>", m, counts[m])
	}
	fmt.Fprint(f, "</table>")

	// Unmapped labels first: these are what an operator acts on
	if len(unmapped) > 0 {
		fmt.Fprint(f, "<h2>Needs review</h2><table><tr><th>Axis</th><th>Table</th><th>Label</th></tr>")
		for _, d := range unmapped {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(d.Axis), html.EscapeString(d.Table), html.EscapeString(d.Source))
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>Needs review</h2><p class='dim'>Every label mapped.</p>")
	}

	// All decisions
	fmt.Fprint(f, "<h2>All decisions</h2><table><tr><th>Table</th><th>Axis</th><th>Source</th><th>Sink</th><th>Method</th><th>Scope</th><th>Score</th></tr>")
	for _, d := range run.Decisions {
		score := ""
		if d.Score > 0 {
			score = strconv.Itoa(d.Score)
		}
		fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(d.Table),
			html.EscapeString(d.Axis),
			html.EscapeString(d.Source),
			html.EscapeString(d.Sink),
			html.EscapeString(d.Method),
			html.EscapeString(d.Scope),
			score,
		)
	}
	fmt.Fprint(f, "</table>")

	fmt.Fprint(f, "</body></html>")
	return path, nil
}
