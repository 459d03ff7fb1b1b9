package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

type diffPayload struct {
	BaseID  string         `json:"base_id"`
	HeadID  string         `json:"head_id"`
	Summary diffSummary    `json:"summary"`
	New     []cbc.Decision `json:"new"`
	Removed []cbc.Decision `json:"removed"`
	Changed []diffChanged  `json:"changed"`
}

type diffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type diffChanged struct {
	Key     string       `json:"key"`
	Base    cbc.Decision `json:"base"`
	Head    cbc.Decision `json:"head"`
	Changed []string     `json:"fields_changed"`
}

// WriteDiffJSON compares the decisions of two runs, usually the same
// filing before and after a rule book edit.
func WriteDiffJSON(baseID, headID, outDir string, base, head *cbc.Run) (string, error) {
	path := filepath.Join(outDir, "diff_"+baseID+"__"+headID+".json")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}

	// index decisions
	bm := map[string]cbc.Decision{}
	hm := map[string]cbc.Decision{}
	for _, d := range base.Decisions {
		bm[keyOf(d)] = d
	}
	for _, d := range head.Decisions {
		hm[keyOf(d)] = d
	}

	var added []cbc.Decision
	var removed []cbc.Decision
	var changed []diffChanged

	// additions & changes
	for k, hd := range hm {
		bd, ok := bm[k]
		if !ok {
			added = append(added, hd)
			continue
		}
		var fields []string
		if bd.Sink != hd.Sink {
			fields = append(fields, "sink")
		}
		if bd.Method != hd.Method {
			fields = append(fields, "method")
		}
		if bd.Scope != hd.Scope {
			fields = append(fields, "scope")
		}
		if len(fields) > 0 {
			changed = append(changed, diffChanged{Key: k, Base: bd, Head: hd, Changed: fields})
		}
	}
	// removals
	for k, bd := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, bd)
		}
	}

	// stable sort
	sort.Slice(added, func(i, j int) bool { return keyOf(added[i]) < keyOf(added[j]) })
	sort.Slice(removed, func(i, j int) bool { return keyOf(removed[i]) < keyOf(removed[j]) })
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	payload := diffPayload{
		BaseID: baseID, HeadID: headID,
		Summary: diffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

// keyOf identifies a decision across runs. Page splits move labels between
// tables, so the table name stays out of the identity.
func keyOf(d cbc.Decision) string {
	return d.Axis + "|" + d.Source
}
