package cbc

import "time"

const SchemaVersion = "1.0"

// Sentinel sinks and markers understood across the pipeline.
const (
	SinkToDrop    = "to_drop"
	SinkDeleteRow = "delete_row"
	EmptyMarker   = "<empty>"

	JurisdictionColumn = "jurisdiction"
)

// Report identifies one CbC filing and carries the classifier thresholds
// that apply to its tables.
type Report struct {
	GroupName        string `json:"group_name"`
	EndOfYear        string `json:"end_of_year"`
	Currency         string `json:"currency,omitempty"`
	MinJurisdictions int    `json:"min_jurisdictions,omitempty"`
	MinTerms         int    `json:"min_terms,omitempty"`
}

type Run struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Source        string    `json:"source,omitempty"`
	SchemaVersion string    `json:"schema_version,omitempty"`

	Report    Report        `json:"report"`
	Context   Context       `json:"context"`
	Tables    []TableResult `json:"tables"`
	Decisions []Decision    `json:"decisions,omitempty"`
}

// Context records where the run's reference inputs came from.
type Context struct {
	RulesSource string  `json:"rules_source,omitempty"`
	NamesSource string  `json:"names_source,omitempty"`
	RatesSource string  `json:"rates_source,omitempty"`
	FXRate      float64 `json:"fx_rate,omitempty"`
}

type TableResult struct {
	Name        string   `json:"name"`
	Transposed  bool     `json:"transposed,omitempty"`
	Columns     []string `json:"columns"`
	Rows        int      `json:"rows"`
	DroppedCols int      `json:"dropped_cols,omitempty"`
	DroppedRows int      `json:"dropped_rows,omitempty"`
	Converted   bool     `json:"converted,omitempty"` // FX applied
}

const (
	AxisColumn       = "column"
	AxisJurisdiction = "jurisdiction"
)

const (
	MethodStrict    = "strict"
	MethodRegex     = "regex"
	MethodCode      = "code"      // cleaned text already an alpha-3 code
	MethodReference = "reference" // countryish-names lookup
	MethodFuzzy     = "fuzzy"
	MethodEmpty     = "empty"
	MethodUnmapped  = "unmapped"
)

// Decision is one label mapping made during a run: a table column header or
// a jurisdiction cell, the sink it was assigned, and how it was decided.
type Decision struct {
	Table  string `json:"table"`
	Axis   string `json:"axis"`
	Source string `json:"source"`
	Sink   string `json:"sink"`
	Method string `json:"method"`
	Scope  string `json:"scope,omitempty"` // default|company|year when a rule fired
	Score  int    `json:"score,omitempty"` // fuzzy match score
}
