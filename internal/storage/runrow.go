package storage

import "time"

// RunRow is a lightweight listing row for /runs.
type RunRow struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Source        string    `json:"source,omitempty"`
	SchemaVersion string    `json:"schema_version,omitempty"`
	GroupName     string    `json:"group_name,omitempty"`
	EndOfYear     string    `json:"end_of_year,omitempty"`
	Decisions     int       `json:"decisions"`
	Unmapped      int       `json:"unmapped"`
}
