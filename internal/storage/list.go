package storage

import (
	"database/sql"
	"time"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

// ListRuns returns a lightweight list of runs with counts. The unmapped
// count is the listing's point: it is how an operator spots a filing that
// needs rule work without opening it.
func (db *DB) ListRuns(limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT r.id, r.started_at, r.source, r.schema_version, r.group_name, r.end_of_year,
		       (SELECT COUNT(1) FROM decisions d WHERE d.run_id = r.id) AS decisions,
		       (SELECT COUNT(1) FROM decisions d WHERE d.run_id = r.id AND d.method = ?) AS unmapped
		  FROM runs r
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, cbc.MethodUnmapped, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var rr RunRow
		var startedAtStr string
		if err := rows.Scan(&rr.ID, &startedAtStr, &rr.Source, &rr.SchemaVersion, &rr.GroupName, &rr.EndOfYear, &rr.Decisions, &rr.Unmapped); err != nil {
			return nil, err
		}
		// Parse RFC3339Nano first, fallback to RFC3339
		if t, err := time.Parse(time.RFC3339Nano, startedAtStr); err == nil {
			rr.StartedAt = t
		} else if t2, err2 := time.Parse(time.RFC3339, startedAtStr); err2 == nil {
			rr.StartedAt = t2
		} else {
			rr.StartedAt = time.Time{}
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListDecisions returns a run's decisions, optionally only those made by
// one method ("" means all). Ordered for stable display.
func (db *DB) ListDecisions(runID, method string) ([]cbc.Decision, error) {
	q := `SELECT tbl, axis, source, sink, method, scope, score
	        FROM decisions
	       WHERE run_id = ?`
	args := []any{runID}
	if method != "" {
		q += ` AND method = ?`
		args = append(args, method)
	}
	q += ` ORDER BY axis, source`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cbc.Decision
	for rows.Next() {
		var d cbc.Decision
		if err := rows.Scan(&d.Table, &d.Axis, &d.Source, &d.Sink, &d.Method, &d.Scope, &d.Score); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (db *DB) HasRun(id string) (bool, error) {
	const q = `SELECT 1 FROM runs WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
