package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/codewithboateng/cbcnorm/internal/cbc"
)

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables (and the review view) exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id             TEXT PRIMARY KEY,
  started_at     TEXT,          -- RFC3339
  source         TEXT,
  schema_version TEXT,
  group_name     TEXT,
  end_of_year    TEXT,
  run_json       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
  run_id  TEXT NOT NULL,
  tbl     TEXT,
  axis    TEXT NOT NULL,
  source  TEXT NOT NULL,
  sink    TEXT,
  method  TEXT,
  scope   TEXT,
  score   INTEGER,
  PRIMARY KEY (run_id, axis, source),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
CREATE INDEX IF NOT EXISTS idx_decisions_method ON decisions(method);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
);

-- The operator worklist: labels no rule or reference mapping caught.
CREATE VIEW IF NOT EXISTS unmapped AS
SELECT run_id, axis, source
FROM decisions
WHERE method = 'unmapped';
`)
	return err
}

// SaveRun upserts a run JSON and (re)writes its decisions.
func (db *DB) SaveRun(run *cbc.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ts := run.StartedAt.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at, source, schema_version, group_name, end_of_year, run_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, source=excluded.source, schema_version=excluded.schema_version, group_name=excluded.group_name, end_of_year=excluded.end_of_year, run_json=excluded.run_json`,
		run.ID, ts, run.Source, run.SchemaVersion, run.Report.GroupName, run.Report.EndOfYear, string(b),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM decisions WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	if len(run.Decisions) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO decisions
			(run_id, tbl, axis, source, sink, method, scope, score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, d := range run.Decisions {
			if _, err := stmt.Exec(
				run.ID,
				d.Table,
				d.Axis,
				d.Source,
				d.Sink,
				d.Method,
				d.Scope,
				d.Score,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadRun returns the full run (from stored JSON).
func (db *DB) LoadRun(id string) (cbc.Run, error) {
	var s string
	row := db.conn.QueryRow(`SELECT run_json FROM runs WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		return cbc.Run{}, err
	}
	var run cbc.Run
	if err := json.Unmarshal([]byte(s), &run); err != nil {
		return cbc.Run{}, err
	}
	return run, nil
}

// LoadLatestRun returns the most recently started run.
func (db *DB) LoadLatestRun() (cbc.Run, error) {
	var s string
	row := db.conn.QueryRow(`SELECT run_json FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&s); err != nil {
		return cbc.Run{}, err
	}
	var run cbc.Run
	if err := json.Unmarshal([]byte(s), &run); err != nil {
		return cbc.Run{}, err
	}
	return run, nil
}
