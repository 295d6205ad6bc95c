package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens the staging database at path, creating the file and the
// sample and alarm tables on first use.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite handles a single writer well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

const schemaRMSSamples = `
CREATE TABLE IF NOT EXISTS rms_samples (
    unit_id TEXT NOT NULL,
    ts TEXT NOT NULL,
    channel TEXT NOT NULL,
    value REAL
);
`

const schemaAlarmEvents = `
CREATE TABLE IF NOT EXISTS alarm_events (
    unit_id TEXT NOT NULL,
    ts TEXT NOT NULL,
    message TEXT NOT NULL
);
`

const indexRMSSamples = `CREATE INDEX IF NOT EXISTS idx_rms_samples_unit_ts ON rms_samples (unit_id, ts);`

const indexAlarmEvents = `CREATE INDEX IF NOT EXISTS idx_alarm_events_unit_ts ON alarm_events (unit_id, ts);`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaRMSSamples,
		schemaAlarmEvents,
		indexRMSSamples,
		indexAlarmEvents,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
