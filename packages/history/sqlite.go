package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLedger stores one row per run in a SQLite database
type SQLiteLedger struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

// NewSQLiteLedger opens (and migrates) the database at dsn. The dsn may
// be a file path or ":memory:".
func NewSQLiteLedger(dsn string, logger *slog.Logger) (*SQLiteLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps in-memory databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &SQLiteLedger{db: db, dsn: dsn, logger: logger}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			report_name TEXT NOT NULL,
			report_url TEXT NOT NULL,
			passed INTEGER NOT NULL CHECK (passed >= 0),
			failed INTEGER NOT NULL CHECK (failed >= 0),
			total INTEGER NOT NULL CHECK (total = passed + failed),
			duration_ms INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_report_name ON runs(report_name)`,
	}
	for _, m := range migrations {
		if _, err := l.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Load returns all runs, newest first. Like the file ledger it never
// fails: a query error is logged and yields an empty history.
func (l *SQLiteLedger) Load(ctx context.Context) ([]Record, error) {
	records, err := l.query(ctx)
	if err != nil {
		l.logger.Warn("failed to read run history", "path", l.dsn, "error", err)
		return []Record{}, nil
	}
	return records, nil
}

func (l *SQLiteLedger) query(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, report_name, report_url, passed, failed, total, duration_ms, source
		FROM runs ORDER BY seq DESC`)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: l.dsn, Err: err}
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.ReportName, &r.ReportURL,
			&r.Passed, &r.Failed, &r.Total, &r.DurationMs, &r.Source); err != nil {
			return nil, &PersistenceError{Op: "load", Path: l.dsn, Err: err}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "load", Path: l.dsn, Err: err}
	}
	return records, nil
}

// Append inserts rec as the newest run
func (l *SQLiteLedger) Append(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return &PersistenceError{Op: "append", Path: l.dsn, Err: err}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, timestamp, report_name, report_url, passed, failed, total, duration_ms, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.ReportName, rec.ReportURL,
		rec.Passed, rec.Failed, rec.Total, rec.DurationMs, rec.Source)
	if err != nil {
		return &PersistenceError{Op: "append", Path: l.dsn, Err: err}
	}

	l.logger.Debug("run recorded", "report", rec.ReportName)
	return nil
}

// Close closes the database
func (l *SQLiteLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
