package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/pew/src/reload"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteHistory is a SQLite implementation of the reload.History interface.
type SqliteHistory struct {
	db *sql.DB
}

// NewSqliteHistory opens (or creates) the history database at path.
func NewSqliteHistory(path string) (*SqliteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("History database ready", "path", path)
	return &SqliteHistory{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS process_runs (
			id TEXT PRIMARY KEY,
			pid INTEGER,
			command TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			stopped_at INTEGER,
			exit_code INTEGER,
			signal TEXT,
			reason TEXT,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_process_runs_started_at ON process_runs(started_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Record inserts the run or replaces the one with the same id.
func (d *SqliteHistory) Record(ctx context.Context, rec reload.ProcessRecord) error {
	var stoppedAt sql.NullInt64
	if rec.StoppedAt != nil {
		stoppedAt = sql.NullInt64{Int64: rec.StoppedAt.UnixNano(), Valid: true}
	}
	var exitCode sql.NullInt64
	if rec.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*rec.ExitCode), Valid: true}
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO process_runs (id, pid, command, started_at, stopped_at, exit_code, signal, reason, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pid = excluded.pid,
			command = excluded.command,
			started_at = excluded.started_at,
			stopped_at = excluded.stopped_at,
			exit_code = excluded.exit_code,
			signal = excluded.signal,
			reason = excluded.reason,
			error = excluded.error
	`, rec.ID, rec.PID, rec.Command, rec.StartedAt.UnixNano(), stoppedAt, exitCode, rec.Signal, string(rec.Reason), rec.Error)
	if err != nil {
		return fmt.Errorf("record process run %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (d *SqliteHistory) Recent(ctx context.Context, limit int) ([]reload.ProcessRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, pid, command, started_at, stopped_at, exit_code, signal, reason, error
		FROM process_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []reload.ProcessRecord
	for rows.Next() {
		var (
			rec                  reload.ProcessRecord
			startedAt            int64
			stoppedAt, exitCode  sql.NullInt64
			signal, reason, errs sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.PID, &rec.Command, &startedAt, &stoppedAt, &exitCode, &signal, &reason, &errs); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(0, startedAt)
		if stoppedAt.Valid {
			t := time.Unix(0, stoppedAt.Int64)
			rec.StoppedAt = &t
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		rec.Signal = signal.String
		rec.Reason = reload.EndReason(reason.String)
		rec.Error = errs.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (d *SqliteHistory) Close() error {
	return d.db.Close()
}
