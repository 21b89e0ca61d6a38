// Package history persists the per-cycle PCR time series as an
// append-only ordered log.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"chainpulse/internal/models"
)

// Log is an append-only ordered log of PCR entries. Read-back order is
// insertion order; nothing ever removes an entry.
type Log interface {
	Append(entry *models.PcrEntry) error
	ReadAll() ([]models.PcrEntry, error)
	Close() error
}

// SQLiteLog implements Log on a SQLite database.
type SQLiteLog struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/chainpulse/history.db.
func Open(dbPath string) (*SQLiteLog, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "chainpulse", "history.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	l := &SQLiteLog{db: db}
	if err := l.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func (l *SQLiteLog) createTables() error {
	// seq carries insertion order; timestamp is stored verbatim so a
	// read-back is byte-identical to what was appended.
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS pcr_history (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		timestamp  TEXT NOT NULL,
		pcr_top10  REAL NOT NULL
	)`)
	return err
}

// Append adds one entry to the end of the log. A missing ID is assigned.
func (l *SQLiteLog) Append(entry *models.PcrEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid history entry: %w", err)
	}
	_, err := l.db.Exec(
		`INSERT INTO pcr_history (id, timestamp, pcr_top10) VALUES (?,?,?)`,
		entry.ID, entry.RecordedAt, entry.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// ReadAll returns every entry in insertion order.
func (l *SQLiteLog) ReadAll() ([]models.PcrEntry, error) {
	rows, err := l.db.Query(`SELECT id, timestamp, pcr_top10 FROM pcr_history ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []models.PcrEntry{}
	for rows.Next() {
		var e models.PcrEntry
		if err := rows.Scan(&e.ID, &e.RecordedAt, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
