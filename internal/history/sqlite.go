package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analysis_history (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	file_name      TEXT NOT NULL,
	recorded_at    TEXT NOT NULL,
	quality_score  INTEGER NOT NULL,
	total_rows     INTEGER NOT NULL,
	total_columns  INTEGER NOT NULL,
	completeness   REAL NOT NULL,
	duplicate_rows INTEGER NOT NULL
)`

// SQLiteStore keeps entries in a SQLite table, trimmed on every insert.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writes
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Close() error { return s.conn.Close() }

func (s *SQLiteStore) Record(fileName string, rep *analysis.Report) (Entry, error) {
	e, err := NewEntry(fileName, rep)
	if err != nil {
		return Entry{}, err
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return Entry{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO analysis_history
		(id, file_name, recorded_at, quality_score, total_rows, total_columns, completeness, duplicate_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FileName, e.Timestamp.Format(time.RFC3339Nano), e.QualityScore,
		e.Summary.TotalRows, e.Summary.TotalColumns, e.Summary.Completeness, e.Summary.DuplicateRows)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}
	_, err = tx.Exec(`DELETE FROM analysis_history WHERE seq NOT IN
		(SELECT seq FROM analysis_history ORDER BY seq DESC LIMIT ?)`, MaxEntries)
	if err != nil {
		return Entry{}, fmt.Errorf("trim history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) List() ([]Entry, error) {
	rows, err := s.conn.Query(`SELECT id, file_name, recorded_at, quality_score,
		total_rows, total_columns, completeness, duplicate_rows
		FROM analysis_history ORDER BY seq DESC LIMIT ?`, MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.FileName, &ts, &e.QualityScore,
			&e.Summary.TotalRows, &e.Summary.TotalColumns, &e.Summary.Completeness, &e.Summary.DuplicateRows); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.conn.Exec(`DELETE FROM analysis_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
