// Package audit provides optional SQLite persistence of the permanent,
// append-only version-log history (not the live document itself — see
// spec.md's Non-goals), following the teacher's database.go shape:
// open, migrate, then a handful of narrow Store/Load/Count methods.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection holding the version-log history.
type Store struct {
	db *sql.DB
}

// Open creates (or reopens) a SQLite-backed Store at uri and runs
// migrations. uri follows mattn/go-sqlite3's DSN conventions, e.g.
// "file:audit.db?cache=shared".
func Open(uri string) (*Store, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendVersion persists one tick's worth of broadcast lines under the
// version they were reached at. It implements session.AuditSink.
func (s *Store) AppendVersion(version uint64, lines []string) error {
	encoded, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("audit: marshal lines: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO version_log (version, lines) VALUES (?, ?)
		 ON CONFLICT(version) DO UPDATE SET lines = excluded.lines`,
		int64(version), string(encoded),
	)
	if err != nil {
		return fmt.Errorf("audit: insert version %d: %w", version, err)
	}
	return nil
}

// VersionEntry is one row of the persisted version log, as returned by
// LoadHistory.
type VersionEntry struct {
	Version uint64
	Lines   []string
}

// LoadHistory returns the full persisted version-log history in
// ascending version order, for recovering LOG? after a server restart.
func (s *Store) LoadHistory() ([]VersionEntry, error) {
	rows, err := s.db.Query(`SELECT version, lines FROM version_log ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("audit: query history: %w", err)
	}
	defer rows.Close()

	var out []VersionEntry
	for rows.Next() {
		var version int64
		var encoded string
		if err := rows.Scan(&version, &encoded); err != nil {
			return nil, fmt.Errorf("audit: scan row: %w", err)
		}
		var lines []string
		if err := json.Unmarshal([]byte(encoded), &lines); err != nil {
			return nil, fmt.Errorf("audit: unmarshal lines for version %d: %w", version, err)
		}
		out = append(out, VersionEntry{Version: uint64(version), Lines: lines})
	}
	return out, rows.Err()
}

// Count returns the number of versions persisted so far.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM version_log`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("audit: count: %w", err)
	}
	return count, nil
}

// StoreSnapshot records metadata about the terminal doc.md snapshot
// written when the server shuts down cleanly — the snapshot content
// itself lives on disk as doc.md, per spec.md's Non-goals; only its
// size and the version it was taken at are tracked here.
func (s *Store) StoreSnapshot(version uint64, length int) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshot (id, version, length) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version, length = excluded.length`,
		int64(version), length,
	)
	if err != nil {
		return fmt.Errorf("audit: store snapshot metadata: %w", err)
	}
	return nil
}
