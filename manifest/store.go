// CLAUDE:SUMMARY SQLite manifest persistence (modernc, WAL) keyed by document id.
package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/mailsift/dbopen"
)

// Store persists manifests in SQLite. The manifest row keeps the full
// JSON document plus the columns worth querying on.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying handle for sharing with other layers.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS manifests (
    document_id  TEXT PRIMARY KEY,
    status       TEXT NOT NULL,
    components   INTEGER NOT NULL,
    chunks       INTEGER NOT NULL,
    failures     INTEGER NOT NULL,
    input_bytes  INTEGER NOT NULL,
    manifest     TEXT NOT NULL,
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_manifests_status  ON manifests(status);
CREATE INDEX IF NOT EXISTS idx_manifests_created ON manifests(created_at);
`
	_, err := s.db.Exec(ddl)
	return err
}

// Save upserts a manifest. Reprocessing a document replaces its record.
func (s *Store) Save(m *Manifest) error {
	data, err := m.JSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	_, err = dbopen.Exec(context.Background(), s.db,
		`INSERT INTO manifests (document_id, status, components, chunks, failures, input_bytes, manifest, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
		   status = excluded.status,
		   components = excluded.components,
		   chunks = excluded.chunks,
		   failures = excluded.failures,
		   input_bytes = excluded.input_bytes,
		   manifest = excluded.manifest,
		   created_at = excluded.created_at`,
		m.DocumentID, m.Status, m.Stats.Components, m.Stats.Chunks, m.Stats.Failures,
		m.Stats.InputBytes, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Get loads a manifest by document id. Returns nil, nil when not found.
func (s *Store) Get(documentID string) (*Manifest, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT manifest FROM manifests WHERE document_id = ?`, documentID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest %s: %w", documentID, err)
	}
	return &m, nil
}

// Summary is one row of a manifest listing.
type Summary struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Components int    `json:"components"`
	Chunks     int    `json:"chunks"`
	Failures   int    `json:"failures"`
	CreatedAt  string `json:"created_at"`
}

// List returns the most recent manifests, newest first.
func (s *Store) List(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT document_id, status, components, chunks, failures, created_at
		 FROM manifests ORDER BY created_at DESC, document_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.DocumentID, &sm.Status, &sm.Components, &sm.Chunks, &sm.Failures, &sm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// CountByStatus returns how many stored manifests carry each status.
func (s *Store) CountByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM manifests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
