package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding ingested documents and their chunks.
type Store struct {
	db *sql.DB
}

// memoryDSN opens a private in-memory database; tests use it.
const memoryDSN = ":memory:"

// pragmas run on every new connection. The pool is pinned to one connection,
// so running them once after Ping is enough.
var pragmas = []struct{ stmt, what string }{
	{"PRAGMA busy_timeout = 5000", "setting busy timeout"},
	{"PRAGMA journal_mode = WAL", "setting journal mode"},
	{"PRAGMA foreign_keys = ON", "enabling foreign keys"},
}

// Open opens (or creates) docchat.db in dataDir and applies pending
// migrations. Pass ":memory:" for a throwaway database.
func Open(dataDir string) (*Store, error) {
	dsn := memoryDSN
	if dataDir != memoryDSN {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "docchat.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; SQLite would otherwise report "database is locked".
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p.stmt); err != nil {
			return fmt.Errorf("%s: %w", p.what, err)
		}
	}
	if err := s.migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Documents ---

// ReplaceDocuments swaps the whole indexed collection for docs and chunks in
// one transaction. Ingestion always re-reads every uploaded file, so a partial
// merge would only leave stale chunks behind.
func (s *Store) ReplaceDocuments(docs []Document, chunks []Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTx(tx); err != nil {
		return err
	}

	docStmt, err := tx.Prepare(`INSERT INTO documents (id, name, size, chunk_count, ingested_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()

	for _, d := range docs {
		ingestedAt := d.IngestedAt
		if ingestedAt.IsZero() {
			ingestedAt = time.Now().UTC()
		}
		if _, err := docStmt.Exec(d.ID, d.Name, d.Size, d.ChunkCount, ingestedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting document %s: %w", d.Name, err)
		}
	}

	chunkStmt, err := tx.Prepare(`INSERT INTO chunks (id, document_id, seq, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO chunks_fts (text, chunk_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, c := range chunks {
		if _, err := chunkStmt.Exec(c.ID, c.DocumentID, c.Seq, c.Text); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
		if _, err := ftsStmt.Exec(c.Text, c.ID); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// ClearDocuments removes every document, chunk and index entry.
func (s *Store) ClearDocuments() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning clear transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearTx(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTx(tx *sql.Tx) error {
	for _, table := range []string{"chunks_fts", "chunks", "documents"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// ListDocuments returns ingested documents ordered by name.
func (s *Store) ListDocuments() ([]Document, error) {
	rows, err := s.db.Query(`SELECT id, name, size, chunk_count, ingested_at FROM documents ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		var d Document
		var ingestedAt string
		if err := rows.Scan(&d.ID, &d.Name, &d.Size, &d.ChunkCount, &ingestedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, ingestedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing ingested_at for %s: %w", d.Name, err)
		}
		d.IngestedAt = t
		results = append(results, d)
	}
	return results, rows.Err()
}

// GetDocument looks up an ingested document by name.
func (s *Store) GetDocument(name string) (Document, error) {
	var d Document
	var ingestedAt string
	err := s.db.QueryRow(`SELECT id, name, size, chunk_count, ingested_at FROM documents WHERE name = ?`, name).
		Scan(&d.ID, &d.Name, &d.Size, &d.ChunkCount, &ingestedAt)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if d.IngestedAt, err = time.Parse(time.RFC3339, ingestedAt); err != nil {
		return Document{}, fmt.Errorf("parsing ingested_at for %s: %w", d.Name, err)
	}
	return d, nil
}

// CountChunks returns the number of indexed chunks.
func (s *Store) CountChunks() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// SearchChunks runs an FTS5 MATCH expression and returns the best limit hits.
// The expression must already be valid FTS5 syntax.
func (s *Store) SearchChunks(match string, limit int) ([]ScoredChunk, error) {
	if strings.TrimSpace(match) == "" || limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT c.id, c.document_id, c.seq, c.text, d.name, bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?
		ORDER BY rank ASC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		var rank float64
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &sc.Seq, &sc.Text, &sc.DocumentName, &rank); err != nil {
			return nil, err
		}
		sc.Score = -rank
		results = append(results, sc)
	}
	return results, rows.Err()
}
