package storage

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestSchemaExists verifies the migration creates the tables and index.
func TestSchemaExists(t *testing.T) {
	s := openTestStore(t)

	for _, name := range []string{"documents", "chunks", "chunks_fts", "idx_chunks_document"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name=?", name).Scan(&count)
		if err != nil {
			t.Fatalf("querying %s: %v", name, err)
		}
		if count == 0 {
			t.Errorf("%s not found in schema", name)
		}
	}
}

func seedDocuments(t *testing.T, s *Store) {
	t.Helper()
	docs := []Document{
		{ID: "d1", Name: "gophers.txt", Size: 120, ChunkCount: 2, IngestedAt: time.Now().UTC()},
		{ID: "d2", Name: "rust.txt", Size: 80, ChunkCount: 1, IngestedAt: time.Now().UTC()},
	}
	chunks := []Chunk{
		{ID: "c1", DocumentID: "d1", Seq: 0, Text: "Gophers are burrowing rodents found in North America."},
		{ID: "c2", DocumentID: "d1", Seq: 1, Text: "The Go gopher mascot was drawn by Renee French."},
		{ID: "c3", DocumentID: "d2", Seq: 0, Text: "Ferris the crab is the unofficial Rust mascot."},
	}
	if err := s.ReplaceDocuments(docs, chunks); err != nil {
		t.Fatalf("ReplaceDocuments: %v", err)
	}
}

func TestReplaceAndListDocuments(t *testing.T) {
	s := openTestStore(t)
	seedDocuments(t, s)

	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].Name != "gophers.txt" || docs[0].ChunkCount != 2 || docs[0].Size != 120 {
		t.Errorf("docs[0] = %+v", docs[0])
	}

	n, err := s.CountChunks()
	if err != nil {
		t.Fatalf("CountChunks: %v", err)
	}
	if n != 3 {
		t.Errorf("CountChunks = %d, want 3", n)
	}

	// A second replace drops the previous collection entirely.
	err = s.ReplaceDocuments(
		[]Document{{ID: "d9", Name: "only.txt", Size: 1, ChunkCount: 1}},
		[]Chunk{{ID: "c9", DocumentID: "d9", Seq: 0, Text: "lonely chunk"}},
	)
	if err != nil {
		t.Fatalf("second ReplaceDocuments: %v", err)
	}
	docs, _ = s.ListDocuments()
	if len(docs) != 1 || docs[0].Name != "only.txt" {
		t.Errorf("after replace docs = %+v", docs)
	}
	if hits, _ := s.SearchChunks("gopher", 5); len(hits) != 0 {
		t.Errorf("stale chunks still searchable: %+v", hits)
	}
}

func TestGetDocument(t *testing.T) {
	s := openTestStore(t)
	seedDocuments(t, s)

	d, err := s.GetDocument("rust.txt")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if d.ID != "d2" {
		t.Errorf("ID = %q, want d2", d.ID)
	}

	if _, err := s.GetDocument("missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSearchChunks(t *testing.T) {
	s := openTestStore(t)
	seedDocuments(t, s)

	hits, err := s.SearchChunks(`"mascot"`, 5)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	for _, h := range hits {
		if h.DocumentName == "" {
			t.Errorf("hit %s missing document name", h.ID)
		}
	}

	hits, err = s.SearchChunks(`"gopher" OR "burrowing"`, 1)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("limit not applied: got %d hits", len(hits))
	}
	if hits[0].ID != "c1" {
		t.Errorf("best hit = %s, want c1 (matches both terms)", hits[0].ID)
	}

	if hits, err := s.SearchChunks("   ", 5); err != nil || hits != nil {
		t.Errorf("blank match = %v, %v; want nil, nil", hits, err)
	}
}

func TestClearDocuments(t *testing.T) {
	s := openTestStore(t)
	seedDocuments(t, s)

	if err := s.ClearDocuments(); err != nil {
		t.Fatalf("ClearDocuments: %v", err)
	}

	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d documents after clear", len(docs))
	}
	hits, err := s.SearchChunks(`"mascot"`, 5)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits after clear", len(hits))
	}
}

func TestReplaceDocuments_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	seedDocuments(t, s)

	// Chunk referencing an unknown document violates the foreign key.
	err := s.ReplaceDocuments(
		[]Document{{ID: "dx", Name: "x.txt"}},
		[]Chunk{{ID: "cx", DocumentID: "nope", Seq: 0, Text: "orphan"}},
	)
	if err == nil {
		t.Fatal("expected foreign key error")
	}

	docs, _ := s.ListDocuments()
	if len(docs) != 2 {
		t.Errorf("previous collection lost on failed replace: %d docs", len(docs))
	}
}

func BenchmarkSearchChunks(b *testing.B) {
	s, err := Open(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()

	var chunks []Chunk
	for i := 0; i < 1000; i++ {
		chunks = append(chunks, Chunk{
			ID: fmt.Sprintf("c%d", i), DocumentID: "d", Seq: i,
			Text: fmt.Sprintf("chunk %d talks about topic%d and gophers", i, i%37),
		})
	}
	if err := s.ReplaceDocuments([]Document{{ID: "d", Name: "big.txt", ChunkCount: len(chunks)}}, chunks); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.SearchChunks(`"topic7" OR "gophers"`, 3); err != nil {
			b.Fatal(err)
		}
	}
}

func TestLoadMigrations_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql": {Data: []byte("SELECT 10;")},
		"migrations/002_second.sql": {Data: []byte("SELECT 2;")},
		"migrations/001_first.sql":  {Data: []byte("SELECT 1;")},
	}
	got, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	var versions []int
	for _, m := range got {
		versions = append(versions, m.version)
	}
	if fmt.Sprint(versions) != "[1 2 10]" {
		t.Errorf("versions = %v, want [1 2 10]", versions)
	}
}

func TestLoadMigrations_RejectsBadNames(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"no prefix": {"migrations/init.sql": {Data: []byte("")}},
		"duplicate": {
			"migrations/001_a.sql": {Data: []byte("")},
			"migrations/001_b.sql": {Data: []byte("")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadMigrations(fsys); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
