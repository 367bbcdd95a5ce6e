package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is one ingested source file.
type Document struct {
	ID         string
	Name       string
	Size       int64
	ChunkCount int
	IngestedAt time.Time
}

// Chunk is a slice of a document's text, indexed for full-text search.
type Chunk struct {
	ID         string
	DocumentID string
	Seq        int
	Text       string
}

// ScoredChunk is a search hit. Lower BM25 ranks are better; Score is the
// negated rank so that higher means more relevant.
type ScoredChunk struct {
	Chunk
	DocumentName string
	Score        float64
}
