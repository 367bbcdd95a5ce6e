package retrieval

import (
	"context"
	"fmt"

	"github.com/kalambet/docchat/internal/storage"
)

// ContextChunk is a retrieved fragment with its relevance score.
type ContextChunk struct {
	ID       string
	Document string
	Seq      int
	Text     string
	Score    float64
}

// ChunkSearcher runs a prepared full-text expression against the index.
type ChunkSearcher interface {
	SearchChunks(match string, limit int) ([]storage.ScoredChunk, error)
}

// Retriever turns free-text questions into index lookups.
type Retriever struct {
	store ChunkSearcher
}

// NewRetriever creates a Retriever backed by the given index.
func NewRetriever(store ChunkSearcher) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns up to topK chunks most relevant to query, best first.
// A query with no searchable terms yields no chunks and no error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]ContextChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	match := BuildMatch(query)
	if match == "" || topK <= 0 {
		return nil, nil
	}

	scored, err := r.store.SearchChunks(match, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	return scoredToChunks(scored), nil
}

func scoredToChunks(scored []storage.ScoredChunk) []ContextChunk {
	chunks := make([]ContextChunk, len(scored))
	for i, s := range scored {
		chunks[i] = ContextChunk{
			ID:       s.ID,
			Document: s.DocumentName,
			Seq:      s.Seq,
			Text:     s.Text,
			Score:    s.Score,
		}
	}
	return chunks
}
