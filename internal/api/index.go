package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/docchat/internal/storage"
)

// IndexedDocument is one ingested file as reported by the index endpoints.
type IndexedDocument struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// IndexSummary describes what the last ingest put into the index.
type IndexSummary struct {
	Documents []IndexedDocument `json:"documents"`
	Chunks    int               `json:"chunks"`
}

func toIndexed(d storage.Document) IndexedDocument {
	return IndexedDocument{Name: d.Name, Size: d.Size, Chunks: d.ChunkCount, IngestedAt: d.IngestedAt}
}

func summarizeIndex(idx DocumentIndex) (IndexSummary, error) {
	docs, err := idx.ListDocuments()
	if err != nil {
		return IndexSummary{}, err
	}
	chunks, err := idx.CountChunks()
	if err != nil {
		return IndexSummary{}, err
	}
	out := IndexSummary{Documents: make([]IndexedDocument, len(docs)), Chunks: chunks}
	for i, d := range docs {
		out.Documents[i] = toIndexed(d)
	}
	return out, nil
}

func handleIndexSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := summarizeIndex(deps.Index)
		if err != nil {
			deps.logger().Error("reading index failed", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "could not read index")
			return
		}
		writeJSON(w, summary)
	}
}

func handleIndexedDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		doc, err := deps.Index.GetDocument(name)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document %q is not indexed", name)
			return
		}
		if err != nil {
			deps.logger().Error("reading document failed", "name", name, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "could not read index")
			return
		}
		writeJSON(w, toIndexed(doc))
	}
}
