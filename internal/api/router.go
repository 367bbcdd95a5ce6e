// Package api serves the document and chat HTTP contract backed by the
// local index, plus the same search tools over MCP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/docchat/internal/ingest"
	"github.com/kalambet/docchat/internal/retrieval"
	"github.com/kalambet/docchat/internal/storage"
)

const defaultTopK = 3

// DocumentIndex is the part of the store the handlers touch directly.
type DocumentIndex interface {
	ClearDocuments() error
	ListDocuments() ([]storage.Document, error)
	GetDocument(name string) (storage.Document, error)
	CountChunks() (int, error)
}

// Retriever finds chunks relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.ContextChunk, error)
}

// Ingester rebuilds the index from the upload directory.
type Ingester interface {
	Run(ctx context.Context) (ingest.Result, error)
}

// Deps holds the collaborators of the HTTP handlers.
type Deps struct {
	Index     DocumentIndex
	Retriever Retriever
	Ingester  Ingester
	Answerer  Answerer
	UploadDir string
	TopK      int
	Metrics   *Metrics // optional; nil disables /metrics
	Logger    *slog.Logger
}

func (d Deps) topK() int {
	if d.TopK <= 0 {
		return defaultTopK
	}
	return d.TopK
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// NewHandler returns the router for the /api contract, health and metrics.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/hello/", handleHello)
		r.Get("/list-files/", handleListFiles(deps))
		r.Post("/upload/", handleUpload(deps))
		r.Post("/clear-documents/", handleClearDocuments(deps))
		r.Post("/ingest-documents/", handleIngestDocuments(deps))
		r.Post("/chat/", handleChat(deps))
		r.Get("/search-documents/", handleSearchDocuments(deps))
		r.Get("/query-documents/", handleQueryDocuments(deps))
		r.Get("/indexed-documents/", handleIndexSummary(deps))
		r.Get("/indexed-documents/{name}", handleIndexedDocument(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, "hello from docchat")
}
