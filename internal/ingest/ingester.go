package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/docchat/internal/storage"
)

// ErrNoDocuments is returned when the upload directory holds no supported files.
var ErrNoDocuments = errors.New("no supported documents found")

// DocumentIndexer atomically replaces the indexed collection.
type DocumentIndexer interface {
	ReplaceDocuments(docs []storage.Document, chunks []storage.Chunk) error
}

// Result summarizes one ingest run.
type Result struct {
	Documents int
	Chunks    int
	Skipped   []string
}

// Ingester reads every supported file in a directory, splits it into
// overlapping chunks and replaces the index with the result.
type Ingester struct {
	store       DocumentIndexer
	dir         string
	chunkSize   int
	overlap     int
	parallelism int
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Ingester)

// WithChunking overrides the default chunk size and overlap, in runes.
func WithChunking(size, overlap int) Option {
	return func(in *Ingester) {
		in.chunkSize = size
		in.overlap = overlap
	}
}

// WithParallelism bounds how many files are extracted at once.
func WithParallelism(n int) Option {
	return func(in *Ingester) { in.parallelism = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// NewIngester creates an Ingester for the files in dir.
func NewIngester(store DocumentIndexer, dir string, opts ...Option) *Ingester {
	in := &Ingester{
		store:       store,
		dir:         dir,
		chunkSize:   DefaultChunkSize,
		overlap:     DefaultChunkOverlap,
		parallelism: 4,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(in)
	}
	if in.parallelism <= 0 {
		in.parallelism = 1
	}
	return in
}

type extracted struct {
	name string
	size int64
	text string
	err  error
}

// Run ingests the directory. Files that fail to extract are skipped and
// reported in Result.Skipped; the run fails only when nothing is readable
// or the index cannot be written.
func (in *Ingester) Run(ctx context.Context) (Result, error) {
	names, err := SupportedFiles(in.dir)
	if err != nil {
		return Result{}, err
	}
	if len(names) == 0 {
		in.logger.Warn("no supported files to ingest", "dir", in.dir)
		return Result{}, ErrNoDocuments
	}

	out := make([]extracted, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.parallelism)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(in.dir, name)
			out[i] = extracted{name: name}
			info, err := os.Stat(path)
			if err != nil {
				out[i].err = err
				return nil
			}
			out[i].size = info.Size()
			out[i].text, out[i].err = Extract(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("extracting documents: %w", err)
	}

	var (
		res    Result
		docs   []storage.Document
		chunks []storage.Chunk
		now    = in.now().UTC()
	)
	for _, e := range out {
		if e.err != nil {
			in.logger.Warn("skipping unreadable document", "name", e.name, "error", e.err)
			res.Skipped = append(res.Skipped, e.name)
			continue
		}
		doc := storage.Document{
			ID:         uuid.New().String(),
			Name:       e.name,
			Size:       e.size,
			IngestedAt: now,
		}
		for seq, text := range Split(e.text, in.chunkSize, in.overlap) {
			chunks = append(chunks, storage.Chunk{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				Seq:        seq,
				Text:       text,
			})
			doc.ChunkCount++
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return res, fmt.Errorf("all %d documents failed to extract", len(names))
	}

	if err := in.store.ReplaceDocuments(docs, chunks); err != nil {
		return res, fmt.Errorf("indexing documents: %w", err)
	}
	res.Documents = len(docs)
	res.Chunks = len(chunks)
	in.logger.Info("documents ingested", "documents", res.Documents, "chunks", res.Chunks, "skipped", len(res.Skipped))
	return res, nil
}

// SupportedFiles lists the ingestible regular files in dir, sorted by name.
// A missing directory holds no files.
func SupportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading upload directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
