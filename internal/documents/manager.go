// Package documents tracks the files known to the backend, their per-file
// upload outcome, and the bulk clear/ingest actions.
//
// All state lives in a Manager and is mutated only through Manager.apply,
// which takes one event at a time under the manager's lock. Network calls
// run outside the lock and report back by applying events, so a batch of
// optimistic inserts is never interleaved with an upload result.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kalambet/docchat/internal/backend"
)

var (
	// ErrBusy is returned when ClearAll or IngestAll is invoked while another
	// bulk action is still in flight.
	ErrBusy = errors.New("another document action is in progress")
	// ErrNoFiles is returned by IngestAll when no files are tracked.
	ErrNoFiles = errors.New("no files to ingest")
	// ErrNoContent marks a LocalFile with no Open func.
	ErrNoContent = errors.New("file has no content source")
)

// Backend is the subset of the backend client the manager needs.
type Backend interface {
	ListFiles(ctx context.Context) ([]backend.FileInfo, error)
	Upload(ctx context.Context, name string, content io.Reader) error
	ClearDocuments(ctx context.Context) error
	IngestDocuments(ctx context.Context) error
}

// ClearPolicy decides what happens to the local file list after a successful clear.
type ClearPolicy string

const (
	// ClearKeep leaves the local list untouched.
	ClearKeep ClearPolicy = "keep"
	// ClearReset empties the local list and all outcomes.
	ClearReset ClearPolicy = "reset"
	// ClearRelist re-fetches the listing from the backend.
	ClearRelist ClearPolicy = "relist"
)

// ParseClearPolicy validates a policy name from configuration.
func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch p := ClearPolicy(s); p {
	case ClearKeep, ClearReset, ClearRelist:
		return p, nil
	}
	return "", fmt.Errorf("unknown clear policy %q", s)
}

// Manager owns the tracked-file set and the processing flag.
type Manager struct {
	backend  Backend
	notifier Notifier
	policy   ClearPolicy
	logger   *slog.Logger
	newID    func() string

	processing atomic.Bool
	initOnce   sync.Once

	mu       sync.Mutex
	files    []TrackedFile
	outcomes map[string]Outcome
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier routes user-facing notices (clear/ingest results) to n.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithClearPolicy sets what ClearAll does to the local list on success.
func WithClearPolicy(p ClearPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager backed by b. Defaults: ClearKeep, notices logged.
func NewManager(b Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:  b,
		policy:   ClearKeep,
		logger:   slog.Default(),
		newID:    func() string { return uuid.New().String() },
		outcomes: make(map[string]Outcome),
	}
	for _, o := range opts {
		o(m)
	}
	if m.notifier == nil {
		m.notifier = LogNotifier{Logger: m.logger}
	}
	return m
}

// Initialize fetches the initial listing once. Later calls do nothing; use
// Refresh to re-list. A failed listing is logged and leaves the list as is.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn("fetching initial files failed", "error", err)
		}
	})
}

// Refresh replaces the tracked set with the backend's current listing.
func (m *Manager) Refresh(ctx context.Context) error {
	listed, err := m.backend.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	files := make([]TrackedFile, len(listed))
	for i, f := range listed {
		files[i] = TrackedFile{ID: m.newID(), Name: f.Name, Size: f.Size}
	}
	m.apply(filesListed{files: files})
	m.logger.Debug("files listed", "count", len(files))
	return nil
}

// AddFiles inserts every file into the list immediately, in order, then
// uploads them one at a time in the background. A failed upload marks that
// file as OutcomeError and the batch moves on to the next file.
func (m *Manager) AddFiles(ctx context.Context, files []LocalFile) *Batch {
	tracked := make([]TrackedFile, len(files))
	for i, f := range files {
		tracked[i] = TrackedFile{ID: m.newID(), Name: f.Name, Size: f.Size}
	}
	m.apply(filesAdded{files: tracked})

	b := newBatch(len(files))
	if len(files) == 0 {
		close(b.done)
		return b
	}

	go func() {
		defer close(b.done)
		for _, f := range files {
			m.apply(uploadStarted{name: f.Name})
			err := m.upload(ctx, f)
			m.apply(uploadSettled{name: f.Name, err: err})
			if err != nil {
				m.logger.Warn("uploading file failed", "file", f.Name, "error", err)
			}
			b.results = append(b.results, UploadResult{Name: f.Name, Err: err})
		}
	}()
	return b
}

func (m *Manager) upload(ctx context.Context, f LocalFile) error {
	if f.Open == nil {
		return fmt.Errorf("opening %s: %w", f.Name, ErrNoContent)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	return m.backend.Upload(ctx, f.Name, rc)
}

// ClearAll asks the backend to drop its document collection. It returns
// ErrBusy without touching the network if a bulk action is in flight.
func (m *Manager) ClearAll(ctx context.Context) error {
	if !m.processing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.processing.Store(false)

	if err := m.backend.ClearDocuments(ctx); err != nil {
		m.logger.Error("clearing documents failed", "error", err)
		m.notifier.Notify(Notice{Level: NoticeError, Text: "Failed to clear documents"})
		return fmt.Errorf("clearing documents: %w", err)
	}
	m.notifier.Notify(Notice{Level: NoticeSuccess, Text: "Documents collection cleared successfully"})

	switch m.policy {
	case ClearReset:
		m.apply(filesReset{})
	case ClearRelist:
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn("re-listing after clear failed", "error", err)
		}
	}
	return nil
}

// IngestAll asks the backend to ingest whatever it currently holds. With no
// tracked files it only notifies and returns ErrNoFiles.
func (m *Manager) IngestAll(ctx context.Context) error {
	if m.count() == 0 {
		m.notifier.Notify(Notice{Level: NoticeInfo, Text: "No files to ingest"})
		return ErrNoFiles
	}
	if !m.processing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.processing.Store(false)

	if err := m.backend.IngestDocuments(ctx); err != nil {
		m.logger.Error("ingesting files failed", "error", err)
		m.notifier.Notify(Notice{Level: NoticeError, Text: "Failed to ingest files"})
		return fmt.Errorf("ingesting files: %w", err)
	}
	m.notifier.Notify(Notice{Level: NoticeSuccess, Text: "Files ingested successfully"})
	return nil
}

// Processing reports whether a clear or ingest is in flight.
func (m *Manager) Processing() bool {
	return m.processing.Load()
}

// Files returns a snapshot of the tracked files with their upload outcome.
func (m *Manager) Files() []FileView {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FileView, len(m.files))
	for i, f := range m.files {
		out[i] = FileView{TrackedFile: f, Status: m.outcomes[f.Name]}
	}
	return out
}

// Outcome returns the last recorded upload outcome for name.
func (m *Manager) Outcome(name string) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[name]
}

func (m *Manager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}
