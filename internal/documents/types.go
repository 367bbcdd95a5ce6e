package documents

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// TrackedFile is one file the client believes the backend holds or will hold.
type TrackedFile struct {
	ID   string
	Name string
	Size int64
}

// Outcome is the result of persisting one file, keyed by file name.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// FileView is a row ready for rendering.
type FileView struct {
	TrackedFile
	Status Outcome
}

// FormatSize renders a byte count the way the file list shows it, e.g. "1.00 KB".
func FormatSize(size int64) string {
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}

// LocalFile is a file picked by the user, not yet uploaded. Build it with
// FromPath or FromBytes; a nil Open makes the upload fail with ErrNoContent.
type LocalFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FromPath describes the file at path; its content is read when uploaded.
func FromPath(path string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	if info.IsDir() {
		return LocalFile{}, fmt.Errorf("%s is a directory", path)
	}
	return LocalFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FromBytes wraps in-memory content as a LocalFile.
func FromBytes(name string, data []byte) LocalFile {
	return LocalFile{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// UploadResult is the settled result of one upload in a batch.
type UploadResult struct {
	Name string
	Err  error
}

// Batch tracks the background uploads started by one AddFiles call.
type Batch struct {
	done    chan struct{}
	results []UploadResult
}

func newBatch(n int) *Batch {
	return &Batch{done: make(chan struct{}), results: make([]UploadResult, 0, n)}
}

// Done is closed once every upload in the batch has settled.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch settles and returns per-file results in input order.
func (b *Batch) Wait() []UploadResult {
	<-b.done
	return b.results
}

// NoticeLevel classifies a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a blocking, user-visible message (the CLI prints it; a UI would alert).
type Notice struct {
	Level NoticeLevel
	Text  string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notice) {
	switch n.Level {
	case NoticeError:
		l.Logger.Error(n.Text)
	default:
		l.Logger.Info(n.Text)
	}
}
