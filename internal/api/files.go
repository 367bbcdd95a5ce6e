package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kalambet/docchat/internal/ingest"
)

const maxUploadSize = 50 << 20 // 50MB

// FileEntry is one row of the list-files response.
type FileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ListUploads returns the regular files in dir sorted by name, skipping
// Finder metadata. The directory is created when missing.
func ListUploads(dir string) ([]FileEntry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading upload directory: %w", err)
	}

	files := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name() == ".DS_Store" || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileEntry{Name: e.Name(), Size: info.Size()})
	}
	return files, nil
}

func handleListFiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := ListUploads(deps.UploadDir)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, files)
	}
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "No file provided")
			return
		}
		defer file.Close()

		name := filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
		if name == "." || name == "/" || name == "" || name == ".." {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid file name %q", header.Filename)
			return
		}

		if err := saveUpload(deps.UploadDir, name, file); err != nil {
			deps.logger().Error("saving upload failed", "name", name, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save file: %v", err)
			return
		}

		deps.logger().Info("file uploaded", "name", name)
		writeJSON(w, map[string]string{
			"message":  "File uploaded successfully",
			"filename": name,
		})
	}
}

func saveUpload(dir, name string, src io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func handleClearDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Index.ClearDocuments(); err != nil {
			deps.logger().Error("clearing documents failed", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear documents: %v", err)
			return
		}
		writeJSON(w, map[string]string{"message": "Documents collection cleared successfully"})
	}
}

func handleIngestDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Ingester.Run(r.Context())
		if errors.Is(err, ingest.ErrNoDocuments) {
			httpError(w, http.StatusInternalServerError, "api_error", "No .txt, .md or .pdf files found")
			return
		}
		if err != nil {
			deps.logger().Error("ingest failed", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Failed to process documents: %v", err)
			return
		}
		writeJSON(w, map[string]any{
			"message":   "Documents processed and stored successfully",
			"documents": res.Documents,
			"chunks":    res.Chunks,
			"skipped":   res.Skipped,
		})
	}
}
