package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Backend   BackendConfig
	Documents DocumentsConfig
	Server    ServerConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Answer    AnswerConfig
	Log       LogConfig
}

// BackendConfig describes the document/chat service the client talks to.
type BackendConfig struct {
	BaseURL string
	Timeout string
}

type DocumentsConfig struct {
	// ClearPolicy is one of "keep", "reset" or "relist".
	ClearPolicy string
}

type ServerConfig struct {
	Port     int
	MaxConns int
}

type StorageConfig struct {
	DataDir   string
	UploadDir string
}

type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type RetrievalConfig struct {
	TopK int
}

type AnswerConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type LogConfig struct {
	Level string
}

const defaultTimeout = 30 * time.Second

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "30s",
		},
		Documents: DocumentsConfig{
			ClearPolicy: "keep",
		},
		Server: ServerConfig{
			Port:     8000,
			MaxConns: 64,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Ingest: IngestConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK: 3,
		},
		Answer: AnswerConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "openai/gpt-4o-mini",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Defaults returns the built-in configuration without consulting any backend.
func Defaults() Config {
	cfg := defaults()
	cfg.resolveDirs()
	return cfg
}

// resolveDirs places uploads under the final data dir unless
// storage.upload_dir was set explicitly.
func (c *Config) resolveDirs() {
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = filepath.Join(c.Storage.DataDir, "uploads")
	}
}

// Load reads configuration from the platform store, a .env file in the
// working directory, environment variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.docchat.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/docchat/config.json.
//
// Environment variables (DOCCHAT_*) override backend values on all platforms.
// Variables already set in the process environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}
	return loadWith(newPlatformStore(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b Store, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	cfg.resolveDirs()

	// The answer API key is optional; without it the server answers extractively.
	if cfg.Answer.APIKey == "" {
		if key, err := kc.Get("docchat", "answer_api_key"); err == nil && key != "" {
			cfg.Answer.APIKey = key
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("missing required config: backend.base_url")
	}
	switch c.Documents.ClearPolicy {
	case "keep", "reset", "relist":
	default:
		return fmt.Errorf("invalid documents.clear_policy %q: want keep, reset or relist", c.Documents.ClearPolicy)
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("invalid ingest.chunk_size %d: must be positive", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("invalid ingest.chunk_overlap %d: must be in [0, chunk_size)", c.Ingest.ChunkOverlap)
	}
	return nil
}

// RequestTimeout parses Backend.Timeout, falling back to 30s on bad input.
// A zero or negative duration is honoured as "no timeout".
func (c Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Backend.Timeout))
	if err != nil {
		slog.Warn("invalid backend timeout, using default", "value", c.Backend.Timeout, "default", defaultTimeout, "error", err)
		return defaultTimeout
	}
	return d
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
