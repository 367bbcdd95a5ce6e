package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

// memBackend is an in-memory Store.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
	deleted []string
}

func newMemBackend() *memBackend {
	return &memBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.strings[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *memBackend) Location() string { return "memory" }

func (m *memBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func noKeychain() mockKeychain {
	return mockKeychain{err: errors.New("no keychain")}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend(), noKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://localhost:8000")
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", cfg.RequestTimeout())
	}
	if cfg.Documents.ClearPolicy != "keep" {
		t.Errorf("Documents.ClearPolicy = %q, want keep", cfg.Documents.ClearPolicy)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("Ingest = %+v, want 1000/200", cfg.Ingest)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("Retrieval.TopK = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Answer.APIKey != "" {
		t.Errorf("Answer.APIKey = %q, want empty", cfg.Answer.APIKey)
	}
}

func TestUploadDirFollowsDataDir(t *testing.T) {
	b := newMemBackend()
	b.strings["storage.data_dir"] = "/srv/docchat"

	cfg, err := loadWith(b, noKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join("/srv/docchat", "uploads"); cfg.Storage.UploadDir != want {
		t.Errorf("Storage.UploadDir = %q, want %q", cfg.Storage.UploadDir, want)
	}

	t.Setenv("DOCCHAT_STORAGE_DATA_DIR", "/var/lib/docchat")
	cfg, err = loadWith(b, noKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join("/var/lib/docchat", "uploads"); cfg.Storage.UploadDir != want {
		t.Errorf("Storage.UploadDir with env data dir = %q, want %q", cfg.Storage.UploadDir, want)
	}

	b.strings["storage.upload_dir"] = "/mnt/inbox"
	cfg, err = loadWith(b, noKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.UploadDir != "/mnt/inbox" {
		t.Errorf("explicit Storage.UploadDir = %q, want /mnt/inbox", cfg.Storage.UploadDir)
	}
}

// TestBackendValues verifies values stored in the platform backend are applied.
func TestBackendValues(t *testing.T) {
	b := newMemBackend()
	b.strings["backend.base_url"] = "http://docs.internal:9000"
	b.strings["documents.clear_policy"] = "relist"
	b.ints["server.port"] = 9100
	b.ints["retrieval.top_k"] = 7

	cfg, err := loadWith(b, noKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://docs.internal:9000" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Documents.ClearPolicy != "relist" {
		t.Errorf("Documents.ClearPolicy = %q", cfg.Documents.ClearPolicy)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK != 7 {
		t.Errorf("Retrieval.TopK = %d", cfg.Retrieval.TopK)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	b := newMemBackend()
	b.strings["backend.base_url"] = "http://file:8000"

	t.Setenv("DOCCHAT_BACKEND_BASE_URL", "http://env:8000")
	t.Setenv("DOCCHAT_BACKEND_TIMEOUT", "5s")
	t.Setenv("DOCCHAT_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(b, noKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://env:8000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://env:8000")
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Errorf("RequestTimeout() = %v, want 5s", cfg.RequestTimeout())
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000 for unparsable env", cfg.Server.Port)
	}
}

func TestInvalidClearPolicy(t *testing.T) {
	t.Setenv("DOCCHAT_DOCUMENTS_CLEAR_POLICY", "wipe")

	_, err := loadWith(newMemBackend(), noKeychain())
	if err == nil {
		t.Fatal("expected error for invalid clear policy, got nil")
	}
	if !strings.Contains(err.Error(), "clear_policy") {
		t.Errorf("error = %q, want it to mention clear_policy", err.Error())
	}
}

func TestInvalidChunkOverlap(t *testing.T) {
	b := newMemBackend()
	b.ints["ingest.chunk_size"] = 100
	b.ints["ingest.chunk_overlap"] = 100

	if _, err := loadWith(b, noKeychain()); err == nil {
		t.Fatal("expected error for overlap >= chunk size, got nil")
	}
}

// TestKeychainFallback verifies the secret store is consulted for the answer API key.
func TestKeychainFallback(t *testing.T) {
	t.Setenv("DOCCHAT_ANSWER_API_KEY", "")

	cfg, err := loadWith(newMemBackend(), mockKeychain{value: "keychain-secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Answer.APIKey != "keychain-secret" {
		t.Errorf("Answer.APIKey = %q, want %q", cfg.Answer.APIKey, "keychain-secret")
	}
}

func TestRequestTimeout_Invalid(t *testing.T) {
	cfg := defaults()
	cfg.Backend.Timeout = "soon"
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want fallback 30s", got)
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()

	if err := setKeyWith(b, "server.port", "9001"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b.ints["server.port"] != 9001 {
		t.Errorf("server.port = %d, want 9001", b.ints["server.port"])
	}

	if err := setKeyWith(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "documents.clear_policy", "bogus"); err == nil {
		t.Error("expected error for invalid clear policy")
	}
	if err := setKeyWith(b, "answer.api_key", "x"); err == nil {
		t.Error("expected error for secret key")
	}
	if err := setKeyWith(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestUnsetKey(t *testing.T) {
	b := newMemBackend()
	b.strings["backend.base_url"] = "http://x"

	if err := unsetKeyWith(b, "backend.base_url"); err != nil {
		t.Fatalf("unsetKeyWith: %v", err)
	}
	if _, ok := b.strings["backend.base_url"]; ok {
		t.Error("backend.base_url still set after unset")
	}
	if err := unsetKeyWith(b, "unknown.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Answer.APIKey = "sk-secret"

	for _, k := range ShowAll(cfg) {
		if k.Key == "answer.api_key" {
			t.Fatal("ShowAll exposed answer.api_key")
		}
		if strings.Contains(k.Value, "sk-secret") {
			t.Fatalf("ShowAll leaked secret in %s", k.Key)
		}
	}
	if len(ValidKeys()) != len(specs)-1 {
		t.Errorf("ValidKeys() = %d keys, want %d", len(ValidKeys()), len(specs)-1)
	}
}
