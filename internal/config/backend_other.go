//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "docchat")
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "docchat", "config.json")
}

// xdgDir returns $env, or ~/<fallback...>, or "." when there is no home.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// fileStore keeps config as JSON grouped by section:
//
//	{"backend": {"base_url": "http://localhost:8000"}, "server": {"port": 8000}}
type fileStore struct {
	path     string
	sections map[string]map[string]any
}

func newPlatformStore() Store {
	return openFileStore(configFilePath())
}

func openFileStore(path string) *fileStore {
	s := &fileStore{path: path, sections: make(map[string]map[string]any)}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read config file, using default values", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.sections); err != nil {
		slog.Warn("could not parse config file, using default values", "path", path, "error", err)
		s.sections = make(map[string]map[string]any)
	}
	return s
}

func (s *fileStore) Location() string { return s.path }

func splitKey(key string) (section, field string) {
	section, field, ok := strings.Cut(key, ".")
	if !ok {
		return "", key
	}
	return section, field
}

func (s *fileStore) lookup(key string) (any, bool) {
	section, field := splitKey(key)
	v, ok := s.sections[section][field]
	return v, ok
}

func (s *fileStore) put(key string, v any) error {
	section, field := splitKey(key)
	if s.sections[section] == nil {
		s.sections[section] = make(map[string]any)
	}
	s.sections[section][field] = v
	return s.save()
}

// save writes through a temp file so a crash never leaves half a config behind.
func (s *fileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(s.sections, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

func (s *fileStore) GetString(key string) (string, bool, error) {
	v, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	if str, isStr := v.(string); isStr {
		return str, true, nil
	}
	return fmt.Sprint(v), true, nil
}

func (s *fileStore) GetInt(key string) (int, bool, error) {
	v, ok := s.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, true, fmt.Errorf("%s: %v is not an integer", key, val)
		}
		return int(val), true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("%s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: unexpected %T", key, v)
	}
}

func (s *fileStore) SetString(key, val string) error { return s.put(key, val) }

func (s *fileStore) SetInt(key string, val int) error { return s.put(key, val) }

// Delete drops the key and, once empty, its section.
func (s *fileStore) Delete(key string) error {
	section, field := splitKey(key)
	fields, ok := s.sections[section]
	if !ok {
		return nil
	}
	delete(fields, field)
	if len(fields) == 0 {
		delete(s.sections, section)
	}
	return s.save()
}
