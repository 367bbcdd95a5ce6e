//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.docchat.app"

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "docchat")
	}
	return "docchat-data"
}

// defaultsStore keeps each dotted key as its own UserDefaults entry.
type defaultsStore struct {
	domain string
}

func newPlatformStore() Store {
	return defaultsStore{domain: defaultsDomain}
}

func (s defaultsStore) Location() string { return "defaults domain " + s.domain }

func (s defaultsStore) run(args ...string) (string, error) {
	out, err := exec.Command("defaults", args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (s defaultsStore) GetString(key string) (string, bool, error) {
	out, err := s.run("read", s.domain, key)
	if err != nil {
		// defaults exits 1 for a missing key or domain.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, out)
	}
	return out, true, nil
}

func (s defaultsStore) GetInt(key string) (int, bool, error) {
	raw, ok, err := s.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return i, true, nil
}

func (s defaultsStore) write(key, typ, val string) error {
	if out, err := s.run("write", s.domain, key, typ, val); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, out)
	}
	return nil
}

func (s defaultsStore) SetString(key, val string) error { return s.write(key, "-string", val) }

func (s defaultsStore) SetInt(key string, val int) error {
	return s.write(key, "-int", strconv.Itoa(val))
}

func (s defaultsStore) Delete(key string) error {
	if _, ok, err := s.GetString(key); err != nil || !ok {
		return err
	}
	if out, err := s.run("delete", s.domain, key); err != nil {
		return fmt.Errorf("defaults delete %s: %w (%s)", key, err, out)
	}
	return nil
}
