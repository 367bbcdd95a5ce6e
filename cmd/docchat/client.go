package main

import (
	"fmt"

	"github.com/kalambet/docchat/internal/backend"
	"github.com/kalambet/docchat/internal/config"
	"github.com/kalambet/docchat/internal/documents"
)

var loadConfig = config.Load

// loadSettings loads configuration, applies the global flags and installs
// the configured logger.
func loadSettings() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if baseURLFlag != "" {
		cfg.Backend.BaseURL = baseURLFlag
	}
	if timeoutFlag > 0 {
		cfg.Backend.Timeout = timeoutFlag.String()
	}
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

var newBackendClient = func(cfg config.Config) *backend.Client {
	return backend.New(cfg.Backend.BaseURL, backend.WithTimeout(cfg.RequestTimeout()))
}

func newManager(cfg config.Config) (*documents.Manager, error) {
	policy, err := documents.ParseClearPolicy(cfg.Documents.ClearPolicy)
	if err != nil {
		return nil, err
	}
	return documents.NewManager(
		newBackendClient(cfg),
		documents.WithClearPolicy(policy),
		documents.WithNotifier(cliNotifier{}),
	), nil
}
