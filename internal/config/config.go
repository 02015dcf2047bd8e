package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the client settings read from config.toml.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	PageLimit      int
	AutoRefresh    time.Duration // zero disables the background poller
	LogFile        string
	LogLevel       string
	ReleaseRepo    string
}

const (
	defaultConfigPath     = "~/.config/fadeapi/config.toml"
	defaultBaseURL        = "https://fadeapi-498d1e85e7e4.herokuapp.com/"
	defaultRequestTimeout = 60 * time.Second
	defaultPageLimit      = 50
	defaultLogFile        = "~/.local/state/fadeapi/client.log"
	defaultLogLevel       = "info"
	defaultReleaseRepo    = "marzzelo/FAdeAPI-client"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		RequestTimeout: defaultRequestTimeout,
		PageLimit:      defaultPageLimit,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		ReleaseRepo:    defaultReleaseRepo,
	}
}

// Load locates and parses the client config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BaseURL        string `toml:"base_url"`
		RequestTimeout int    `toml:"request_timeout_seconds"`
		PageLimit      int    `toml:"page_limit"`
		AutoRefresh    int    `toml:"auto_refresh_seconds"`
		LogFile        string `toml:"log_file"`
		LogLevel       string `toml:"log_level"`
		ReleaseRepo    string `toml:"release_repo"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if raw.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeout) * time.Second
	}
	if raw.PageLimit > 0 {
		cfg.PageLimit = raw.PageLimit
	}
	if raw.AutoRefresh > 0 {
		cfg.AutoRefresh = time.Duration(raw.AutoRefresh) * time.Second
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.ReleaseRepo); v != "" {
		cfg.ReleaseRepo = v
	}

	return cfg, nil
}

// DefaultPath returns the default config file path, expanded.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
