package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything taskclock reads from config.toml and the environment.
type Config struct {
	APIURL         string
	Token          string
	StateDir       string
	SyncSeconds    int
	RefreshSeconds int
	ArchiveDSN     string
	LogLevel       string
}

const (
	defaultConfigPath     = "~/.config/taskclock/config.toml"
	defaultStateDir       = "~/.local/state/taskclock"
	defaultAPIURL         = "http://127.0.0.1:5000/api"
	defaultSyncSeconds    = 30
	defaultRefreshSeconds = 60
	defaultLogLevel       = "info"

	// EnvToken overrides the token key.
	EnvToken = "TASKCLOCK_TOKEN"
	// EnvAPIURL overrides the api_url key.
	EnvAPIURL = "TASKCLOCK_API_URL"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the config, falling back to defaults when missing.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:         defaultAPIURL,
		StateDir:       defaultStateDir,
		SyncSeconds:    defaultSyncSeconds,
		RefreshSeconds: defaultRefreshSeconds,
		LogLevel:       defaultLogLevel,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		return finish(cfg)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL         string `toml:"api_url"`
		Token          string `toml:"token"`
		StateDir       string `toml:"state_dir"`
		SyncSeconds    int    `toml:"sync_seconds"`
		RefreshSeconds int    `toml:"refresh_seconds"`
		ArchiveDSN     string `toml:"archive_dsn"`
		LogLevel       string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	if v := strings.TrimSpace(raw.StateDir); v != "" {
		cfg.StateDir = v
	}
	if raw.SyncSeconds > 0 {
		cfg.SyncSeconds = raw.SyncSeconds
	}
	if raw.RefreshSeconds > 0 {
		cfg.RefreshSeconds = raw.RefreshSeconds
	}
	cfg.ArchiveDSN = strings.TrimSpace(raw.ArchiveDSN)
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}

	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	cfg.StateDir = mustExpand(cfg.StateDir)
	return cfg, nil
}

// StatePath returns the persisted timer slot file.
func (c Config) StatePath() string {
	return filepath.Join(c.stateDir(), "timerState.json")
}

// LogPath returns the log file used while the board owns the terminal.
func (c Config) LogPath() string {
	return filepath.Join(c.stateDir(), "taskclock.log")
}

// SyncInterval is the active-timer re-sync cadence.
func (c Config) SyncInterval() time.Duration {
	if c.SyncSeconds <= 0 {
		return defaultSyncSeconds * time.Second
	}
	return time.Duration(c.SyncSeconds) * time.Second
}

// RefreshInterval is the task-list poll cadence.
func (c Config) RefreshInterval() time.Duration {
	if c.RefreshSeconds <= 0 {
		return defaultRefreshSeconds * time.Second
	}
	return time.Duration(c.RefreshSeconds) * time.Second
}

// Level returns the configured slog level; unknown values fall back to info.
func (c Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c Config) stateDir() string {
	if strings.TrimSpace(c.StateDir) == "" {
		return mustExpand(defaultStateDir)
	}
	return c.StateDir
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("parse config: unknown log_level %q", value)
	}
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
