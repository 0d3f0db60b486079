package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for the client.
type Config struct {
	// ServerURL is the base URL of the lesson service. Empty means
	// offline mode: sessions run locally against the cached bank.
	ServerURL string

	// CachePath is the SQLite file backing the local session cache.
	CachePath string

	// TokenPath is where access/refresh tokens are persisted.
	TokenPath string

	// LogPath and LogLevel configure the file logger.
	LogPath  string
	LogLevel string

	// HistoryPageSize is the page size for history requests.
	HistoryPageSize int

	// RequestTimeout bounds each remote call.
	RequestTimeout time.Duration
}

// Load reads configuration from $XDG_CONFIG_HOME/kulai/config.env and
// KULAI_* environment variables. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("env")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("KULAI")
	v.AutomaticEnv()

	v.SetDefault("SERVER_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HISTORY_PAGE_SIZE", 10)
	v.SetDefault("REQUEST_TIMEOUT", "15s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerURL:       v.GetString("SERVER_URL"),
		CachePath:       v.GetString("CACHE_PATH"),
		TokenPath:       v.GetString("TOKEN_PATH"),
		LogPath:         v.GetString("LOG_PATH"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		HistoryPageSize: v.GetInt("HISTORY_PAGE_SIZE"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
	}

	if cfg.CachePath == "" {
		p, err := DefaultCachePath()
		if err != nil {
			return nil, err
		}
		cfg.CachePath = p
	}
	if cfg.TokenPath == "" {
		p, err := defaultStatePath("tokens.json")
		if err != nil {
			return nil, err
		}
		cfg.TokenPath = p
	}
	if cfg.LogPath == "" {
		p, err := defaultStatePath("kulai.log")
		if err != nil {
			return nil, err
		}
		cfg.LogPath = p
	}

	return cfg, nil
}

// DefaultCachePath resolves the cache database file path in priority order:
// 1. KULAI_CACHE_PATH environment variable
// 2. $XDG_DATA_HOME/kulai/cache.db
// 3. ~/.local/share/kulai/cache.db
func DefaultCachePath() (string, error) {
	if p := os.Getenv("KULAI_CACHE_PATH"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "kulai", "cache.db")
	return p, EnsureDir(p)
}

func configDir() (string, error) {
	confHome := os.Getenv("XDG_CONFIG_HOME")
	if confHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		confHome = filepath.Join(home, ".config")
	}
	return filepath.Join(confHome, "kulai"), nil
}

func defaultStatePath(name string) (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	p := filepath.Join(stateHome, "kulai", name)
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
