package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	APIBaseURL  string `koanf:"api_base_url"`
	CacheDir    string `koanf:"cache_dir"`
	DBPath      string `koanf:"db_path"`
	SessionPath string `koanf:"session_path"`
	LogPath     string `koanf:"log_path"`
	LogLevel    string `koanf:"log_level"`

	FeedTTL       time.Duration `koanf:"feed_ttl"`
	FeedPageSize  int           `koanf:"feed_page_size"`
	PageSize      int           `koanf:"page_size"`
	ReplyPageSize int           `koanf:"reply_page_size"`

	MonitorInterval time.Duration `koanf:"monitor_interval"`
	MonitorMax      int           `koanf:"monitor_max"`
}

func Default() Config {
	cacheDir := filepath.Join(userConfigDir(), "margin")
	return Config{
		APIBaseURL:      "https://backend.prod.researchhub.com/api",
		CacheDir:        cacheDir,
		DBPath:          filepath.Join(cacheDir, "cache.db"),
		SessionPath:     filepath.Join(cacheDir, "session.json"),
		LogPath:         filepath.Join(cacheDir, "debug.log"),
		LogLevel:        "info",
		FeedTTL:         2 * time.Minute,
		FeedPageSize:    20,
		PageSize:        15,
		ReplyPageSize:   10,
		MonitorInterval: 45 * time.Second,
		MonitorMax:      20,
	}
}

// Load returns the defaults overlaid with margin.toml from the user config
// dir (or the given path, when non-empty). A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(userConfigDir(), "margin", "margin.toml")
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Paths given relative in the file resolve under the cache dir.
	if !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(cfg.CacheDir, cfg.DBPath)
	}
	if !filepath.IsAbs(cfg.SessionPath) {
		cfg.SessionPath = filepath.Join(cfg.CacheDir, cfg.SessionPath)
	}
	if !filepath.IsAbs(cfg.LogPath) {
		cfg.LogPath = filepath.Join(cfg.CacheDir, cfg.LogPath)
	}
	return cfg, nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
