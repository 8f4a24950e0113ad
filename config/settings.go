package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Upstream UpstreamSettings `json:"upstream"`
	Resolver ResolverSettings `json:"resolver"`
	Proxy    ProxySettings    `json:"proxy"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// UpstreamSettings points at the catalog API and its image host.
type UpstreamSettings struct {
	APIBase   string `json:"apiBase"`
	ImageBase string `json:"imageBase"`
	Referer   string `json:"referer"`
}

// ResolverSettings controls identifier resolution.
type ResolverSettings struct {
	CinemetaMirrors []string `json:"cinemetaMirrors"`
	CacheSize       int      `json:"cacheSize"`
}

// ProxySettings controls URL masking and the image cache.
type ProxySettings struct {
	// Key is the fixed byte XORed into every masked URL. Changing it
	// invalidates all previously minted tokens.
	Key            int `json:"key"`
	ImageCacheSize int `json:"imageCacheSize"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 7000},
		Upstream: UpstreamSettings{
			APIBase:   "https://phimapi.com",
			ImageBase: "https://phimimg.com",
			Referer:   "https://phimapi.com/",
		},
		Resolver: ResolverSettings{
			CinemetaMirrors: []string{
				"https://cinemeta-live.strem.io",
				"https://v3-cinemeta.strem.io",
			},
			CacheSize: 4096,
		},
		Proxy: ProxySettings{Key: 69, ImageCacheSize: 256},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			Level:      "info",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		// create with defaults
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for newly introduced settings when config predates them
	defaults := DefaultSettings()
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = defaults.Server.Host
	}
	if s.Server.Port <= 0 {
		s.Server.Port = defaults.Server.Port
	}
	if strings.TrimSpace(s.Upstream.APIBase) == "" {
		s.Upstream.APIBase = defaults.Upstream.APIBase
	}
	if strings.TrimSpace(s.Upstream.ImageBase) == "" {
		s.Upstream.ImageBase = defaults.Upstream.ImageBase
	}
	if strings.TrimSpace(s.Upstream.Referer) == "" {
		s.Upstream.Referer = defaults.Upstream.Referer
	}
	if len(s.Resolver.CinemetaMirrors) == 0 {
		s.Resolver.CinemetaMirrors = defaults.Resolver.CinemetaMirrors
	}
	if s.Resolver.CacheSize <= 0 {
		s.Resolver.CacheSize = defaults.Resolver.CacheSize
	}
	if s.Proxy.Key <= 0 || s.Proxy.Key > 255 {
		s.Proxy.Key = defaults.Proxy.Key
	}
	if s.Proxy.ImageCacheSize <= 0 {
		s.Proxy.ImageCacheSize = defaults.Proxy.ImageCacheSize
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = defaults.Log.File
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = defaults.Log.MaxSize
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = defaults.Log.MaxAge
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
