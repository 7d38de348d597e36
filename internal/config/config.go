package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port     int    `yaml:"port"`
		DataPath string `yaml:"data_path"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"app"`

	Torrent struct {
		// Backend is 'builtin' (in-process client) or 'qbittorrent'.
		Backend         string `yaml:"backend"`
		DownloadPath    string `yaml:"download_path"`
		MaxPeers        int    `yaml:"max_peers"`
		Seed            bool   `yaml:"seed"`
		MetadataTimeout int    `yaml:"metadata_timeout_seconds"`
		CleanupMaxAge   int    `yaml:"cleanup_max_age_hours"`

		QBittorrent struct {
			Host     string `yaml:"host"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"qbittorrent"`
	} `yaml:"torrent"`

	Search struct {
		// Torznab endpoint; empty disables the search API.
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"search"`

	Rooms struct {
		ChatHistory int `yaml:"chat_history"`
	} `yaml:"rooms"`

	Notifications struct {
		PushbulletAPIKey string `yaml:"pushbullet_api_key"`
	} `yaml:"notifications"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.App.Port = 8080
	cfg.App.DataPath = "./data"
	cfg.App.Debug = false

	cfg.Torrent.Backend = "builtin"
	cfg.Torrent.DownloadPath = "./data/torrents"
	cfg.Torrent.MaxPeers = 0
	cfg.Torrent.MetadataTimeout = 30
	cfg.Torrent.CleanupMaxAge = 24
	cfg.Torrent.QBittorrent.Host = "http://localhost:8081"

	cfg.Rooms.ChatHistory = 100

	cfg.Database.Path = "./data/syncwatch.db"
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SYNCWATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = port
		}
	}
	if v := os.Getenv("SYNCWATCH_DATA_PATH"); v != "" {
		cfg.App.DataPath = v
	}
	if v := os.Getenv("SYNCWATCH_DOWNLOAD_PATH"); v != "" {
		cfg.Torrent.DownloadPath = v
	}
	if v := os.Getenv("SYNCWATCH_SEARCH_URL"); v != "" {
		cfg.Search.URL = v
	}
	if v := os.Getenv("SYNCWATCH_PUSHBULLET_KEY"); v != "" {
		cfg.Notifications.PushbulletAPIKey = v
	}
}
