package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	LogConfig  logger.LogConfig `json:"log_config"`
	Szurubooru SzurubooruConfig `json:"szurubooru"`
	AutoTagger AutoTaggerConfig `json:"auto_tagger"`
	History    HistoryConfig    `json:"history"`
	Serve      ServeConfig      `json:"serve"`
	Daemon     DaemonConfig     `json:"daemon"`
}

type SzurubooruConfig struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Public   bool   `json:"public"`
}

type AutoTaggerConfig struct {
	TmpPath       string         `json:"tmp_path"`
	HideProgress  bool           `json:"hide_progress"`
	SkipProcessed bool           `json:"skip_processed"`
	SauceNao      SauceNaoConfig `json:"saucenao"`
	Tagger        TaggerConfig   `json:"tagger"`
}

type SauceNaoConfig struct {
	Enabled       bool   `json:"enabled"`
	APIKey        string `json:"api_key"`
	MinSimilarity int    `json:"min_similarity"`
}

type TaggerConfig struct {
	Enabled   bool            `json:"enabled"`
	Forced    bool            `json:"forced"`
	Provider  string          `json:"provider"`
	Threshold float32         `json:"threshold"`
	Data      json.RawMessage `json:"data"`
}

type HistoryConfig struct {
	Path string `json:"path"`
}

type ServeConfig struct {
	Port int `json:"port"`
	// RateLimitMS throttles repeat calls per client and route. Zero turns
	// the limiter off.
	RateLimitMS int `json:"rate_limit_ms"`
}

type DaemonConfig struct {
	Schedule string `json:"schedule"`
	Query    string `json:"query"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Szurubooru.URL == "" {
		return nil, fmt.Errorf("szurubooru.url is required")
	}
	if cfg.Szurubooru.Username == "" {
		return nil, fmt.Errorf("szurubooru.username is required")
	}
	if cfg.Szurubooru.Token == "" {
		return nil, fmt.Errorf("szurubooru.token is required")
	}
	if cfg.AutoTagger.SauceNao.Enabled && cfg.AutoTagger.SauceNao.APIKey == "" {
		return nil, fmt.Errorf("auto_tagger.saucenao.api_key is required when saucenao is enabled")
	}
	if cfg.AutoTagger.Tagger.Enabled && cfg.AutoTagger.Tagger.Provider == "" {
		return nil, fmt.Errorf("auto_tagger.tagger.provider is required when tagger is enabled")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AutoTagger.TmpPath == "" {
		cfg.AutoTagger.TmpPath = filepath.Join(os.TempDir(), "szurutag")
	}
	if cfg.AutoTagger.SauceNao.MinSimilarity == 0 {
		cfg.AutoTagger.SauceNao.MinSimilarity = 80
	}
	if cfg.AutoTagger.Tagger.Threshold == 0 {
		cfg.AutoTagger.Tagger.Threshold = 0.35
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "szurutag.db"
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 8824
	}
	if cfg.Daemon.Schedule == "" {
		cfg.Daemon.Schedule = "0 3 * * *"
	}
	if cfg.Daemon.Query == "" {
		cfg.Daemon.Query = "tag-count:0"
	}
	if _, err := cron.ParseStandard(cfg.Daemon.Schedule); err != nil {
		return nil, fmt.Errorf("daemon.schedule is not a valid cron spec: %w", err)
	}
	return &cfg, nil
}
