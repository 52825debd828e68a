// internal/config/config.go
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PolicyLatestTriggered = "latest_triggered"
	PolicyLastResolved    = "last_resolved"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	API struct {
		BaseURL        string  `yaml:"base_url" json:"base_url"`
		Path           string  `yaml:"path" json:"path"`
		TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		RatePerSec     float64 `yaml:"rate_per_sec" json:"rate_per_sec"`
		Burst          int     `yaml:"burst" json:"burst"`
	} `yaml:"api" json:"api"`

	Page struct {
		TriggerID string `yaml:"trigger_id" json:"trigger_id"`
		RegionID  string `yaml:"region_id" json:"region_id"`
		File      string `yaml:"file" json:"file"`
	} `yaml:"page" json:"page"`

	Render struct {
		EscapeNames bool `yaml:"escape_names" json:"escape_names"`
	} `yaml:"render" json:"render"`

	Loader struct {
		Policy string `yaml:"policy" json:"policy"`
	} `yaml:"loader" json:"loader"`

	Refresh struct {
		IntervalSeconds int `yaml:"interval_seconds" json:"interval_seconds"`
	} `yaml:"refresh" json:"refresh"`
}

// Default mirrors config/config.yml.
func Default() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.App.DataDir = "."
	cfg.API.BaseURL = "http://127.0.0.1:5000"
	cfg.API.Path = "/api/employers"
	cfg.API.RatePerSec = 5
	cfg.API.Burst = 5
	cfg.Page.TriggerID = "fetch-employers"
	cfg.Page.RegionID = "employer-list"
	cfg.Page.File = "page.html"
	cfg.Render.EscapeNames = true
	cfg.Loader.Policy = PolicyLatestTriggered
	return cfg
}

// Load reads path on top of Default, so keys missing from the file keep
// their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// EndpointURL joins base_url and path.
func (c Config) EndpointURL() string {
	base := strings.TrimRight(c.API.BaseURL, "/")
	p := strings.TrimSpace(c.API.Path)
	if p == "" {
		p = "/api/employers"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}
