package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the keys accepted in a config file. Pointer fields
// distinguish "absent" from a zero value so only present keys override.
type fileConfig struct {
	Concurrency    *int     `yaml:"concurrency" toml:"concurrency"`
	TimeoutMS      *int     `yaml:"timeout_ms" toml:"timeout_ms"`
	Schemes        []string `yaml:"schemes" toml:"schemes"`
	InsecureTLS    *bool    `yaml:"insecure_tls" toml:"insecure_tls"`
	MaxRedirects   *int     `yaml:"max_redirects" toml:"max_redirects"`
	UserAgent      *string  `yaml:"user_agent" toml:"user_agent"`
	LaunchRPS      *float64 `yaml:"launch_rps" toml:"launch_rps"`
	DNSDiagnostics *bool    `yaml:"dns_diagnostics" toml:"dns_diagnostics"`

	Capture struct {
		Dir        *string `yaml:"dir" toml:"dir"`
		Width      *int    `yaml:"width" toml:"width"`
		Height     *int    `yaml:"height" toml:"height"`
		SettleMS   *int    `yaml:"settle_ms" toml:"settle_ms"`
		ChromePath *string `yaml:"chrome_path" toml:"chrome_path"`
	} `yaml:"capture" toml:"capture"`

	Output struct {
		Dir      *string  `yaml:"dir" toml:"dir"`
		Formats  []string `yaml:"formats" toml:"formats"`
		Database *string  `yaml:"database" toml:"database"`
	} `yaml:"output" toml:"output"`

	API struct {
		Addr           *string  `yaml:"addr" toml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
		PublicRPM      *int     `yaml:"public_rpm" toml:"public_rpm"`
		PublicBurst    *int     `yaml:"public_burst" toml:"public_burst"`
		AdminRPM       *int     `yaml:"admin_rpm" toml:"admin_rpm"`
		AdminBurst     *int     `yaml:"admin_burst" toml:"admin_burst"`
	} `yaml:"api" toml:"api"`

	Log struct {
		Dir   *string `yaml:"dir" toml:"dir"`
		Level *string `yaml:"level" toml:"level"`
	} `yaml:"log" toml:"log"`

	SlackWebhookURL *string `yaml:"slack_webhook_url" toml:"slack_webhook_url"`
}

// LoadFile overlays a .yaml/.yml or .toml file onto c. API keys are
// only read from the environment.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(raw), &fc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedConfigFile, path)
	}
	fc.apply(c)
	return nil
}

func (fc *fileConfig) apply(c *Config) {
	if fc.Concurrency != nil {
		_ = c.SetConcurrency(*fc.Concurrency, "config file")
	}
	if fc.TimeoutMS != nil {
		_ = c.SetTimeout(time.Duration(*fc.TimeoutMS)*time.Millisecond, "config file")
	}
	if len(fc.Schemes) > 0 {
		c.Schemes = fc.Schemes
	}
	set(&c.InsecureTLS, fc.InsecureTLS)
	set(&c.MaxRedirects, fc.MaxRedirects)
	set(&c.UserAgent, fc.UserAgent)
	set(&c.LaunchRPS, fc.LaunchRPS)
	set(&c.DNSDiagnostics, fc.DNSDiagnostics)

	set(&c.ScreenshotDir, fc.Capture.Dir)
	set(&c.ViewportWidth, fc.Capture.Width)
	set(&c.ViewportHeight, fc.Capture.Height)
	if fc.Capture.SettleMS != nil {
		c.Settle = time.Duration(*fc.Capture.SettleMS) * time.Millisecond
	}
	set(&c.ChromePath, fc.Capture.ChromePath)

	set(&c.OutDir, fc.Output.Dir)
	if len(fc.Output.Formats) > 0 {
		c.Formats = fc.Output.Formats
	}
	set(&c.DatabasePath, fc.Output.Database)

	set(&c.Addr, fc.API.Addr)
	if len(fc.API.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.API.AllowedOrigins
	}
	set(&c.PublicRPM, fc.API.PublicRPM)
	set(&c.PublicBurst, fc.API.PublicBurst)
	set(&c.AdminRPM, fc.API.AdminRPM)
	set(&c.AdminBurst, fc.API.AdminBurst)

	set(&c.LogDir, fc.Log.Dir)
	set(&c.LogLevel, fc.Log.Level)
	set(&c.SlackWebhookURL, fc.SlackWebhookURL)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
