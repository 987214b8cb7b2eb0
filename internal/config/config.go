package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/multierr"

	"github.com/hamed0406/siteprobe/internal/domain"
)

const AppName = "siteprobe"

// Per-variant defaults. A zero Concurrency or Timeout in Config selects them;
// a value given explicitly through a file, the environment or a flag must be positive.
const (
	DefaultStatusConcurrency  = 40
	DefaultStatusTimeout      = 10 * time.Second
	DefaultCaptureConcurrency = 4
	DefaultCaptureTimeout     = 15 * time.Second
)

var ErrUnsupportedConfigFile = errors.New("unsupported config file extension")

type Config struct {
	// probing
	Concurrency    int
	Timeout        time.Duration // per attempt
	Schemes        []string
	InsecureTLS    bool
	MaxRedirects   int
	UserAgent      string
	LaunchRPS      float64 // 0 = unpaced
	DNSDiagnostics bool

	// capture
	ScreenshotDir  string
	ViewportWidth  int
	ViewportHeight int
	Settle         time.Duration
	ChromePath     string

	// output
	OutDir       string
	Formats      []string // empty selects the variant's defaults
	DatabasePath string // empty disables run history

	// service
	Addr           string // API bind address, e.g. "127.0.0.1:8080" or ":8080" (Docker)
	AllowedOrigins []string
	PublicAPIKeys  []string
	AdminAPIKeys   []string
	PublicRPM      int
	PublicBurst    int
	AdminRPM       int
	AdminBurst     int

	LogDir          string
	LogLevel        string
	SlackWebhookURL string

	// rejected holds explicit settings that failed to apply, keyed by setting.
	// A later layer that sets a valid value clears the entry.
	rejected map[string]error
}

// SetConcurrency applies an explicitly requested bound. Values below 1 are
// recorded and returned instead of falling back to the variant default.
func (c *Config) SetConcurrency(n int, source string) error {
	if n < 1 {
		return c.reject("concurrency", fmt.Errorf("%s: concurrency must be >= 1, got %d", source, n))
	}
	c.Concurrency = n
	delete(c.rejected, "concurrency")
	return nil
}

// SetTimeout applies an explicitly requested per-attempt timeout.
func (c *Config) SetTimeout(d time.Duration, source string) error {
	if d <= 0 {
		return c.reject("timeout", fmt.Errorf("%s: timeout must be positive, got %s", source, d))
	}
	c.Timeout = d
	delete(c.rejected, "timeout")
	return nil
}

func (c *Config) reject(key string, err error) error {
	if c.rejected == nil {
		c.rejected = make(map[string]error)
	}
	c.rejected[key] = err
	return err
}

func Default() Config {
	return Config{
		Schemes:        []string{"https", "http"},
		MaxRedirects:   10,
		ScreenshotDir:  "screenshots",
		ViewportWidth:  1280,
		ViewportHeight: 800,
		OutDir:         ".",
		DatabasePath:   DefaultDatabasePath(),
		Addr:           "127.0.0.1:8080",
		PublicRPM:      60,
		PublicBurst:    10,
		AdminRPM:       30,
		AdminBurst:     5,
		LogDir:         "logs",
		LogLevel:       "info",
	}
}

// DefaultDatabasePath places run history under the XDG data home,
// e.g. ~/.local/share/siteprobe/history.db on Linux.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, AppName, "history.db")
}

// FromEnv returns the defaults overridden by environment variables.
func FromEnv() Config {
	c := Default()
	c.ApplyEnv()
	return c
}

// Load applies, in order: defaults, the optional config file, environment.
// CLI flags are layered on top by the caller.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return c, err
		}
	}
	c.ApplyEnv()
	return c, nil
}

// ForVariant resolves the effective concurrency and attempt timeout.
func (c Config) ForVariant(v domain.Variant) (int, time.Duration) {
	n, t := c.Concurrency, c.Timeout
	if v == domain.VariantCapture {
		if n == 0 {
			n = DefaultCaptureConcurrency
		}
		if t == 0 {
			t = DefaultCaptureTimeout
		}
		return n, t
	}
	if n == 0 {
		n = DefaultStatusConcurrency
	}
	if t == 0 {
		t = DefaultStatusTimeout
	}
	return n, t
}

// FormatsFor returns the report formats for v: csv for status runs,
// html and xlsx for capture runs, unless formats were configured.
func (c Config) FormatsFor(v domain.Variant) []string {
	if len(c.Formats) > 0 {
		return c.Formats
	}
	if v == domain.VariantCapture {
		return []string{"html", "xlsx"}
	}
	return []string{"csv"}
}

// ParsedSchemes returns the validated fallback order.
func (c Config) ParsedSchemes() ([]domain.Scheme, error) {
	return domain.ParseSchemes(c.Schemes)
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	for _, key := range []string{"concurrency", "timeout"} {
		if e, ok := c.rejected[key]; ok {
			err = multierr.Append(err, e)
		}
	}
	if c.Concurrency < 0 {
		err = multierr.Append(err, fmt.Errorf("concurrency must be >= 1 (or 0 for the default), got %d", c.Concurrency))
	}
	if c.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if _, e := c.ParsedSchemes(); e != nil {
		err = multierr.Append(err, fmt.Errorf("schemes: %w", e))
	}
	if c.MaxRedirects < 0 {
		err = multierr.Append(err, fmt.Errorf("max redirects must be >= 0, got %d", c.MaxRedirects))
	}
	if c.LaunchRPS < 0 {
		err = multierr.Append(err, fmt.Errorf("launch rps must be >= 0, got %g", c.LaunchRPS))
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		err = multierr.Append(err, fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight))
	}
	if c.Settle < 0 {
		err = multierr.Append(err, fmt.Errorf("settle delay must be >= 0, got %s", c.Settle))
	}
	for _, f := range c.Formats {
		switch strings.ToLower(f) {
		case "csv", "xlsx", "excel", "html", "md", "markdown":
		default:
			err = multierr.Append(err, fmt.Errorf("unknown report format %q", f))
		}
	}
	if c.PublicRPM < 0 || c.AdminRPM < 0 || c.PublicBurst < 0 || c.AdminBurst < 0 {
		err = multierr.Append(err, errors.New("rate limits must be >= 0"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	return err
}

func (c *Config) ApplyEnv() {
	if v := os.Getenv("MAX_CONCURRENT_CHECKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			_ = c.reject("concurrency", fmt.Errorf("MAX_CONCURRENT_CHECKS: not an integer: %q", v))
		} else {
			_ = c.SetConcurrency(n, "MAX_CONCURRENT_CHECKS")
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			_ = c.reject("timeout", fmt.Errorf("HTTP_TIMEOUT_MS: not an integer: %q", v))
		} else {
			_ = c.SetTimeout(time.Duration(ms)*time.Millisecond, "HTTP_TIMEOUT_MS")
		}
	}
	if v := os.Getenv("SCHEMES"); v != "" {
		c.Schemes = splitList(v)
	}
	if v := os.Getenv("INSECURE_TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.InsecureTLS = b
		}
	}
	if v := os.Getenv("MAX_REDIRECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRedirects = n
		}
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("LAUNCH_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LaunchRPS = f
		}
	}
	if v := os.Getenv("DNS_DIAGNOSTICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DNSDiagnostics = b
		}
	}

	if v := os.Getenv("SCREENSHOT_DIR"); v != "" {
		c.ScreenshotDir = v
	}
	setInt(&c.ViewportWidth, "VIEWPORT_WIDTH")
	setInt(&c.ViewportHeight, "VIEWPORT_HEIGHT")
	if v := os.Getenv("SETTLE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			c.Settle = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		c.ChromePath = v
	}

	if v := os.Getenv("OUT_DIR"); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv("REPORT_FORMATS"); v != "" {
		c.Formats = splitList(v)
	}
	if v, ok := os.LookupEnv("DATABASE_PATH"); ok {
		c.DatabasePath = strings.TrimSpace(v)
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("PUBLIC_API_KEYS"); v != "" {
		c.PublicAPIKeys = splitList(v)
	}
	if v := os.Getenv("ADMIN_API_KEYS"); v != "" {
		c.AdminAPIKeys = splitList(v)
	}
	setInt(&c.PublicRPM, "PUBLIC_RPM")
	setInt(&c.PublicBurst, "PUBLIC_BURST")
	setInt(&c.AdminRPM, "ADMIN_RPM")
	setInt(&c.AdminBurst, "ADMIN_BURST")

	if v := os.Getenv("LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.SlackWebhookURL = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
