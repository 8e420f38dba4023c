// Package config loads pagetl settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/document"
	"github.com/ZaguanLabs/pagetl/messaging"
	"github.com/ZaguanLabs/pagetl/service"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "pagetl.yaml"

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config is the complete configuration.
type Config struct {
	TargetLanguage string         `yaml:"target_language"`
	Mode           string         `yaml:"mode"`
	Streaming      bool           `yaml:"streaming"`
	Extract        ExtractConfig  `yaml:"extract"`
	Provider       ProviderConfig `yaml:"provider"`
	Detector       DetectorConfig `yaml:"detector"`
	Service        ServiceConfig  `yaml:"service"`
	Redis          RedisConfig    `yaml:"redis"`
	Server         ServerConfig   `yaml:"server"`
	Log            LogConfig      `yaml:"log"`
}

// ExtractConfig tunes unit extraction.
type ExtractConfig struct {
	MinTextLength     int      `yaml:"min_text_length"`
	ExcludedTags      []string `yaml:"excluded_tags,omitempty"`
	ExcludedClasses   []string `yaml:"excluded_classes,omitempty"`
	ExcludedSelectors []string `yaml:"excluded_selectors,omitempty"`
}

// ProviderConfig selects and configures the translation capability.
type ProviderConfig struct {
	Name              string  `yaml:"name"`
	Model             string  `yaml:"model,omitempty"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	APIKey            string  `yaml:"api_key,omitempty"`
	Temperature       float32 `yaml:"temperature,omitempty"`
	RequestsPerMinute int     `yaml:"requests_per_minute,omitempty"` // 0 disables rate limiting
	Burst             int     `yaml:"burst,omitempty"`
}

// DetectorConfig configures the lingua-go detector.
type DetectorConfig struct {
	Languages   []string `yaml:"languages,omitempty"` // ISO 639-1 codes; empty means all
	LowAccuracy bool     `yaml:"low_accuracy"`
	Preload     bool     `yaml:"preload"`
}

// ServiceConfig holds the translation service timings.
type ServiceConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	DownloadWait     time.Duration `yaml:"download_wait"`
	MaxCreateRetries int           `yaml:"max_create_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
}

// RedisConfig enables event publishing when URL is set.
type RedisConfig struct {
	URL     string `yaml:"url,omitempty"`
	Channel string `yaml:"channel,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TargetLanguage: pagetl.DefaultTargetLanguage,
		Mode:           string(document.ModeBlock),
		Extract: ExtractConfig{
			MinTextLength: document.DefaultMinTextLength,
		},
		Provider: ProviderConfig{
			Name: ProviderOpenAI,
		},
		Service: ServiceConfig{
			PollInterval:     service.DefaultPollInterval,
			DownloadWait:     service.DefaultDownloadWait,
			MaxCreateRetries: service.DefaultMaxCreateRetries,
			RetryDelay:       service.DefaultRetryDelay,
		},
		Redis: RedisConfig{
			Channel: messaging.DefaultChannel,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// process environment. An empty path loads DefaultFileName if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

// LoadDotEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PAGETL_TARGET_LANGUAGE", &c.TargetLanguage)
	str("PAGETL_MODE", &c.Mode)
	str("PAGETL_PROVIDER", &c.Provider.Name)
	str("PAGETL_MODEL", &c.Provider.Model)
	str("PAGETL_BASE_URL", &c.Provider.BaseURL)
	str("OPENAI_API_KEY", &c.Provider.APIKey)
	str("PAGETL_API_KEY", &c.Provider.APIKey)
	str("PAGETL_REDIS_URL", &c.Redis.URL)
	str("PAGETL_REDIS_CHANNEL", &c.Redis.Channel)
	str("PAGETL_SERVER_ADDR", &c.Server.Addr)
	str("PAGETL_LOG_LEVEL", &c.Log.Level)
	str("PAGETL_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("PAGETL_STREAMING"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Streaming = b
		}
	}
	if v, ok := lookup("PAGETL_DETECTOR_LANGUAGES"); ok && v != "" {
		c.Detector.Languages = splitList(v)
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TargetLanguage) == "" {
		return fmt.Errorf("target_language must not be empty")
	}
	if _, ok := document.ParseMode(c.Mode); !ok {
		return fmt.Errorf("unknown mode %q (want node or block)", c.Mode)
	}
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q (want openai or mock)", c.Provider.Name)
	}
	if c.Extract.MinTextLength < 0 {
		return fmt.Errorf("extract.min_text_length must not be negative")
	}
	if c.Provider.RequestsPerMinute < 0 || c.Provider.Burst < 0 {
		return fmt.Errorf("provider rate limits must not be negative")
	}
	if c.Service.PollInterval <= 0 || c.Service.DownloadWait <= 0 || c.Service.RetryDelay <= 0 {
		return fmt.Errorf("service durations must be positive")
	}
	if c.Service.MaxCreateRetries < 0 {
		return fmt.Errorf("service.max_create_retries must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// DocumentOptions returns the extraction options for a page.
func (c *Config) DocumentOptions() []document.Option {
	mode, _ := document.ParseMode(c.Mode)
	opts := []document.Option{
		document.WithMode(mode),
		document.WithMinTextLength(c.Extract.MinTextLength),
	}
	if len(c.Extract.ExcludedTags) > 0 {
		opts = append(opts, document.WithExcludedTags(c.Extract.ExcludedTags...))
	}
	if len(c.Extract.ExcludedClasses) > 0 {
		opts = append(opts, document.WithExcludedClasses(c.Extract.ExcludedClasses...))
	}
	if len(c.Extract.ExcludedSelectors) > 0 {
		opts = append(opts, document.WithExcludedSelectors(c.Extract.ExcludedSelectors...))
	}
	return opts
}

// ServiceOptions returns the translation service options.
func (c *Config) ServiceOptions(logger *slog.Logger) []service.Option {
	return []service.Option{
		service.WithLogger(logger),
		service.WithPollInterval(c.Service.PollInterval),
		service.WithDownloadWait(c.Service.DownloadWait),
		service.WithMaxCreateRetries(c.Service.MaxCreateRetries),
		service.WithRetryDelay(c.Service.RetryDelay),
	}
}

// Logger builds a structured logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
