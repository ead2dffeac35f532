// Package config loads the parsekit service configuration from YAML and the
// environment, and builds the parser it describes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/parsekit/decode"
	"github.com/hazyhaar/parsekit/format"
	"github.com/hazyhaar/parsekit/parser"
	"github.com/hazyhaar/parsekit/source"
)

// Config is the full service configuration.
type Config struct {
	Listen   string          `yaml:"listen"`
	LogLevel string          `yaml:"log_level"`
	Parser   parser.Config   `yaml:"parser"`
	Decoders DecoderConfig   `yaml:"decoders"`
	Cache    CacheConfig     `yaml:"cache"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	S3       source.S3Config `yaml:"s3"`
	Auth     AuthConfig      `yaml:"auth"`

	// FilesRoot confines local paths named by clients. Empty allows any path.
	FilesRoot string `yaml:"files_root"`
}

// DecoderConfig tunes the built-in decoders.
type DecoderConfig struct {
	HTMLMarkdown bool               `yaml:"html_markdown"`
	OCR          decode.OCROptions `yaml:",inline"`
}

// Fingerprint identifies the decoder settings that change extracted text.
func (d DecoderConfig) Fingerprint() string {
	md := 0
	if d.HTMLMarkdown {
		md = 1
	}
	return fmt.Sprintf("md%d-ocr:%s", md, d.OCR.Language)
}

// CacheConfig configures the extraction cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig configures the endpoint timing store.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuthConfig enables HTTP Basic auth when both fields are set.
type AuthConfig struct {
	User         string `yaml:"user"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// Enabled reports whether credentials are configured.
func (a AuthConfig) Enabled() bool { return a.User != "" && a.PasswordHash != "" }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":8086",
		LogLevel: "info",
		Parser:   parser.DefaultConfig(),
		Decoders: DecoderConfig{
			OCR: decode.OCROptions{Language: "eng", Binary: "tesseract"},
		},
		Cache:   CacheConfig{Path: "data/parsekit-cache.db"},
		Metrics: MetricsConfig{Path: "data/parsekit-metrics.db"},
	}
}

// LoadConfig reads a YAML file over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from PARSEKIT_LISTEN and LOG_LEVEL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PARSEKIT_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Parser.MaxSize < 0 {
		return errors.New("parser.max_size must be >= 0")
	}
	if c.Parser.MaxDepth < 0 {
		return errors.New("parser.max_depth must be >= 0")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.New("cache.path is required when the cache is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return errors.New("metrics.path is required when metrics are enabled")
	}
	if (c.Auth.User == "") != (c.Auth.PasswordHash == "") {
		return errors.New("auth.user and auth.password_hash must be set together")
	}
	if c.Auth.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Auth.PasswordHash)); err != nil {
			return fmt.Errorf("auth.password_hash is not a bcrypt hash: %w", err)
		}
	}
	return nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
}

// NewParser builds the parser described by c.
func (c *Config) NewParser(logger *slog.Logger) *parser.Parser {
	pc := c.Parser
	pc.Logger = logger
	return parser.New(pc,
		parser.WithDecoder(&decode.Markup{MaxDepth: pc.MaxDepth, Markdown: c.Decoders.HTMLMarkdown}, format.Xml, format.Html),
		parser.WithDecoder(decode.NewOCR(c.Decoders.OCR), format.Png, format.Jpeg, format.Tiff, format.Bmp),
	)
}
