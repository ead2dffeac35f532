package parser

import (
	"fmt"
	"log/slog"
)

const (
	DefaultMaxDepth = 100
	DefaultEncoding = "UTF-8"
	DefaultMaxSize  = 100 * 1024 * 1024
)

// Config configures a Parser. Zero values take the documented defaults.
type Config struct {
	// StrictMode appends a marker to ParseString output so callers can verify
	// that configuration reached the parser.
	StrictMode bool `json:"strict_mode" yaml:"strict_mode"`

	// MaxDepth bounds element nesting in the JSON and XML decoders (default: 100).
	// Detection and dispatch never consult it.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Encoding is informational (default: "UTF-8"). Text is always tried as
	// UTF-8 first.
	Encoding string `json:"encoding" yaml:"encoding"`

	// MaxSize is the hard ceiling on input length in bytes (default: 100 MiB).
	MaxSize int64 `json:"max_size" yaml:"max_size"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Encoding == "" {
		c.Encoding = DefaultEncoding
	}
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.defaults()
	return c
}

// Fingerprint identifies the settings that change decoder output.
func (c Config) Fingerprint() string {
	return fmt.Sprintf("d%d", c.MaxDepth)
}
