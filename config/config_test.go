package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/parsekit/parser"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parsekit.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("PARSEKIT_LISTEN", "")
	t.Setenv("LOG_LEVEL", "")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8086" || cfg.Parser.MaxSize != parser.DefaultMaxSize || cfg.Parser.MaxDepth != 100 {
		t.Errorf("got %+v", cfg)
	}
	if cfg.Decoders.OCR.Language != "eng" || cfg.Cache.Enabled {
		t.Errorf("decoders/cache defaults: %+v %+v", cfg.Decoders, cfg.Cache)
	}
	if cfg.S3.Enabled() {
		t.Errorf("s3 should stay off until configured: %+v", cfg.S3)
	}
}

func TestDecoderFingerprint(t *testing.T) {
	base := DefaultConfig().Decoders
	md := base
	md.HTMLMarkdown = true
	fra := base
	fra.OCR.Language = "fra"

	if base.Fingerprint() != "md0-ocr:eng" {
		t.Errorf("Fingerprint() = %q", base.Fingerprint())
	}
	seen := map[string]bool{}
	for _, d := range []DecoderConfig{base, md, fra} {
		fp := d.Fingerprint()
		if seen[fp] {
			t.Errorf("duplicate fingerprint %q", fp)
		}
		seen[fp] = true
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
log_level: debug
parser:
  strict_mode: true
  max_size: 1024
decoders:
  html_markdown: true
  ocr_language: fra
  tessdata_dir: /opt/tessdata
cache:
  enabled: true
  path: /tmp/c.db
files_root: /srv/docs
s3:
  endpoint: http://minio:9000
`)
	t.Setenv("PARSEKIT_LISTEN", "")
	t.Setenv("LOG_LEVEL", "")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.LogLevel != "debug" {
		t.Errorf("top level: %+v", cfg)
	}
	if !cfg.Parser.StrictMode || cfg.Parser.MaxSize != 1024 || cfg.Parser.MaxDepth != 100 {
		t.Errorf("parser: %+v", cfg.Parser)
	}
	if !cfg.Decoders.HTMLMarkdown || cfg.Decoders.OCR.Language != "fra" ||
		cfg.Decoders.OCR.TessdataDir != "/opt/tessdata" || cfg.Decoders.OCR.Binary != "tesseract" {
		t.Errorf("decoders: %+v", cfg.Decoders)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != "/tmp/c.db" {
		t.Errorf("cache: %+v", cfg.Cache)
	}
	if cfg.FilesRoot != "/srv/docs" {
		t.Errorf("files_root = %q", cfg.FilesRoot)
	}
	if cfg.S3.Endpoint != "http://minio:9000" || cfg.S3.Region != "" {
		t.Errorf("s3: %+v", cfg.S3)
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{"PARSEKIT_LISTEN": ":7000", "LOG_LEVEL": "warn"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Listen != ":7000" || cfg.LogLevel != "warn" {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "listen: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no listen", func(c *Config) { c.Listen = "" }, "listen"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative size", func(c *Config) { c.Parser.MaxSize = -1 }, "max_size"},
		{"cache without path", func(c *Config) { c.Cache = CacheConfig{Enabled: true} }, "cache.path"},
		{"metrics without path", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, "metrics.path"},
		{"user without hash", func(c *Config) { c.Auth.User = "admin" }, "together"},
		{"plain password", func(c *Config) { c.Auth = AuthConfig{User: "a", PasswordHash: "secret"} }, "bcrypt"},
		{"valid auth", func(c *Config) { c.Auth = AuthConfig{User: "a", PasswordHash: string(hash)} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "": slog.LevelInfo,
		"warn": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}

func TestNewParser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parser.StrictMode = true
	cfg.Parser.MaxSize = 16
	cfg.Decoders.HTMLMarkdown = true

	p := cfg.NewParser(slog.Default())
	if !p.StrictMode() || p.Config().MaxSize != 16 {
		t.Errorf("config not applied: %+v", p.Config())
	}
	if _, err := p.Parse(context.Background(), make([]byte, 17), ""); parser.KindOf(err) != parser.KindSizeLimitExceeded {
		t.Errorf("expected size limit, got %v", err)
	}

	text, err := p.ParseBytes(context.Background(), []byte("<html><body><h1>Hi</h1></body></html>"), "")
	if err != nil {
		t.Fatal(err)
	}
	if text != "# Hi" {
		t.Errorf("markdown decoder not installed: %q", text)
	}
}
