// Package parser routes document bytes to the decoder for their format.
//
// A Parser enforces the size ceiling, classifies input with package format,
// looks up the decoder bound to the format's tag, and wraps failures in the
// error types of this package. A Parser is immutable after New and safe for
// concurrent use.
//
// Usage:
//
//	p := parser.New(parser.Config{MaxSize: 10 << 20})
//	text, err := p.ParsePath(ctx, "/path/to/file.pdf")
//	if parser.KindOf(err) == parser.KindSizeLimitExceeded { ... }
package parser

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hazyhaar/parsekit/format"
)

// strictMarker is appended to ParseString output in strict mode.
const strictMarker = " strict=true"

// Parser is the dispatch engine.
type Parser struct {
	cfg      Config
	registry *Registry
}

// Result is a decoded document.
type Result struct {
	Format format.FileFormat `json:"format"`
	Text   string            `json:"text"`
}

// Option customises a Parser at construction.
type Option func(*Parser)

// WithDecoder binds d to the tags of formats, replacing the default decoders.
// Formats that share a tag (Xml and Html) share a decoder.
func WithDecoder(d Decoder, formats ...format.FileFormat) Option {
	return func(p *Parser) { p.registry = p.registry.With(d, formats...) }
}

// WithRegistry replaces the whole decoder registry.
func WithRegistry(r *Registry) Option {
	return func(p *Parser) { p.registry = r }
}

// WithNormalizer replaces the decoder used for Text and Unknown input.
func WithNormalizer(n *Normalizer) Option {
	return WithDecoder(n, format.Text, format.Unknown)
}

// New creates a Parser. cfg is copied; later changes to it have no effect.
func New(cfg Config, opts ...Option) *Parser {
	cfg.defaults()
	p := &Parser{
		cfg:      cfg,
		registry: DefaultRegistry(cfg),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Config returns a copy of the parser configuration.
func (p *Parser) Config() Config { return p.cfg }

// StrictMode reports whether strict mode is enabled.
func (p *Parser) StrictMode() bool { return p.cfg.StrictMode }

// CheckSize fails with *SizeLimitError when n exceeds the configured ceiling.
func (p *Parser) CheckSize(n int64) error {
	if n > p.cfg.MaxSize {
		return &SizeLimitError{Actual: n, Limit: p.cfg.MaxSize}
	}
	return nil
}

// Detect classifies data, using filename only when content is not definitive.
func (p *Parser) Detect(filename string, data []byte) format.FileFormat {
	return format.Detect(filename, data)
}

// Parse checks the size ceiling, detects the format and decodes data.
// filename may be empty; it is consulted only when content sniffing is not definitive.
func (p *Parser) Parse(ctx context.Context, data []byte, filename string) (*Result, error) {
	if err := p.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}

	f := format.Detect(filename, data)
	p.cfg.Logger.Debug("parsing document", "size", len(data), "filename", filename, "format", f.Tag())

	dec, ok := p.registry.Lookup(f.Tag())
	if !ok {
		return nil, &DecodeError{Format: f, Message: "no decoder registered for " + f.Tag()}
	}

	text, err := dec.Decode(ctx, f.Tag(), data)
	if err != nil {
		return nil, &DecodeError{Format: f, Message: err.Error(), Err: err}
	}
	return &Result{Format: f, Text: text}, nil
}

// ParseBytes is Parse returning only the text.
func (p *Parser) ParseBytes(ctx context.Context, data []byte, filename string) (string, error) {
	res, err := p.Parse(ctx, data, filename)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ParseString cleans a string input. In strict mode the output carries a
// trailing " strict=true" marker.
func (p *Parser) ParseString(input string) (string, error) {
	if input == "" {
		return "", ErrEmptyInput
	}
	out := strings.TrimSpace(input)
	if p.cfg.StrictMode {
		out += strictMarker
	}
	return out, nil
}

// ParsePath reads the file at path and parses it, using path for extension fallback.
func (p *Parser) ParsePath(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	return p.ParseBytes(ctx, data, path)
}

// SupportsFile reports whether path has an extension the detector recognises.
func (p *Parser) SupportsFile(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	return slices.Contains(format.SupportedExtensions(), strings.ToLower(ext))
}
