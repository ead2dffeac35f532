package cache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/parsekit/parser"
)

// Parser serves parses from a Store and falls back to the wrapped parser on
// a miss. Only successful parses are stored. Cache failures are logged and
// never fail a parse.
type Parser struct {
	p           *parser.Parser
	store       *Store
	fingerprint string
	logger      *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewParser wraps p with store. decoders identifies decoder settings that
// p's Config does not carry (Markdown output, OCR language); it joins the
// config fingerprint in every key so entries written under other settings
// are never served. A nil logger uses slog.Default.
func NewParser(p *parser.Parser, store *Store, decoders string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	fp := p.Config().Fingerprint()
	if decoders != "" {
		fp += "-" + decoders
	}
	return &Parser{p: p, store: store, fingerprint: fp, logger: logger}
}

// Unwrap returns the wrapped parser.
func (c *Parser) Unwrap() *parser.Parser { return c.p }

// Parse behaves like parser.Parser.Parse. The size ceiling is checked before
// the content is hashed.
func (c *Parser) Parse(ctx context.Context, data []byte, filename string) (*parser.Result, error) {
	if err := c.p.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}

	key := Key(data, filename, c.fingerprint)
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache lookup failed", "key", key, "error", err)
	}
	if ok {
		c.hits.Add(1)
		c.logger.Debug("cache hit", "key", key, "format", entry.Format.Tag())
		return &parser.Result{Format: entry.Format, Text: entry.Text}, nil
	}
	c.misses.Add(1)

	res, err := c.p.Parse(ctx, data, filename)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(ctx, key, res.Format, res.Text, int64(len(data))); err != nil {
		c.logger.Warn("cache store failed", "key", key, "error", err)
	}
	return res, nil
}

// ParseBytes is Parse returning only the text.
func (c *Parser) ParseBytes(ctx context.Context, data []byte, filename string) (string, error) {
	res, err := c.Parse(ctx, data, filename)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Counters reports hits and misses since construction.
func (c *Parser) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
