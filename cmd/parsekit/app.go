package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/parsekit/cache"
	"github.com/hazyhaar/parsekit/config"
	"github.com/hazyhaar/parsekit/observability"
	"github.com/hazyhaar/parsekit/parser"
	"github.com/hazyhaar/parsekit/server"
	"github.com/hazyhaar/parsekit/source"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	parser  *parser.Parser
	engine  server.Engine
	fetcher *source.Fetcher
	store   *cache.Store
	metrics *observability.Recorder
	metDB   *sql.DB
}

// overrides are command-line values applied over the loaded configuration.
type overrides struct {
	strict  bool
	maxSize int64
}

func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if o.strict {
		cfg.Parser.StrictMode = true
	}
	if o.maxSize > 0 {
		cfg.Parser.MaxSize = o.maxSize
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lvl, _ := config.ParseLevel(cfg.LogLevel)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// newApp builds the parser, the optional cache and the optional S3 client
// described by cfg. Logs go to logw.
func newApp(ctx context.Context, cfg *config.Config, logw io.Writer) (*app, error) {
	logger := newLogger(cfg, logw)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, fetcher: &source.Fetcher{Root: cfg.FilesRoot}}
	a.parser = cfg.NewParser(logger)
	a.engine = a.parser

	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.store = store
		a.engine = cache.NewParser(a.parser, store, cfg.Decoders.Fingerprint(), logger)
		logger.Debug("cache enabled", "path", cfg.Cache.Path)
	}

	if cfg.Metrics.Enabled {
		db, err := observability.Open(cfg.Metrics.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open metrics: %w", err)
		}
		a.metDB = db
		a.metrics = observability.NewRecorder(db, 0, 0, logger)
	}

	if cfg.S3.Enabled() {
		client, err := source.NewS3Client(ctx, cfg.S3)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		a.fetcher.S3 = client
		logger.Debug("s3 enabled", "region", cfg.S3.Region, "endpoint", cfg.S3.Endpoint)
	}
	return a, nil
}

func (a *app) Close() {
	if a.metrics != nil {
		a.metrics.Close()
	}
	if a.metDB != nil {
		a.metDB.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close cache", "error", err)
		}
	}
}

func (a *app) server() *server.Server {
	return server.New(server.Options{
		Parser:           a.parser,
		Engine:           a.engine,
		Fetcher:          a.fetcher,
		Metrics:          a.metrics,
		Logger:           a.logger,
		Version:          version,
		AuthUser:         a.cfg.Auth.User,
		AuthPasswordHash: a.cfg.Auth.PasswordHash,
	})
}
