package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func cmdServe(ctx context.Context, args []string, _, stderr io.Writer) int {
	fs := newFlags("serve", stderr)
	cfgPath := fs.String("config", env("PARSEKIT_CONFIG", ""), "YAML configuration file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	a, code := setup(ctx, *cfgPath, overrides{}, stderr)
	if a == nil {
		return code
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           a.server().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("parsekit starting", "addr", a.cfg.Listen, "version", version,
			"cache", a.store != nil, "auth", a.cfg.Auth.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			a.logger.Error("server error", "error", err)
			return 1
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("shutdown", "error", err)
		return 1
	}
	a.logger.Info("server stopped")
	return 0
}

func cmdMCP(ctx context.Context, args []string, _, stderr io.Writer) int {
	fs := newFlags("mcp", stderr)
	cfgPath := fs.String("config", env("PARSEKIT_CONFIG", ""), "YAML configuration file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	a, code := setup(ctx, *cfgPath, overrides{}, stderr)
	if a == nil {
		return code
	}
	defer a.Close()

	a.logger.Info("parsekit mcp starting", "transport", "stdio", "version", version)
	if err := a.server().MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		fmt.Fprintln(stderr, "mcp:", err)
		return 1
	}
	return 0
}
