package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hazyhaar/parsekit/parser"
)

func cmdParse(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlags("parse", stderr)
	strict := fs.Bool("strict", false, "enable strict mode")
	maxSize := fs.Int64("max-size", 0, "maximum input size in bytes (0 keeps the configured value)")
	cfgPath := fs.String("config", env("PARSEKIT_CONFIG", ""), "YAML configuration file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "parse requires at least one path")
		return exitUsage
	}

	a, code := setup(ctx, *cfgPath, overrides{strict: *strict, maxSize: *maxSize}, stderr)
	if a == nil {
		return code
	}
	defer a.Close()

	limit := a.parser.Config().MaxSize
	for _, uri := range fs.Args() {
		data, name, err := a.fetcher.Fetch(ctx, uri, limit)
		if err == nil {
			var res *parser.Result
			if res, err = a.engine.Parse(ctx, data, name); err == nil {
				fmt.Fprintln(stdout, res.Text)
				continue
			}
		}
		fmt.Fprintf(stderr, "%s: %v\n", uri, err)
		if code == 0 {
			code = exitCode(err)
		}
	}
	return code
}

func cmdDetect(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlags("detect", stderr)
	cfgPath := fs.String("config", env("PARSEKIT_CONFIG", ""), "YAML configuration file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "detect requires at least one path")
		return exitUsage
	}

	a, code := setup(ctx, *cfgPath, overrides{}, stderr)
	if a == nil {
		return code
	}
	defer a.Close()

	for _, uri := range fs.Args() {
		data, name, err := a.fetcher.Fetch(ctx, uri, a.parser.Config().MaxSize)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", uri, err)
			if code == 0 {
				code = exitCode(err)
			}
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", uri, a.parser.Detect(name, data).Tag())
	}
	return code
}

func cmdFormats(_ context.Context, _ []string, stdout, _ io.Writer) int {
	fmt.Fprintln(stdout, strings.Join(parser.SupportedFormats(), "\n"))
	return 0
}

func cmdString(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlags("string", stderr)
	strict := fs.Bool("strict", false, "append the strict marker")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "string requires exactly one argument")
		return exitUsage
	}

	p := parser.New(parser.Config{StrictMode: *strict})
	out, err := p.ParseString(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitCode(err)
	}
	fmt.Fprintln(stdout, out)
	return 0
}

func cmdCache(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlags("cache", stderr)
	cfgPath := fs.String("config", env("PARSEKIT_CONFIG", ""), "YAML configuration file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "cache requires stats or purge")
		return exitUsage
	}

	a, code := setup(ctx, *cfgPath, overrides{}, stderr)
	if a == nil {
		return code
	}
	defer a.Close()
	if a.store == nil {
		fmt.Fprintln(stderr, "cache is not enabled (set cache.enabled in the configuration)")
		return 1
	}

	switch fs.Arg(0) {
	case "stats":
		st, err := a.store.Stats(ctx)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "entries\t%d\nsource_bytes\t%d\ncompressed_bytes\t%d\n", st.Entries, st.SourceBytes, st.CompressedBytes)
		return 0
	case "purge":
		pfs := newFlags("cache purge", stderr)
		olderThan := pfs.Duration("older-than", 30*24*time.Hour, "remove entries older than this")
		if code, ok := parseFlags(pfs, fs.Args()[1:]); !ok {
			return code
		}
		n, err := a.store.Purge(ctx, *olderThan)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "purged %d entries\n", n)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown cache command: %s\n", fs.Arg(0))
		return exitUsage
	}
}

func cmdMetrics(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlags("metrics", stderr)
	cfgPath := fs.String("config", env("PARSEKIT_CONFIG", ""), "YAML configuration file")
	since := fs.Duration("since", 24*time.Hour, "summarise calls newer than this")
	retain := fs.Duration("cleanup", 0, "first delete datapoints older than this (0 keeps everything)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	a, code := setup(ctx, *cfgPath, overrides{}, stderr)
	if a == nil {
		return code
	}
	defer a.Close()
	if a.metrics == nil {
		fmt.Fprintln(stderr, "metrics are not enabled (set metrics.enabled in the configuration)")
		return 1
	}

	if *retain > 0 {
		n, err := a.metrics.Cleanup(ctx, *retain)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "removed %d datapoints\n", n)
	}
	sums, err := a.metrics.Summarize(ctx, time.Now().Add(-*since))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, "endpoint\toutcome\tcount\tavg_ms\tmax_ms")
	for _, s := range sums {
		fmt.Fprintf(stdout, "%s\t%s\t%d\t%.2f\t%.2f\n", s.Endpoint, s.Outcome, s.Count, s.AvgMs, s.MaxMs)
	}
	return 0
}

// setup loads the configuration and builds the app. On failure it returns a
// nil app and the exit code to use.
func setup(ctx context.Context, cfgPath string, o overrides, stderr io.Writer) (*app, int) {
	cfg, err := loadConfig(cfgPath, o)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return nil, exitUsage
	}
	a, err := newApp(ctx, cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, 1
	}
	return a, 0
}
