package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/parsekit/parser"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const exitUsage = 2

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	cmds := map[string]func(context.Context, []string, io.Writer, io.Writer) int{
		"parse":   cmdParse,
		"detect":  cmdDetect,
		"formats": cmdFormats,
		"string":  cmdString,
		"serve":   cmdServe,
		"mcp":     cmdMCP,
		"cache":   cmdCache,
		"metrics": cmdMetrics,
		"version": func(_ context.Context, _ []string, stdout, _ io.Writer) int {
			fmt.Fprintln(stdout, "parsekit", version)
			return 0
		},
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
			printUsage(stdout)
			return 0
		}
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
	return cmd(ctx, args[1:], stdout, stderr)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `parsekit: extract plain text from documents

usage:
  parsekit parse   [-strict] [-max-size N] [-config F] <path|s3://bucket/key>...
  parsekit detect  [-config F] <path|s3://bucket/key>...
  parsekit formats
  parsekit string  [-strict] <text>
  parsekit serve   [-config F]
  parsekit mcp     [-config F]
  parsekit cache   [-config F] stats|purge [-older-than D]
  parsekit metrics [-config F] [-since D] [-cleanup D]
  parsekit version

Exit codes: 0 ok, 1 internal, 2 usage, 3 size limit, 4 empty input,
5 read failure, 6 decode failure.

Environment: PARSEKIT_CONFIG, PARSEKIT_LISTEN, LOG_LEVEL, TESSDATA_PREFIX.
`)
}

// exitCode maps err to the exit code of its category.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return parser.CategoryOf(err).ExitCode
}

// newFlags returns a flag set that reports errors to stderr without exiting.
func newFlags(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args, mapping -h to a clean exit and anything else to a usage error.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return exitUsage, false
	}
	return 0, true
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
