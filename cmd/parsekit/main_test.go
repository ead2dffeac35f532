package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/parsekit/observability"
)

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("PARSEKIT_CONFIG", "")
	t.Setenv("LOG_LEVEL", "")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUsage(t *testing.T) {
	tests := []struct {
		args []string
		code int
	}{
		{nil, 2},
		{[]string{"bogus"}, 2},
		{[]string{"parse"}, 2},
		{[]string{"detect"}, 2},
		{[]string{"string"}, 2},
		{[]string{"parse", "-nope", "x"}, 2},
		{[]string{"help"}, 0},
	}
	for _, tt := range tests {
		code, _, _ := runCmd(t, tt.args...)
		if code != tt.code {
			t.Errorf("run(%v) = %d, want %d", tt.args, code, tt.code)
		}
	}
}

func TestVersionAndFormats(t *testing.T) {
	code, out, _ := runCmd(t, "version")
	if code != 0 || out != "parsekit dev\n" {
		t.Errorf("version: %d %q", code, out)
	}
	code, out, _ = runCmd(t, "formats")
	if code != 0 || !strings.Contains(out, "pdf\n") || !strings.Contains(out, "xlsx\n") {
		t.Errorf("formats: %d %q", code, out)
	}
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "a.txt", "hello")
	js := writeFile(t, dir, "b.json", `{"x":1}`)

	code, out, errOut := runCmd(t, "parse", txt, js)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "hello\n{\n  \"x\": 1\n}\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestParseExitCodes(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.txt", strings.Repeat("z", 64))
	badJSON := writeFile(t, dir, "deep.json", strings.Repeat("[", 200)+strings.Repeat("]", 200))

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"missing file", []string{"parse", filepath.Join(dir, "gone.pdf")}, 5, "failed to read file"},
		{"over max size", []string{"parse", "-max-size", "10", big}, 3, "exceeds maximum allowed size 10"},
		{"decode failure", []string{"parse", badJSON}, 6, "parsekit: decode json"},
		{"first failure wins", []string{"parse", filepath.Join(dir, "gone"), badJSON}, 5, "deep.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCmd(t, tt.args...)
			if code != tt.code {
				t.Errorf("exit = %d, want %d (%s)", code, tt.code, errOut)
			}
			if !strings.Contains(errOut, tt.msg) {
				t.Errorf("stderr %q missing %q", errOut, tt.msg)
			}
		})
	}
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "scan.txt", "%PDF-1.4 body")
	html := writeFile(t, dir, "page.html", "<p>x</p>")

	code, out, errOut := runCmd(t, "detect", pdf, html)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	want := pdf + "\tpdf\n" + html + "\txml\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestStringCommand(t *testing.T) {
	code, out, _ := runCmd(t, "string", "  spaced  ")
	if code != 0 || out != "spaced\n" {
		t.Errorf("got %d %q", code, out)
	}
	code, out, _ = runCmd(t, "string", "-strict", " x ")
	if code != 0 || out != "x strict=true\n" {
		t.Errorf("strict: got %d %q", code, out)
	}
	code, _, errOut := runCmd(t, "string", "")
	if code != 4 || !strings.Contains(errOut, "input cannot be empty") {
		t.Errorf("empty: got %d %q", code, errOut)
	}
}

func TestCacheCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "parsekit.yaml", "cache:\n  enabled: true\n  path: "+filepath.Join(dir, "cache.db")+"\n")
	doc := writeFile(t, dir, "a.txt", "cached text")

	if code, _, errOut := runCmd(t, "parse", "-config", cfg, doc); code != 0 {
		t.Fatalf("parse: %d %s", code, errOut)
	}
	code, out, errOut := runCmd(t, "cache", "-config", cfg, "stats")
	if code != 0 {
		t.Fatalf("stats: %d %s", code, errOut)
	}
	if !strings.Contains(out, "entries\t1\n") || !strings.Contains(out, "source_bytes\t11\n") {
		t.Errorf("stats = %q", out)
	}

	code, out, _ = runCmd(t, "cache", "-config", cfg, "purge", "-older-than", "0s")
	if code != 0 || out != "purged 1 entries\n" {
		t.Errorf("purge: %d %q", code, out)
	}

	if code, _, _ := runCmd(t, "cache", "stats"); code != 1 {
		t.Errorf("cache without config: exit %d, want 1", code)
	}
	if code, _, _ := runCmd(t, "cache", "-config", cfg, "shrink"); code != 2 {
		t.Errorf("unknown subcommand: exit %d, want 2", code)
	}
}

func TestMetricsCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "metrics.db")
	cfg := writeFile(t, dir, "parsekit.yaml", "metrics:\n  enabled: true\n  path: "+dbPath+"\n")

	db, err := observability.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	rec := observability.NewRecorder(db, 0, 0, nil)
	ep := observability.Instrument(rec, "parse")(func(context.Context, any) (any, error) { return nil, nil })
	ep(context.Background(), nil)
	rec.Close()
	db.Close()

	code, out, errOut := runCmd(t, "metrics", "-config", cfg)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "endpoint\toutcome\tcount") || !strings.Contains(out, "parse\tok\t1\t") {
		t.Errorf("stdout = %q", out)
	}

	if code, _, _ := runCmd(t, "metrics"); code != 1 {
		t.Errorf("metrics disabled: exit %d, want 1", code)
	}
}

func TestBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "bad.yaml", "log_level: loud\n")
	code, _, errOut := runCmd(t, "parse", "-config", cfg, "x")
	if code != 2 || !strings.Contains(errOut, "config:") {
		t.Errorf("got %d %q", code, errOut)
	}
}
