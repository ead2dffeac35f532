package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/parsekit/dbopen"
	"github.com/hazyhaar/parsekit/format"
	"github.com/hazyhaar/parsekit/observability"
	"github.com/hazyhaar/parsekit/parser"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Parser == nil {
		opts.Parser = parser.New(parser.Config{})
	}
	ts := httptest.NewServer(New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("got %d %v", resp.StatusCode, body)
	}
	if !strings.HasPrefix(resp.Header.Get("X-Request-ID"), "req_") {
		t.Errorf("X-Request-ID = %q", resp.Header.Get("X-Request-ID"))
	}
}

func TestFormats(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/v1/formats")
	if err != nil {
		t.Fatal(err)
	}
	var body formatsResponse
	decodeBody(t, resp, &body)
	if len(body.Extensions) != len(format.SupportedExtensions()) {
		t.Errorf("extensions = %v", body.Extensions)
	}
}

func TestParse(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name     string
		body     string
		filename string
		wantFmt  string
		wantText string
	}{
		{"plain text", "  hello  ", "", "text", "  hello  "},
		{"json", `{"b":1,"a":[true]}`, "", "json", "{\n  \"a\": [\n    true\n  ],\n  \"b\": 1\n}"},
		{"xml", `<?xml version="1.0"?><r><a>one</a><b>two</b></r>`, "", "xml", "one two"},
		{"html by name", "<p>hi</p>", "page.html", "xml", "hi"},
		{"empty body", "", "", "text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := ts.URL + "/v1/parse"
			if tt.filename != "" {
				url += "?filename=" + tt.filename
			}
			resp, err := http.Post(url, "application/octet-stream", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			var body struct {
				Format string `json:"format"`
				Text   string `json:"text"`
			}
			decodeBody(t, resp, &body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status %d", resp.StatusCode)
			}
			if body.Format != tt.wantFmt || body.Text != tt.wantText {
				t.Errorf("got {%q %q}, want {%q %q}", body.Format, body.Text, tt.wantFmt, tt.wantText)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	ts := newTestServer(t, Options{})
	tests := []struct {
		body, filename, want string
	}{
		{"%PDF-1.7", "", "pdf"},
		{"%PDF-1.7", "notes.txt", "pdf"},
		{"hello", "sheet.xlsx", "xlsx"},
		{"<html><body>x</body></html>", "", "xml"},
		{"hello", "", "text"},
	}
	for _, tt := range tests {
		resp, err := http.Post(ts.URL+"/v1/detect?filename="+tt.filename, "", strings.NewReader(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		var body detectResponse
		decodeBody(t, resp, &body)
		if body.Format != tt.want {
			t.Errorf("detect(%q, %q) = %q, want %q", tt.filename, tt.body, body.Format, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	var calls atomic.Int32
	spy := parser.DecoderFunc(func(context.Context, string, []byte) (string, error) {
		calls.Add(1)
		return "", os.ErrInvalid
	})
	p := parser.New(parser.Config{MaxSize: 16}, parser.WithDecoder(spy, format.Pdf))
	ts := newTestServer(t, Options{Parser: p})

	// WHAT: declared length over the ceiling.
	// WHY: the body must be rejected before it is read or decoded.
	resp, err := http.Post(ts.URL+"/v1/parse", "", strings.NewReader("%PDF-"+strings.Repeat("x", 32)))
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge || body["kind"] != "size_limit_exceeded" {
		t.Fatalf("got %d %v", resp.StatusCode, body)
	}
	if body["error"] != "parsekit: file size 37 exceeds maximum allowed size 16" {
		t.Errorf("error = %q", body["error"])
	}

	// Chunked body with no declared length: bounded read catches it.
	req, _ := http.NewRequest("POST", ts.URL+"/v1/parse", struct{ *strings.Reader }{strings.NewReader(strings.Repeat("y", 100))})
	req.ContentLength = -1
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("chunked: got %d %v", resp.StatusCode, body)
	}
	if body["error"] != "parsekit: file size 17 exceeds maximum allowed size 16" {
		t.Errorf("chunked error = %q", body["error"])
	}
	if calls.Load() != 0 {
		t.Fatal("decoder ran on oversized input")
	}

	resp, err = http.Post(ts.URL+"/v1/parse", "", strings.NewReader("%PDF-1.7"))
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusUnprocessableEntity || body["kind"] != "decode_failure" {
		t.Fatalf("decode failure: got %d %v", resp.StatusCode, body)
	}
}

func TestAuth(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	ts := newTestServer(t, Options{AuthUser: "ops", AuthPasswordHash: string(hash)})

	resp, err := http.Post(ts.URL+"/v1/parse", "", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest("POST", ts.URL+"/v1/parse", strings.NewReader("x"))
	req.SetBasicAuth("ops", "pw")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz should stay public, got %d", resp.StatusCode)
	}
}

type countingEngine struct {
	n atomic.Int32
}

func (c *countingEngine) Parse(ctx context.Context, data []byte, filename string) (*parser.Result, error) {
	c.n.Add(1)
	return &parser.Result{Format: format.Text, Text: "engine:" + string(data)}, nil
}

func TestCustomEngine(t *testing.T) {
	eng := &countingEngine{}
	ts := newTestServer(t, Options{Engine: eng})
	resp, err := http.Post(ts.URL+"/v1/parse", "", bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["text"] != "engine:abc" || eng.n.Load() != 1 {
		t.Errorf("got %q after %d calls", body["text"], eng.n.Load())
	}
}

func TestMetrics(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(observability.Schema))
	rec := observability.NewRecorder(db, 100, time.Hour, nil)
	t.Cleanup(func() { rec.Close() })
	ts := newTestServer(t, Options{Metrics: rec, Parser: parser.New(parser.Config{MaxSize: 4})})

	for _, body := range []string{"ok", "too long"} {
		resp, err := http.Post(ts.URL+"/v1/parse", "", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}
	rec.Flush()

	sums, err := rec.Summarize(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	// The oversized body is rejected before the endpoint runs.
	if len(sums) != 1 || sums[0].Endpoint != "parse" || sums[0].Outcome != "ok" || sums[0].Count != 1 {
		t.Errorf("summaries = %+v", sums)
	}
}

// --- MCP ---

func mcpSession(t *testing.T, opts Options) *mcp.ClientSession {
	t.Helper()
	if opts.Parser == nil {
		opts.Parser = parser.New(parser.Config{})
	}
	srv := New(opts).MCPServer()

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "parsekit-test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text, result.IsError
}

func TestMCPTools(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	if err := os.WriteFile(path, []byte(`{"k":"v"}`), 0644); err != nil {
		t.Fatal(err)
	}
	session := mcpSession(t, Options{})

	text, isErr := callTool(t, session, "parsekit_parse", map[string]any{"uri": path})
	if isErr {
		t.Fatalf("parse: %s", text)
	}
	var res struct {
		Format string `json:"format"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if res.Format != "json" || res.Text != "{\n  \"k\": \"v\"\n}" {
		t.Errorf("parse = %+v", res)
	}

	text, isErr = callTool(t, session, "parsekit_detect", map[string]any{"uri": path})
	if isErr || text != `{"format":"json"}` {
		t.Errorf("detect = %s (error %v)", text, isErr)
	}

	text, isErr = callTool(t, session, "parsekit_formats", map[string]any{})
	if isErr || !strings.Contains(text, `"pdf"`) {
		t.Errorf("formats = %s", text)
	}
}

func TestMCPToolErrors(t *testing.T) {
	session := mcpSession(t, Options{Parser: parser.New(parser.Config{MaxSize: 4})})

	text, isErr := callTool(t, session, "parsekit_parse", map[string]any{"uri": ""})
	if !isErr || !strings.Contains(text, "uri is required") {
		t.Errorf("missing uri: %s", text)
	}

	text, isErr = callTool(t, session, "parsekit_parse", map[string]any{"uri": filepath.Join(t.TempDir(), "gone.pdf")})
	if !isErr || !strings.Contains(text, "failed to read file") {
		t.Errorf("missing file: %s", text)
	}

	path := filepath.Join(t.TempDir(), "big.txt")
	os.WriteFile(path, []byte("0123456789"), 0644)
	text, isErr = callTool(t, session, "parsekit_detect", map[string]any{"uri": path})
	if !isErr || !strings.Contains(text, "exceeds maximum allowed size 4") {
		t.Errorf("oversized: %s", text)
	}

	text, isErr = callTool(t, session, "parsekit_parse", map[string]any{"uri": "s3://bucket/key.pdf"})
	if !isErr || !strings.Contains(text, "s3 is not configured") {
		t.Errorf("s3 without client: %s", text)
	}
}
