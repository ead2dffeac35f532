// Package server exposes a parser over HTTP and MCP.
//
// Both transports share the endpoints in this package and differ only in how
// requests arrive: HTTP clients post document bytes, MCP clients name a path
// or s3:// URI that the server fetches.
//
//	srv := server.New(server.Options{Parser: p, Logger: logger})
//	http.ListenAndServe(":8086", srv.Handler())
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/parsekit/horosafe"
	"github.com/hazyhaar/parsekit/idgen"
	"github.com/hazyhaar/parsekit/kit"
	"github.com/hazyhaar/parsekit/observability"
	"github.com/hazyhaar/parsekit/parser"
	"github.com/hazyhaar/parsekit/shield"
	"github.com/hazyhaar/parsekit/source"
)

// Engine parses classified bytes. *parser.Parser and *cache.Parser satisfy it.
type Engine interface {
	Parse(ctx context.Context, data []byte, filename string) (*parser.Result, error)
}

// Options configures a Server.
type Options struct {
	// Parser supplies the size ceiling and detection. Required.
	Parser *parser.Parser
	// Engine runs parses. Nil uses Parser directly.
	Engine Engine
	// Fetcher resolves MCP URIs. Nil serves local paths only.
	Fetcher *source.Fetcher
	// Metrics records endpoint timings. Nil disables them.
	Metrics *observability.Recorder
	Logger  *slog.Logger
	Version string

	// AuthUser and AuthPasswordHash enable HTTP Basic auth when both are set.
	AuthUser         string
	AuthPasswordHash string
}

// Server holds the shared endpoints.
type Server struct {
	opts    Options
	logger  *slog.Logger
	parse   kit.Endpoint
	detect  kit.Endpoint
	formats kit.Endpoint
}

// New builds a Server. It panics if opts.Parser is nil.
func New(opts Options) *Server {
	if opts.Parser == nil {
		panic("server: Options.Parser is required")
	}
	if opts.Engine == nil {
		opts.Engine = opts.Parser
	}
	if opts.Fetcher == nil {
		opts.Fetcher = &source.Fetcher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.parse = s.endpoint("parse", s.parseEndpoint)
	s.detect = s.endpoint("detect", s.detectEndpoint)
	s.formats = s.endpoint("formats", s.formatsEndpoint)
	return s
}

// endpoint wraps e with logging and, when configured, timing metrics.
func (s *Server) endpoint(name string, e kit.Endpoint) kit.Endpoint {
	mws := []kit.Middleware{kit.Logging(name)}
	if s.opts.Metrics != nil {
		mws = append(mws, observability.Instrument(s.opts.Metrics, name))
	}
	return kit.Chain(mws...)(e)
}

func (s *Server) limit() int64 { return s.opts.Parser.Config().MaxSize }

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.DefaultAPIStack(s.logger) {
		r.Use(mw)
	}
	if s.opts.AuthUser != "" && s.opts.AuthPasswordHash != "" {
		r.Use(shield.BasicAuth("parsekit", s.opts.AuthUser, s.opts.AuthPasswordHash, "/healthz"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)
		r.Post("/detect", s.handleDetect)
		r.Post("/parse", s.handleParse)
	})
	return r
}

// MCPServer returns an MCP server with the parsekit tools registered.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "parsekit", Version: s.opts.Version}, nil)
	s.RegisterMCP(srv)
	return srv
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.parse(r.Context(), &documentRequest{data: data, filename: r.URL.Query().Get("filename")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.detect(r.Context(), &documentRequest{data: data, filename: r.URL.Query().Get("filename")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.formats(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// readBody enforces the size ceiling on the declared length, then on the
// bytes actually read, never reading more than one byte past the ceiling.
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	limit := s.limit()
	if r.ContentLength > limit {
		return nil, &parser.SizeLimitError{Actual: r.ContentLength, Limit: limit}
	}
	data, err := horosafe.ReadLimited(r.Body, limit)
	if err != nil {
		return nil, &parser.IOError{Err: err}
	}
	if n := int64(len(data)); n > limit {
		return nil, &parser.SizeLimitError{Actual: n, Limit: limit}
	}
	return data, nil
}

// requestIDs is the generator used for MCP tool calls.
var requestIDs = idgen.Request
