package server

import (
	"context"

	"github.com/hazyhaar/parsekit/parser"
)

// documentRequest names a document either by content (HTTP) or by URI (MCP).
type documentRequest struct {
	URI string `json:"uri"`

	data     []byte
	filename string
}

type detectResponse struct {
	Format string `json:"format"`
}

type formatsResponse struct {
	Extensions []string `json:"extensions"`
}

// load returns the request's bytes, fetching them when only a URI was given.
func (s *Server) load(ctx context.Context, req *documentRequest) ([]byte, string, error) {
	if req.data != nil || req.URI == "" {
		return req.data, req.filename, nil
	}
	return s.opts.Fetcher.Fetch(ctx, req.URI, s.limit())
}

func (s *Server) parseEndpoint(ctx context.Context, request any) (any, error) {
	data, name, err := s.load(ctx, request.(*documentRequest))
	if err != nil {
		return nil, err
	}
	return s.opts.Engine.Parse(ctx, data, name)
}

func (s *Server) detectEndpoint(ctx context.Context, request any) (any, error) {
	data, name, err := s.load(ctx, request.(*documentRequest))
	if err != nil {
		return nil, err
	}
	if err := s.opts.Parser.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}
	return &detectResponse{Format: s.opts.Parser.Detect(name, data).Tag()}, nil
}

func (s *Server) formatsEndpoint(context.Context, any) (any, error) {
	return &formatsResponse{Extensions: parser.SupportedFormats()}, nil
}
