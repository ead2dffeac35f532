package server

import (
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/parsekit/kit"
)

var errMissingURI = errors.New("uri is required")

// RegisterMCP adds the parsekit tools to srv.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	uriSchema := inputSchema(map[string]any{
		"uri": map[string]any{"type": "string", "description": "Local path or s3://bucket/key"},
	}, []string{"uri"})

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "parsekit_parse",
		Description: "Extract plain text from a document (pdf, docx, pptx, xlsx, json, xml, html, images, text).",
		InputSchema: uriSchema,
	}, requestIDs, s.parse, decodeURI)

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "parsekit_detect",
		Description: "Detect the format tag of a document from its content and name.",
		InputSchema: uriSchema,
	}, requestIDs, s.detect, decodeURI)

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "parsekit_formats",
		Description: "List the file extensions parsekit recognises.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, requestIDs, s.formats, func(*mcp.CallToolRequest) (any, error) { return nil, nil })
}

func decodeURI(req *mcp.CallToolRequest) (any, error) {
	v, err := kit.DecodeArgs[documentRequest]()(req)
	if err != nil {
		return nil, err
	}
	if v.(*documentRequest).URI == "" {
		return nil, errMissingURI
	}
	return v, nil
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
