package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPDecoder extracts the typed request from raw tool arguments.
type MCPDecoder func(*mcp.CallToolRequest) (any, error)

// DecodeArgs returns an MCPDecoder that unmarshals arguments into a new T.
// Missing arguments leave T at its zero value.
func DecodeArgs[T any]() MCPDecoder {
	return func(req *mcp.CallToolRequest) (any, error) {
		var v T
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &v); err != nil {
				return nil, err
			}
		}
		return &v, nil
	}
}

// RegisterMCPTool exposes endpoint as an MCP tool. Each call runs with
// transport "mcp" and, when newID is set, a fresh request ID in its context.
// A string response is returned verbatim; anything else is JSON-encoded.
// Decode and endpoint failures are reported as tool errors, not protocol
// errors.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, newID func() string, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = WithTransport(ctx, "mcp")
		if newID != nil {
			id := newID()
			ctx = WithRequestID(ctx, id)
			ctx = WithLogger(ctx, Logger(ctx).With("request_id", id, "tool", tool.Name))
		}

		request, err := decode(req)
		if err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		resp, err := endpoint(ctx, request)
		if err != nil {
			return toolError(err), nil
		}

		text, ok := resp.(string)
		if !ok {
			data, err := json.Marshal(resp)
			if err != nil {
				return toolError(fmt.Errorf("marshal: %w", err)), nil
			}
			text = string(data)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
