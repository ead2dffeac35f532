// Package kit holds the transport-neutral plumbing shared by the HTTP and MCP
// surfaces: endpoints, middleware and request-scoped context values.
package kit

import (
	"context"
	"time"
)

// Endpoint handles one decoded request.
type Endpoint func(ctx context.Context, request any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middleware so that the first argument runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each call of the named endpoint at debug level, and failures
// at warn level, with the request ID and transport from ctx.
func Logging(name string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			log := Logger(ctx).With("endpoint", name, "transport", Transport(ctx), "duration", time.Since(start))
			if err != nil {
				log.Warn("endpoint failed", "error", err)
			} else {
				log.Debug("endpoint done")
			}
			return resp, err
		}
	}
}
