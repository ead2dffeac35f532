// Package idgen generates request identifiers.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of time-sortable RFC 9562 version 7 UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID from gen, e.g. "req_".
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default produces UUIDv7 strings.
var Default = UUIDv7()

// Request produces the IDs attached to HTTP requests and MCP tool calls.
var Request = Prefixed("req_", Default)

// Valid reports whether id is prefix followed by a UUID. It is used to
// decide whether a caller-supplied request ID can be trusted in logs.
func Valid(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil && len(rest) == 36
}
