package parser

import (
	"context"
	"sync"

	"github.com/hazyhaar/parsekit/format"
)

var defaultParser = sync.OnceValue(func() *Parser { return New(Config{}) })

// ParseFile parses the file at path with the default configuration.
func ParseFile(ctx context.Context, path string) (string, error) {
	return defaultParser().ParsePath(ctx, path)
}

// ParseData parses data with the default configuration and no filename.
func ParseData(ctx context.Context, data []byte) (string, error) {
	return defaultParser().ParseBytes(ctx, data, "")
}

// SupportedFormats lists the file extensions the parser recognises.
func SupportedFormats() []string {
	return format.SupportedExtensions()
}
