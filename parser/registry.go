package parser

import (
	"context"
	"maps"
	"slices"

	"github.com/hazyhaar/parsekit/decode"
	"github.com/hazyhaar/parsekit/format"
)

// Decoder turns classified bytes into text. The tag is the boundary tag of the
// detected format. Returning an empty string is a valid success.
type Decoder interface {
	Decode(ctx context.Context, tag string, data []byte) (string, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, tag string, data []byte) (string, error)

func (f DecoderFunc) Decode(ctx context.Context, tag string, data []byte) (string, error) {
	return f(ctx, tag, data)
}

// Registry maps boundary tags to decoders. It is not modified after
// construction; With returns an extended copy.
type Registry struct {
	byTag map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]Decoder)}
}

// With returns a copy of r with d bound to the tags of formats.
func (r *Registry) With(d Decoder, formats ...format.FileFormat) *Registry {
	next := &Registry{byTag: maps.Clone(r.byTag)}
	if next.byTag == nil {
		next.byTag = make(map[string]Decoder)
	}
	for _, f := range formats {
		next.byTag[f.Tag()] = d
	}
	return next
}

// Lookup returns the decoder bound to tag.
func (r *Registry) Lookup(tag string) (Decoder, bool) {
	d, ok := r.byTag[tag]
	return d, ok
}

// Tags returns the bound tags in sorted order.
func (r *Registry) Tags() []string {
	return slices.Sorted(maps.Keys(r.byTag))
}

// DefaultRegistry binds the built-in decoders, with nesting bounded by cfg.MaxDepth.
func DefaultRegistry(cfg Config) *Registry {
	cfg.defaults()
	text := NewNormalizer()
	return NewRegistry().
		With(&decode.PDF{}, format.Pdf).
		With(&decode.Word{}, format.Docx).
		With(&decode.Slides{}, format.Pptx).
		With(&decode.Sheets{}, format.Xlsx, format.Xls).
		With(&decode.JSON{MaxDepth: cfg.MaxDepth}, format.Json).
		With(&decode.Markup{MaxDepth: cfg.MaxDepth}, format.Xml, format.Html).
		With(decode.NewOCR(decode.OCROptions{}), format.Png, format.Jpeg, format.Tiff, format.Bmp).
		With(text, format.Text, format.Unknown)
}
