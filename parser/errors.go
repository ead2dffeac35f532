package parser

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"

	"github.com/hazyhaar/parsekit/format"
)

// ErrEmptyInput is returned by ParseString for a zero-length input.
var ErrEmptyInput = errors.New("parsekit: input cannot be empty")

// SizeLimitError is returned when an input exceeds Config.MaxSize. It is
// produced before any detection or decoding work.
type SizeLimitError struct {
	Actual int64
	Limit  int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("parsekit: file size %d exceeds maximum allowed size %d", e.Actual, e.Limit)
}

// IOError is returned when an input could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsekit: failed to read input: %v", e.Err)
	}
	return fmt.Sprintf("parsekit: failed to read file %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError is returned when a decoder could not interpret classified input.
// Message is the decoder's error text, verbatim.
type DecodeError struct {
	Format  format.FileFormat
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parsekit: decode %s: %s", e.Format.Tag(), e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind categorises parser errors.
type Kind int

const (
	KindUnknown Kind = iota
	KindSizeLimitExceeded
	KindEmptyInput
	KindIOFailure
	KindDecodeFailure
)

// KindOf reports the Kind of err, or KindUnknown for errors this package did not produce.
func KindOf(err error) Kind {
	var sizeErr *SizeLimitError
	var ioErr *IOError
	var decErr *DecodeError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &sizeErr):
		return KindSizeLimitExceeded
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.As(err, &ioErr):
		return KindIOFailure
	case errors.As(err, &decErr):
		return KindDecodeFailure
	default:
		return KindUnknown
	}
}

// Category describes how an error kind surfaces at a boundary.
type Category struct {
	Kind       Kind
	Name       string
	HTTPStatus int
	ExitCode   int
}

var categories = sync.OnceValue(func() map[Kind]Category {
	return map[Kind]Category{
		KindUnknown:           {KindUnknown, "internal", http.StatusInternalServerError, 1},
		KindSizeLimitExceeded: {KindSizeLimitExceeded, "size_limit_exceeded", http.StatusRequestEntityTooLarge, 3},
		KindEmptyInput:        {KindEmptyInput, "empty_input", http.StatusBadRequest, 4},
		KindIOFailure:         {KindIOFailure, "io_failure", http.StatusBadGateway, 5},
		KindDecodeFailure:     {KindDecodeFailure, "decode_failure", http.StatusUnprocessableEntity, 6},
	}
})

// Categories returns a copy of the process-wide category table, which is built
// once on first use and never modified afterwards.
func Categories() map[Kind]Category {
	return maps.Clone(categories())
}

// CategoryOf returns the category for err's kind.
func CategoryOf(err error) Category {
	return categories()[KindOf(err)]
}

// String returns the category name of k.
func (k Kind) String() string {
	if c, ok := categories()[k]; ok {
		return c.Name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}
