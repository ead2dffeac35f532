// Package decode holds the built-in decoders: one type per group of format
// tags, each turning a byte slice into plain text.
//
// Decoders never read files and never see the size ceiling; they receive bytes
// the caller already classified. Every decoder is safe for concurrent use.
package decode

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrTooDeep is returned when JSON or XML nesting exceeds MaxDepth.
var ErrTooDeep = errors.New("nesting exceeds maximum depth")

const defaultMaxDepth = 100

func depthLimit(n int) int {
	if n <= 0 {
		return defaultMaxDepth
	}
	return n
}

func tooDeep(depth, limit int) error {
	return fmt.Errorf("%w: %d > %d", ErrTooDeep, depth, limit)
}

// collapseSpaces folds runs of whitespace into one space and drops
// non-printable runes.
func collapseSpaces(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
