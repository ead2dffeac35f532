package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// JSON pretty-prints a JSON document with two-space indentation and sorted
// object keys. Input that is not valid JSON is returned as text, with invalid
// UTF-8 replaced. Valid documents nested deeper than MaxDepth (default 100)
// fail with an error rather than being echoed back; a recursion-limited
// pretty-printer would instead format anything up to 128 levels and return
// deeper input unchanged.
type JSON struct {
	MaxDepth int
}

func (d *JSON) Decode(_ context.Context, _ string, data []byte) (string, error) {
	if !json.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	limit := depthLimit(d.MaxDepth)
	if depth := jsonDepth(data); depth > limit {
		return "", tooDeep(depth, limit)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("decode json: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// jsonDepth returns the deepest array/object nesting of a valid document.
func jsonDepth(data []byte) int {
	depth, deepest := 0, 0
	inString, escaped := false, false
	for _, c := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			deepest = max(deepest, depth)
		case '}', ']':
			depth--
		}
	}
	return deepest
}
