// Package horosafe holds the input guards shared by parsekit entry points:
// confining caller-named paths to a root and reading streams with a ceiling.
package horosafe

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a caller-supplied path escapes its root.
var ErrPathTraversal = errors.New("horosafe: path escapes its root")

// SafePath resolves p against root and fails with ErrPathTraversal unless the
// cleaned result lies within root. Absolute paths are accepted when they are
// under root. Symbolic links are not followed.
func SafePath(root, p string) (string, error) {
	base, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return p, nil
}

// ReadLimited reads r to EOF but never more than limit+1 bytes. The result is
// longer than limit exactly when r held more than limit bytes. A limit <= 0
// reads everything.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	return io.ReadAll(r)
}
