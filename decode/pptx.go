package decode

import (
	"archive/zip"
	"context"
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Slides extracts the text of a .pptx presentation in slide order. Paragraphs
// are separated by newlines and slides by a blank line.
type Slides struct{}

func (d *Slides) Decode(ctx context.Context, _ string, data []byte) (string, error) {
	zr, err := openPackage(data)
	if err != nil {
		return "", err
	}

	type slide struct {
		n    int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePartRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n, f})
	}
	if len(slides) == 0 {
		return "", errors.New("no slides found in archive")
	}
	slices.SortFunc(slides, func(a, b slide) int { return a.n - b.n })

	var out []string
	for _, s := range slides {
		paragraphs, err := paragraphText(ctx, s.file)
		if err != nil {
			return "", err
		}
		var lines []string
		for _, p := range paragraphs {
			if p = strings.TrimSpace(p); p != "" {
				lines = append(lines, p)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(out, "\n\n"), nil
}
