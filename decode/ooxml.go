package decode

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// openPackage opens an OOXML package held in memory.
func openPackage(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	return zr, nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// paragraphText streams an OOXML part and returns the text of every
// paragraph, empty ones included. Text comes from <t> runs only; <tab> and
// <br> become whitespace. A paragraph nested in another (a text box) is
// emitted before the paragraph that contains it, and the outer text resumes
// after it.
func paragraphText(ctx context.Context, f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var paragraphs []string
	var open []*strings.Builder
	inText := false

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}

		var cur *strings.Builder
		if len(open) > 0 {
			cur = open[len(open)-1]
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if cur != nil {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil {
					cur.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText && cur != nil {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if cur != nil {
					paragraphs = append(paragraphs, cur.String())
					open = open[:len(open)-1]
				}
			}
		}
	}
	return paragraphs, nil
}
