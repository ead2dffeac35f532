package decode

import (
	"context"
	"errors"
	"strings"
)

const wordDocumentPart = "word/document.xml"

// Word extracts the body text of a .docx document, one paragraph per line.
type Word struct{}

func (d *Word) Decode(ctx context.Context, _ string, data []byte) (string, error) {
	zr, err := openPackage(data)
	if err != nil {
		return "", err
	}
	part := findPart(zr, wordDocumentPart)
	if part == nil {
		return "", errors.New(wordDocumentPart + " not found in archive")
	}
	paragraphs, err := paragraphText(ctx, part)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}
