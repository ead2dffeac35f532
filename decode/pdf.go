package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// NoPDFText is returned, as a successful result, for a well-formed PDF that
// carries no text layer.
const NoPDFText = "PDF contains no extractable text (might be scanned/image-based)"

// PDF extracts the text layer of a PDF document.
//
// The plain-text reader of ledongthuc/pdf runs first. When it fails or finds
// nothing, content streams are read page by page through pdfcpu. The document
// is rejected only when neither library can open it.
type PDF struct{}

func (d *PDF) Decode(ctx context.Context, _ string, data []byte) (string, error) {
	text, plainErr := plainPDFText(data)
	if plainErr == nil && text != "" {
		return text, nil
	}

	text, streamErr := streamPDFText(ctx, data)
	switch {
	case streamErr == nil && text != "":
		return text, nil
	case errors.Is(streamErr, context.Canceled), errors.Is(streamErr, context.DeadlineExceeded):
		return "", streamErr
	case streamErr == nil || plainErr == nil:
		return NoPDFText, nil
	default:
		return "", fmt.Errorf("read pdf: %w", plainErr)
	}
}

// plainPDFText runs ledongthuc/pdf, which panics on some malformed inputs.
func plainPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// streamPDFText validates the document with pdfcpu and decodes text operators
// from each page's content stream.
func streamPDFText(ctx context.Context, data []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var pages []string
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil || len(content) == 0 {
			continue
		}
		if text := contentStreamText(content); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// pdfStringRe matches literal strings: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// contentStreamText collects the operands of the text-showing operators
// Tj, TJ and ' and turns positioning operators into whitespace.
func contentStreamText(stream []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(stream, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case len(line) == 0:
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(unescapePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			sb.WriteByte(' ')
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return collapseSpaces(sb.String())
}

// unescapePDFString resolves backslash escapes, including 1-3 digit octal codes.
func unescapePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch c = raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(c - '0')
			for n := 1; n < 3 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		default:
			// \\ \( \) and unknown escapes keep the escaped byte.
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
