package decode

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Markup extracts the text of XML and HTML documents.
//
// Input is first read as well-formed XML and its character data joined with
// single spaces. Input that is not well-formed XML goes through the HTML
// parser instead. Script and style content is dropped on both paths, and
// element nesting deeper than MaxDepth is an error.
//
// With Markdown set, HTML documents are sanitized and rendered as Markdown
// rather than flattened to text.
type Markup struct {
	MaxDepth int
	Markdown bool
}

func (d *Markup) Decode(ctx context.Context, _ string, data []byte) (string, error) {
	limit := depthLimit(d.MaxDepth)

	text, root, err := xmlText(ctx, data, limit)
	var syntaxErr *xml.SyntaxError
	switch {
	case err == nil && !(d.Markdown && strings.EqualFold(root, "html")):
		return text, nil
	case err != nil && !errors.As(err, &syntaxErr):
		return "", err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	text, err = htmlText(doc, limit)
	if err != nil {
		return "", err
	}
	if d.Markdown {
		if md := htmlMarkdown(data); md != "" {
			return md, nil
		}
	}
	return text, nil
}

// xmlText collects character data from a well-formed XML document and
// reports the name of its root element.
func xmlText(ctx context.Context, data []byte, limit int) (string, string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var parts []string
	var root string
	depth, skipUntil := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > limit {
				return "", "", tooDeep(depth, limit)
			}
			if root == "" {
				root = t.Name.Local
			}
			if skipUntil == 0 && isScriptOrStyle(t.Name.Local) {
				skipUntil = depth
			}
		case xml.EndElement:
			if skipUntil == depth {
				skipUntil = 0
			}
			depth--
		case xml.CharData:
			if skipUntil != 0 {
				continue
			}
			if s := strings.TrimSpace(string(t)); s != "" {
				parts = append(parts, s)
			}
		}
	}
	if root == "" {
		return "", "", &xml.SyntaxError{Msg: "no root element", Line: 1}
	}
	return strings.Join(parts, " "), root, nil
}

func isScriptOrStyle(name string) bool {
	return strings.EqualFold(name, "script") || strings.EqualFold(name, "style")
}

var hiddenStyleRe = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "hidden" || (a.Key == "style" && hiddenStyleRe.MatchString(a.Val)) {
			return true
		}
	}
	return false
}

// htmlText collects visible text from a parsed HTML tree.
func htmlText(doc *html.Node, limit int) (string, error) {
	var parts []string
	var walk func(n *html.Node, depth int) error
	walk = func(n *html.Node, depth int) error {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		case html.ElementNode:
			depth++
			if depth > limit {
				return tooDeep(depth, limit)
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return nil
			}
			if hidden(n) {
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c, depth); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc, 0); err != nil {
		return "", err
	}
	return strings.Join(parts, " "), nil
}

var (
	ugcPolicy   = sync.OnceValue(bluemonday.UGCPolicy)
	mdConverter = sync.OnceValue(func() *converter.Converter {
		return converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	})
)

// htmlMarkdown sanitizes an HTML document and renders it as Markdown. It
// returns "" when conversion fails or yields nothing.
func htmlMarkdown(data []byte) string {
	clean := ugcPolicy().SanitizeBytes(data)
	md, err := mdConverter().ConvertString(string(clean))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}
