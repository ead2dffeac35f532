package parser

import (
	"context"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Normalizer turns a byte buffer classified as text into a string.
//
// Valid UTF-8 is returned unchanged. Anything else is decoded with the
// Fallbacks in order; a candidate is abandoned only if its decoder returns an
// error, and the result of the accepted candidate is not validated further.
type Normalizer struct {
	Fallbacks []encoding.Encoding
}

// NewNormalizer returns the single-tier UTF-8 → Windows-1252 normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{Fallbacks: []encoding.Encoding{Windows1252}}
}

// Normalize decodes data as described on Normalizer.
func (n *Normalizer) Normalize(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	for _, enc := range n.Fallbacks {
		out, err := enc.NewDecoder().Bytes(data)
		if err == nil {
			return string(out)
		}
	}
	// No usable fallback: keep what UTF-8 can salvage.
	return string([]rune(string(data)))
}

// Decode implements Decoder. It never fails.
func (n *Normalizer) Decode(_ context.Context, _ string, data []byte) (string, error) {
	return n.Normalize(data), nil
}

// Windows1252 is Windows-1252 as browsers decode it: the bytes that
// charmap.Windows1252 leaves undefined (0x81, 0x8D, 0x8F, 0x90, 0x9D) map to
// the C1 control with the same value instead of U+FFFD. Encoding defers to
// charmap.Windows1252.
var Windows1252 encoding.Encoding = windows1252{}

type windows1252 struct{}

func (windows1252) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: cp1252Decoder{}}
}

func (windows1252) NewEncoder() *encoding.Encoder {
	return charmap.Windows1252.NewEncoder()
}

func (windows1252) String() string { return "Windows 1252 (WHATWG)" }

type cp1252Decoder struct{ transform.NopResetter }

func (cp1252Decoder) Transform(dst, src []byte, _ bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		b := src[nSrc]
		var r rune
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			r = rune(b)
		default:
			r = charmap.Windows1252.DecodeByte(b)
		}
		if nDst+utf8.RuneLen(r) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc++
	}
	return nDst, nSrc, nil
}
