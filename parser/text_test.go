package parser

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

func TestNormalizer(t *testing.T) {
	n := NewNormalizer()

	if got := n.Normalize([]byte("héllo")); got != "héllo" {
		t.Errorf("utf-8 passthrough: got %q", got)
	}
	// 0x80 is the euro sign in Windows-1252.
	if got := n.Normalize([]byte{0x80, 0x20, 0x31}); got != "€ 1" {
		t.Errorf("cp1252: got %q", got)
	}

	latin1 := &Normalizer{Fallbacks: []encoding.Encoding{charmap.ISO8859_1}}
	if got := latin1.Normalize([]byte{0x63, 0x61, 0x66, 0xE9}); got != "café" {
		t.Errorf("latin1: got %q", got)
	}

	none := &Normalizer{}
	if got := none.Normalize([]byte{0x61, 0xFF}); got != "a�" {
		t.Errorf("no fallback: got %q", got)
	}
}

func TestNormalizerUndefinedCP1252Bytes(t *testing.T) {
	// WHAT: the five bytes Windows-1252 leaves unassigned decode to C1 controls.
	// WHY: browsers decode them that way; U+FFFD would lose the byte value.
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0x81, 0x8D, 0x8F, 0x90, 0x9D}, "\u0081\u008d\u008f\u0090\u009d"},
		{[]byte{0x81, 0x8D, 0x8F, 0x90, 0x9D, 0xFF}, "\u0081\u008d\u008f\u0090\u009dÿ"},
		{[]byte{0x93, 0x61, 0x94, 0x9D}, "“a”\u009d"},
	}
	n := NewNormalizer()
	for _, tt := range tests {
		got := n.Normalize(tt.in)
		if got != tt.want {
			t.Errorf("Normalize(% x) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.ContainsRune(got, '�') {
			t.Errorf("Normalize(% x) produced U+FFFD", tt.in)
		}
	}
}

func TestWindows1252LongInput(t *testing.T) {
	// Multi-byte output larger than the transformer's internal buffer.
	in := bytes.Repeat([]byte{0x80, 0x9D, 0x41}, 10000)
	out, err := Windows1252.NewDecoder().Bytes(in)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("€\u009dA", 10000)
	if string(out) != want {
		t.Errorf("decoded %d bytes, want %d", len(out), len(want))
	}
}
