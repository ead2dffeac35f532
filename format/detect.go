package format

import (
	"bytes"
	"path/filepath"
	"strings"
)

// officeScanLen bounds how much of a ZIP container is searched for OOXML part names.
const officeScanLen = 2000

var (
	pdfMagic     = []byte("%PDF")
	pngMagic     = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic    = []byte{0xFF, 0xD8, 0xFF}
	bmpMagic     = []byte("BM")
	tiffLEMagic  = []byte{0x49, 0x49, 0x2A, 0x00}
	tiffBEMagic  = []byte{0x4D, 0x4D, 0x00, 0x2A}
	oleMagic     = []byte{0xD0, 0xCF, 0x11, 0xE0}
	zipMagic     = []byte("PK")
	extensionMap = map[string]FileFormat{
		"pdf":      Pdf,
		"docx":     Docx,
		"xlsx":     Xlsx,
		"xls":      Xls,
		"pptx":     Pptx,
		"png":      Png,
		"jpg":      Jpeg,
		"jpeg":     Jpeg,
		"tiff":     Tiff,
		"tif":      Tiff,
		"bmp":      Bmp,
		"json":     Json,
		"xml":      Xml,
		"html":     Html,
		"htm":      Html,
		"txt":      Text,
		"text":     Text,
		"md":       Text,
		"markdown": Text,
		"csv":      Text,
	}
)

// Detect classifies a document from an optional filename and optional content.
// An empty filename means no filename; a nil content slice means no content,
// while a non-nil empty slice is content that classifies as Text.
//
// Definitive content evidence wins; otherwise a recognised extension wins;
// otherwise content that sniffed as text stays Text; otherwise Unknown.
func Detect(filename string, content []byte) FileFormat {
	fromContent := Unknown
	if content != nil {
		fromContent = DetectFromContent(content)
		if fromContent != Text && fromContent != Unknown {
			return fromContent
		}
	}

	if filename != "" {
		if f := DetectFromExtension(filename); f != Unknown {
			return f
		}
	}

	if fromContent == Text {
		return Text
	}
	return Unknown
}

// DetectFromExtension classifies by the final path extension, case-insensitively.
func DetectFromExtension(filename string) FileFormat {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	// ".pdf" is a dotfile named pdf, not an extension.
	if len(ext) < 2 || ext == base {
		return Unknown
	}
	if f, ok := extensionMap[strings.ToLower(ext[1:])]; ok {
		return f
	}
	return Unknown
}

// DetectFromContent classifies by magic bytes and light content heuristics.
// Tests run in a fixed order and the first match wins.
func DetectFromContent(data []byte) FileFormat {
	if len(data) == 0 {
		return Text
	}

	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return Pdf
	case bytes.HasPrefix(data, pngMagic):
		return Png
	case bytes.HasPrefix(data, jpegMagic):
		return Jpeg
	case bytes.HasPrefix(data, bmpMagic):
		return Bmp
	case bytes.HasPrefix(data, tiffLEMagic), bytes.HasPrefix(data, tiffBEMagic):
		return Tiff
	case bytes.HasPrefix(data, oleMagic):
		// Legacy Office container; spreadsheets are the common case.
		return Xls
	case bytes.HasPrefix(data, zipMagic):
		return detectOfficeFormat(data)
	}

	if len(data) >= 5 {
		start := lossyString(data[:5])
		if strings.HasPrefix(start, "<?xml") || strings.HasPrefix(start, "<!") {
			return Xml
		}
	}

	if len(data) >= 14 {
		start := strings.ToLower(lossyString(data[:14]))
		if strings.Contains(start, "<!doctype") || strings.Contains(start, "<html") {
			return Html
		}
	}

	if i := bytes.IndexFunc(data, func(r rune) bool {
		return r != ' ' && r != '\t' && r != '\n' && r != '\r'
	}); i >= 0 && (data[i] == '{' || data[i] == '[') {
		return Json
	}

	return Text
}

// detectOfficeFormat picks the OOXML flavour of a ZIP container from part names
// near its start. Containers without a known marker are assumed to be spreadsheets.
func detectOfficeFormat(data []byte) FileFormat {
	content := lossyString(data[:min(officeScanLen, len(data))])
	switch {
	case strings.Contains(content, "word/"):
		return Docx
	case strings.Contains(content, "xl/"):
		return Xlsx
	case strings.Contains(content, "ppt/"):
		return Pptx
	default:
		return Xlsx
	}
}

// SupportedExtensions lists every extension the detector recognises, in a
// stable order suitable for capability advertisement.
func SupportedExtensions() []string {
	return []string{
		"pdf", "docx", "xlsx", "xls", "pptx",
		"png", "jpg", "jpeg", "tiff", "tif", "bmp",
		"json", "xml", "html", "htm",
		"txt", "text", "md", "markdown", "csv",
	}
}

// lossyString converts bytes to a string, replacing invalid UTF-8 with U+FFFD.
func lossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
