// Package format classifies document bytes into a closed set of formats.
//
// Classification is pure: no I/O, no allocation beyond small lossy string
// conversions, and no error paths. Content evidence (magic bytes) wins over
// filename evidence whenever it is definitive.
//
//	f := format.Detect("scan.txt", data)
//	fmt.Println(f.Tag()) // "pdf" if data starts with %PDF
package format

// FileFormat identifies a document format.
type FileFormat int

const (
	Unknown FileFormat = iota
	Pdf
	Docx
	Xlsx
	Xls
	Pptx
	Png
	Jpeg
	Tiff
	Bmp
	Json
	Xml
	Html
	Text
)

// Tag returns the canonical lowercase identifier used at the system boundary.
// Html reports "xml": existing consumers route HTML through the XML path.
func (f FileFormat) Tag() string {
	switch f {
	case Pdf:
		return "pdf"
	case Docx:
		return "docx"
	case Xlsx:
		return "xlsx"
	case Xls:
		return "xls"
	case Pptx:
		return "pptx"
	case Png:
		return "png"
	case Jpeg:
		return "jpeg"
	case Tiff:
		return "tiff"
	case Bmp:
		return "bmp"
	case Json:
		return "json"
	case Xml, Html:
		return "xml"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// String returns the variant name, which unlike Tag distinguishes Html from Xml.
func (f FileFormat) String() string {
	switch f {
	case Pdf:
		return "Pdf"
	case Docx:
		return "Docx"
	case Xlsx:
		return "Xlsx"
	case Xls:
		return "Xls"
	case Pptx:
		return "Pptx"
	case Png:
		return "Png"
	case Jpeg:
		return "Jpeg"
	case Tiff:
		return "Tiff"
	case Bmp:
		return "Bmp"
	case Json:
		return "Json"
	case Xml:
		return "Xml"
	case Html:
		return "Html"
	case Text:
		return "Text"
	default:
		return "Unknown"
	}
}

// Formats returns every variant in declaration order.
func Formats() []FileFormat {
	return []FileFormat{Unknown, Pdf, Docx, Xlsx, Xls, Pptx, Png, Jpeg, Tiff, Bmp, Json, Xml, Html, Text}
}

// ParseTag maps a boundary tag back to a format. "xml" yields Xml, never Html.
func ParseTag(tag string) (FileFormat, bool) {
	for _, f := range Formats() {
		if f == Html {
			continue
		}
		if f.Tag() == tag {
			return f, true
		}
	}
	return Unknown, false
}

// MarshalText encodes the format as its boundary tag.
func (f FileFormat) MarshalText() ([]byte, error) {
	return []byte(f.Tag()), nil
}

// ParseName maps a variant name, as returned by String, back to a format.
func ParseName(name string) (FileFormat, bool) {
	for _, f := range Formats() {
		if f.String() == name {
			return f, true
		}
	}
	return Unknown, false
}
