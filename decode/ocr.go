package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// tessdataDirs are searched, in order, when neither OCROptions.TessdataDir
// nor TESSDATA_PREFIX names an existing directory.
var tessdataDirs = []string{
	"/usr/share/tessdata",
	"/usr/share/tesseract-ocr/5/tessdata",
	"/usr/share/tesseract-ocr/4.00/tessdata",
	"/usr/local/share/tessdata",
	"/opt/homebrew/share/tessdata",
	"/opt/local/share/tessdata",
	"tessdata",
}

// OCROptions configures the OCR decoder.
type OCROptions struct {
	// Language passed to tesseract with -l (default: "eng").
	Language string `json:"ocr_language" yaml:"ocr_language"`

	// Binary is the tesseract executable (default: "tesseract", resolved on PATH).
	Binary string `json:"tesseract_path" yaml:"tesseract_path"`

	// TessdataDir overrides language data discovery.
	TessdataDir string `json:"tessdata_dir" yaml:"tessdata_dir"`
}

// OCR recognises text in PNG, JPEG, TIFF and BMP images by running the
// tesseract command line tool. The image header is checked before tesseract
// is started, so corrupt images fail without spawning a process.
type OCR struct {
	opts OCROptions

	once     sync.Once
	tessdata string

	// run executes the recogniser; replaced in tests.
	run func(ctx context.Context, stdin []byte, env []string, name string, args ...string) ([]byte, error)
}

// NewOCR returns an OCR decoder with defaults applied to opts.
func NewOCR(opts OCROptions) *OCR {
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.Binary == "" {
		opts.Binary = "tesseract"
	}
	return &OCR{opts: opts, run: runCommand}
}

// Options returns the effective options.
func (d *OCR) Options() OCROptions { return d.opts }

func (d *OCR) Decode(ctx context.Context, _ string, data []byte) (string, error) {
	if _, kind, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	} else if kind == "" {
		return "", errors.New("load image: unknown image type")
	}

	d.once.Do(func() { d.tessdata = findTessdata(d.opts.TessdataDir) })

	var env []string
	if d.tessdata != "" {
		env = append(os.Environ(), "TESSDATA_PREFIX="+d.tessdata)
	}
	out, err := d.run(ctx, data, env, d.opts.Binary, "stdin", "stdout", "-l", d.opts.Language)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// TessdataDir reports the language data directory in use, running discovery
// if no image has been decoded yet. "" means tesseract's built-in default.
func (d *OCR) TessdataDir() string {
	d.once.Do(func() { d.tessdata = findTessdata(d.opts.TessdataDir) })
	return d.tessdata
}

func findTessdata(override string) string {
	candidates := make([]string, 0, len(tessdataDirs)+2)
	if override != "" {
		candidates = append(candidates, override)
	}
	if env := os.Getenv("TESSDATA_PREFIX"); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates, tessdataDirs...)
	for _, dir := range candidates {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
	}
	return ""
}

func runCommand(ctx context.Context, stdin []byte, env []string, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s not available: %w", name, err)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
