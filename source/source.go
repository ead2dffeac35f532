// Package source reads documents named by a local path or an s3:// URI,
// enforcing the parser's size ceiling before the bytes are pulled into memory.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hazyhaar/parsekit/horosafe"
	"github.com/hazyhaar/parsekit/parser"
)

const s3Scheme = "s3://"

// ObjectGetter is the subset of *s3.Client the fetcher uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher resolves document URIs to bytes.
type Fetcher struct {
	// S3 serves s3:// URIs. Nil disables them.
	S3 ObjectGetter
	// Root confines local paths to a directory tree. Empty allows any path.
	Root string
}

// IsS3 reports whether uri names an S3 object.
func IsS3(uri string) bool { return strings.HasPrefix(uri, s3Scheme) }

// Fetch returns the document at uri and the name to use for extension
// detection. Inputs larger than limit fail with *parser.SizeLimitError before
// their content is read; limit <= 0 disables the check. Read failures are
// *parser.IOError.
func (f *Fetcher) Fetch(ctx context.Context, uri string, limit int64) ([]byte, string, error) {
	if IsS3(uri) {
		return f.fetchS3(ctx, uri, limit)
	}
	path := uri
	if f.Root != "" {
		var err error
		if path, err = horosafe.SafePath(f.Root, uri); err != nil {
			return nil, "", &parser.IOError{Path: uri, Err: err}
		}
	}
	return fetchFile(path, limit)
}

func fetchFile(path string, limit int64) ([]byte, string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, "", &parser.IOError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return nil, "", &parser.IOError{Path: path, Err: errors.New("is a directory")}
	}
	if limit > 0 && fi.Size() > limit {
		return nil, "", &parser.SizeLimitError{Actual: fi.Size(), Limit: limit}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", &parser.IOError{Path: path, Err: err}
	}
	return data, path, nil
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs a bucket and a key: %q", uri)
	}
	return bucket, key, nil
}

func (f *Fetcher) fetchS3(ctx context.Context, uri string, limit int64) ([]byte, string, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, "", &parser.IOError{Path: uri, Err: err}
	}
	if f.S3 == nil {
		return nil, "", &parser.IOError{Path: uri, Err: errors.New("s3 is not configured")}
	}

	out, err := f.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", &parser.IOError{Path: uri, Err: fmt.Errorf("s3 get: %w", err)}
	}
	defer out.Body.Close()

	if n := aws.ToInt64(out.ContentLength); limit > 0 && n > limit {
		return nil, "", &parser.SizeLimitError{Actual: n, Limit: limit}
	}

	data, err := horosafe.ReadLimited(out.Body, limit)
	if err != nil {
		return nil, "", &parser.IOError{Path: uri, Err: fmt.Errorf("s3 read: %w", err)}
	}
	if n := int64(len(data)); limit > 0 && n > limit {
		// The object was larger than its advertised length.
		return nil, "", &parser.SizeLimitError{Actual: n, Limit: limit}
	}
	return data, key, nil
}
