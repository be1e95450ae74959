// Package compression handles transparently compressed datafiles. Survey
// exports are often shipped gzipped; loaders detect the algorithm from the
// file name and wrap the stream, so format readers only ever see plain
// bytes.
package compression

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/cohortdata/cohort/pkg/errors"
)

// Algorithm identifies a stream compression scheme.
type Algorithm string

const (
	// None passes bytes through untouched.
	None Algorithm = "none"
	// Gzip is the only scheme survey tools emit in practice.
	Gzip Algorithm = "gzip"
)

// Detect infers the algorithm from a file name.
func Detect(path string) Algorithm {
	if strings.HasSuffix(path, ".gz") {
		return Gzip
	}
	return None
}

// Strip removes the compression suffix from a file name so format detection
// can look at the real extension.
func Strip(path string) string {
	return strings.TrimSuffix(path, ".gz")
}

// NewReader wraps r with a decompressor for the algorithm. For None the
// returned closer is a no-op; the caller still owns the underlying stream.
func NewReader(algorithm Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch algorithm {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open gzip stream")
		}
		return gz, nil
	}
	return nil, errors.New(errors.ErrorTypeConfig, "unsupported compression algorithm").
		WithDetail("algorithm", string(algorithm))
}

// NewWriter wraps w with a compressor for the algorithm. Closing the
// returned writer flushes the stream but leaves w open.
func NewWriter(algorithm Algorithm, w io.Writer) (io.WriteCloser, error) {
	switch algorithm {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	}
	return nil, errors.New(errors.ErrorTypeConfig, "unsupported compression algorithm").
		WithDetail("algorithm", string(algorithm))
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
