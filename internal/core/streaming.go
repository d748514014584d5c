package core

// streaming.go prepares raw contact files for the vCard parser without
// loading them into memory:
//
//   - A byte order mark is stripped. UTF-16 files exported by Windows address
//     books are recognized by their BOM and decoded to UTF-8.
//   - Invalid UTF-8 sequences are replaced with U+FFFD.
//   - Bytes consumed are counted for the run summary.
//
// Use WrapInput to apply all transforms in the correct order.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewDecodingReader strips a BOM and decodes r to valid UTF-8. Input without
// a BOM is treated as UTF-8.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// WrapInput counts the raw bytes of r and decodes them for the parser.
//
// Counting wraps the raw input so BytesRead reports the file size, not the
// size after decoding.
func WrapInput(r io.Reader) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r)
	return NewDecodingReader(counter), counter
}
