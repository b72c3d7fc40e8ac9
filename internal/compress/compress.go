// Package compress provides streaming zstd wrapping for artifact transfer.
// Both directions work on readers so payloads flow through without being
// buffered whole.
package compress

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// Wrap returns a reader producing the zstd-compressed form of r. The
// compressor runs in a goroutine feeding a pipe, so downstream reads pace
// upstream consumption.
func Wrap(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		zw, err := zstd.NewWriter(pw)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(zw, r); err != nil {
			zw.Close()
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(zw.Close())
	}()
	return pr
}

// Unwrap decodes a zstd stream from r.
func Unwrap(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}
