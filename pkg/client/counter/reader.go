// Package counter provides a body wrapper that counts the transferred bytes.
package counter

import (
	"errors"
	"io"
)

// OnClose is called when the body is closed, with the number of bytes read so far.
type OnClose func(bytes int64, err error)

// ReadCloser counts bytes read from a request or response body.
// The OnClose callback, if any, is called at most once.
type ReadCloser struct {
	wrapped io.ReadCloser
	onClose OnClose
	bytes   int64
	lastErr error
	closed  bool
}

func NewReadCloser(wrapped io.ReadCloser, onClose OnClose) *ReadCloser {
	return &ReadCloser{wrapped: wrapped, onClose: onClose}
}

// Bytes returns the number of bytes read so far.
func (r *ReadCloser) Bytes() int64 {
	return r.bytes
}

func (r *ReadCloser) Read(p []byte) (int, error) {
	n, err := r.wrapped.Read(p)
	r.bytes += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		r.lastErr = err
	}
	return n, err
}

func (r *ReadCloser) Close() error {
	err := r.wrapped.Close()
	if !r.closed {
		r.closed = true
		if r.onClose != nil {
			r.onClose(r.bytes, firstErr(r.lastErr, err))
		}
	}
	return err
}

// firstErr returns the read error if any, it usually describes the cause better than the close error.
func firstErr(readErr, closeErr error) error {
	if readErr != nil {
		return readErr
	}
	return closeErr
}
