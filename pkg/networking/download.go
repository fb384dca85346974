package networking

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"gocloud.dev/blob"

	"github.com/jmnetworking/go-networking/pkg/request"
)

// errorBodyLimit is the maximum length of a non-2xx body kept for the *HTTPError.
const errorBodyLimit = 4096

// DownloadToBucket streams the body of a GET response to the bucket, nil network means the Default one.
// Nothing is written if the response is not 2xx, the *HTTPError is returned.
// The number of written bytes is returned.
func DownloadToBucket(ctx context.Context, n *Network, urlStr string, bucket *blob.Bucket, key string, opts ...RequestOption) (int64, error) {
	if n == nil {
		n = Default()
	}
	if _, err := url.Parse(urlStr); err != nil {
		return 0, &TransportError{URL: urlStr, Err: err}
	}

	r := &requestConfig{request: request.NewHTTPRequest(n.sender).WithGet(urlStr)}
	for _, o := range opts {
		o(r)
	}

	// Writer is aborted by the context cancellation, if the response is not 2xx
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := bucket.NewWriter(writeCtx, key, nil)
	if err != nil {
		return 0, fmt.Errorf(`cannot open blob "%s": %w`, key, err)
	}

	out := &blobWriter{w: w}
	res, _, sendErr := r.request.WithResult(out).Send(ctx)

	// Check response
	switch {
	case res == nil || res.RawResponse() == nil:
		err = &TransportError{URL: urlStr, Err: sendErr}
	case !IsSuccess(res.StatusCode()):
		err = HTTPErrorFor(res.StatusCode(), urlStr, out.head.String(), res.RawResponse())
	case sendErr != nil:
		err = &TransportError{URL: urlStr, Err: sendErr}
	}
	if err != nil {
		cancel()
		_ = w.Close()
		return 0, err
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf(`cannot write blob "%s": %w`, key, err)
	}
	n.logger.Debug("downloaded to bucket", zap.String("url", urlStr), zap.String("key", key), zap.Int64("bytes", out.written))
	return out.written, nil
}

// blobWriter counts written bytes and keeps the beginning of the body.
// It must not implement io.Closer, the blob is closed after the status code is checked.
type blobWriter struct {
	w       *blob.Writer
	head    bytes.Buffer
	written int64
}

func (b *blobWriter) Write(p []byte) (int, error) {
	if remaining := errorBodyLimit - b.head.Len(); remaining > 0 {
		b.head.Write(p[:min(remaining, len(p))])
	}
	n, err := b.w.Write(p)
	b.written += int64(n)
	return n, err
}
