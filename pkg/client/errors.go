package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestError is returned by the Client.Send if the request could not be sent
// or the response could not be received, for example a connection or a timeout error.
type RequestError struct {
	Method string
	URL    string
	// Reason is a human-readable cause, for example "timeout after 5s", it replaces Err in the message.
	Reason  string
	Err     error
	timeout bool
}

func (e *RequestError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf(`request %s "%s" failed: %s`, e.Method, e.URL, e.Reason)
	}
	return fmt.Sprintf(`request %s "%s" failed: %s`, e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Timeout returns true if the request has been interrupted by a client or a context timeout.
func (e *RequestError) Timeout() bool {
	return e.timeout
}

func handleSendError(startedAt time.Time, clientTimeout time.Duration, req *http.Request, err error) error {
	out := &RequestError{Method: req.Method, URL: req.URL.String(), Err: err}

	// Unwrap url error, method and URL are already set
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		out.Err = urlErr.Err
	}

	// Timeout
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		out.timeout = true
		out.Reason = fmt.Sprintf("timeout after %s", deadline.Sub(startedAt))
	} else if errors.Is(err, context.Canceled) {
		out.Reason = fmt.Sprintf("canceled after %s", time.Since(startedAt))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		out.timeout = true
		if strings.Contains(err.Error(), "Client.Timeout exceeded") {
			out.Reason = fmt.Sprintf("timeout after %s", clientTimeout)
		} else {
			out.Reason = fmt.Sprintf("timeout after %s", time.Since(startedAt))
		}
	}

	return out
}
