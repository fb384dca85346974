package networking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error classes, use errors.Is to check the class of an error returned by this package.
// A class matches also all its parents, for example errors.Is(err, ErrClient) is true for a 404 error.
//
//	ErrNetwork
//	├── ErrTransport
//	│   └── ErrTimeout
//	└── ErrHTTP
//	    ├── ErrRedirect
//	    ├── ErrClient
//	    │   └── ErrBadRequest, ErrUnauthorized, ErrForbidden, ErrNotFound,
//	    │       ErrConflict, ErrUnprocessableEntity, ErrTooManyRequests
//	    └── ErrServer
//	        └── ErrInternalServer, ErrBadGateway, ErrServiceUnavailable, ErrGatewayTimeout
var (
	ErrNetwork   = newErrorClass("network error", nil)
	ErrTransport = newErrorClass("transport error", ErrNetwork)
	ErrTimeout   = newErrorClass("timeout", ErrTransport)
	ErrHTTP      = newErrorClass("http error", ErrNetwork)
	ErrRedirect  = newErrorClass("redirect", ErrHTTP)
	ErrClient    = newErrorClass("client error", ErrHTTP)
	ErrServer    = newErrorClass("server error", ErrHTTP)

	ErrBadRequest          = newErrorClass("bad request", ErrClient)
	ErrUnauthorized        = newErrorClass("unauthorized", ErrClient)
	ErrForbidden           = newErrorClass("forbidden", ErrClient)
	ErrNotFound            = newErrorClass("not found", ErrClient)
	ErrConflict            = newErrorClass("conflict", ErrClient)
	ErrUnprocessableEntity = newErrorClass("unprocessable entity", ErrClient)
	ErrTooManyRequests     = newErrorClass("too many requests", ErrClient)

	ErrInternalServer     = newErrorClass("internal server error", ErrServer)
	ErrBadGateway         = newErrorClass("bad gateway", ErrServer)
	ErrServiceUnavailable = newErrorClass("service unavailable", ErrServer)
	ErrGatewayTimeout     = newErrorClass("gateway timeout", ErrServer)
)

//nolint:gochecknoglobals
var statusClasses = map[int]error{
	http.StatusBadRequest:          ErrBadRequest,
	http.StatusUnauthorized:        ErrUnauthorized,
	http.StatusForbidden:           ErrForbidden,
	http.StatusNotFound:            ErrNotFound,
	http.StatusConflict:            ErrConflict,
	http.StatusUnprocessableEntity: ErrUnprocessableEntity,
	http.StatusTooManyRequests:     ErrTooManyRequests,
	http.StatusInternalServerError: ErrInternalServer,
	http.StatusBadGateway:          ErrBadGateway,
	http.StatusServiceUnavailable:  ErrServiceUnavailable,
	http.StatusGatewayTimeout:      ErrGatewayTimeout,
}

type errorClass struct {
	name   string
	parent *errorClass
}

func newErrorClass(name string, parent error) error {
	c := &errorClass{name: name}
	if parent != nil {
		c.parent = parent.(*errorClass) //nolint:forcetypeassert
	}
	return c
}

func (c *errorClass) Error() string {
	return c.name
}

// Is returns true if the target is a parent class.
func (c *errorClass) Is(target error) bool {
	for p := c.parent; p != nil; p = p.parent {
		if p == target {
			return true
		}
	}
	return false
}

// TransportError is returned if no HTTP response has been received, for example on a DNS, connection or TLS error.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf(`request timed out: %s`, e.Err)
	}
	return fmt.Sprintf(`network error: %s`, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout returns true if the request has been interrupted by a timeout.
func (e *TransportError) Timeout() bool {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(e.Err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Class returns ErrTimeout or ErrTransport.
func (e *TransportError) Class() error {
	if e.Timeout() {
		return ErrTimeout
	}
	return ErrTransport
}

func (e *TransportError) Is(target error) bool {
	return errors.Is(e.Class(), target)
}

// HTTPError is returned if an HTTP response has been received, but the status code is not 2xx.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
	// Response with already closed body.
	Response *http.Response
}

// HTTPErrorFor creates the error for a non-2xx response.
func HTTPErrorFor(statusCode int, url, body string, response *http.Response) *HTTPError {
	return &HTTPError{StatusCode: statusCode, URL: url, Body: body, Response: response}
}

// CheckStatus returns nil for a 2xx status code, otherwise the *HTTPError.
func CheckStatus(statusCode int, url, body string, response *http.Response) error {
	if IsSuccess(statusCode) {
		return nil
	}
	return HTTPErrorFor(statusCode, url, body, response)
}

// IsSuccess returns true for a 2xx status code.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`HTTP %d for %s`, e.StatusCode, e.URL)
}

// Class returns the most specific error class for the status code.
func (e *HTTPError) Class() error {
	if class, ok := statusClasses[e.StatusCode]; ok {
		return class
	}
	switch {
	case e.StatusCode >= 300 && e.StatusCode < 400:
		return ErrRedirect
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrClient
	case e.StatusCode >= 500 && e.StatusCode < 600:
		return ErrServer
	default:
		return ErrHTTP
	}
}

func (e *HTTPError) Is(target error) bool {
	return errors.Is(e.Class(), target)
}
