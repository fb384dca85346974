package request

import "net/http"

// HTTPResponse is a completed HTTPRequest with the response mapped to the Result() value.
type HTTPResponse interface {
	httpRequestReadOnly
	httpResponseCommon
	// Result returns the response mapped to the ResultDef() type, if any.
	Result() any
}

type httpResponseCommon interface {
	// ResponseHeader returns HTTP response headers.
	ResponseHeader() http.Header
	// StatusCode returns HTTP status code, or 0 if no response has been received.
	StatusCode() int
	// RawRequest returns the last sent request, after redirects.
	RawRequest() *http.Request
	// RawResponse returns the standard HTTP response, it may be nil, e.g. on a network error.
	RawResponse() *http.Response
	// IsSuccess returns true if HTTP status `code >= 200 and <= 299` otherwise false.
	IsSuccess() bool
	// IsError returns true if HTTP status `code >= 400` otherwise false.
	IsError() bool
	// Error returns the error of the request, it may be the mapped ErrorDef() value.
	Error() error
}

// httpResponse implements HTTPResponse interface.
type httpResponse struct {
	httpRequest
	rawResponse *http.Response
	result      any
	err         error
}

func (r httpResponse) ResponseHeader() http.Header {
	if r.rawResponse == nil {
		return nil
	}
	return r.rawResponse.Header
}

func (r httpResponse) StatusCode() int {
	if r.rawResponse == nil {
		return 0
	}
	return r.rawResponse.StatusCode
}

func (r httpResponse) RawRequest() *http.Request {
	if r.rawResponse != nil {
		return r.rawResponse.Request
	}
	return nil
}

func (r httpResponse) RawResponse() *http.Response {
	return r.rawResponse
}

func (r httpResponse) IsSuccess() bool {
	return r.StatusCode() > 199 && r.StatusCode() < 300
}

func (r httpResponse) IsError() bool {
	return r.StatusCode() > 399
}

func (r httpResponse) Result() any {
	return r.result
}

func (r httpResponse) Error() error {
	return r.err
}
