package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Result - any value.
type Result = any

// NoResult type.
type NoResult struct{}

// Listener is invoked when the request is completed.
// The returned error replaces the error of the request, so a listener can also clear it.
type Listener func(ctx context.Context, response HTTPResponse, err error) error

// HTTPRequest is an immutable HTTP request, each With* / And* method returns a modified copy.
type HTTPRequest interface {
	httpRequestReadOnly
	// WithGet is shortcut for WithMethod(http.MethodGet).WithURL(url).
	WithGet(url string) HTTPRequest
	// WithPost is shortcut for WithMethod(http.MethodPost).WithURL(url).
	WithPost(url string) HTTPRequest
	// WithPut is shortcut for WithMethod(http.MethodPut).WithURL(url).
	WithPut(url string) HTTPRequest
	// WithDelete is shortcut for WithMethod(http.MethodDelete).WithURL(url).
	WithDelete(url string) HTTPRequest
	// WithMethod sets the HTTP method.
	WithMethod(method string) HTTPRequest
	// WithBaseURL sets the base URL, a relative URL is resolved against it.
	WithBaseURL(baseURL string) HTTPRequest
	// WithURL sets the URL.
	WithURL(url string) HTTPRequest
	// AndHeader sets a single header field and its value.
	AndHeader(header string, value string) HTTPRequest
	// WithHeaders sets multiple header fields, already defined fields are kept.
	WithHeaders(headers map[string]string) HTTPRequest
	// AndQueryParam sets a single query parameter and its value.
	AndQueryParam(param, value string) HTTPRequest
	// WithQueryParams replaces all query parameters.
	WithQueryParams(params map[string]string) HTTPRequest
	// WithQueryValues replaces all query parameters, a parameter may have multiple values.
	WithQueryValues(values url.Values) HTTPRequest
	// AndPathParam sets a single value for a {placeholder} in the URL path.
	AndPathParam(param, value string) HTTPRequest
	// WithPathParams replaces all {placeholder} values.
	WithPathParams(params map[string]string) HTTPRequest
	// WithFormBody sets form parameters and Content-Type header to "application/x-www-form-urlencoded".
	WithFormBody(form map[string]string) HTTPRequest
	// WithJSONBody sets request body to the JSON value and Content-Type header to "application/json".
	WithJSONBody(body any) HTTPRequest
	// WithBody sets request body.
	WithBody(body any) HTTPRequest
	// WithContentType sets custom content type.
	WithContentType(contentType string) HTTPRequest
	// WithError registers the target value for the error response mapping.
	WithError(err error) HTTPRequest
	// WithResult registers the target value for the response mapping.
	WithResult(result any) HTTPRequest
	// WithOnComplete registers a listener executed when the request is completed.
	WithOnComplete(fn Listener) HTTPRequest
	// WithOnSuccess registers a listener executed when the request is completed without an error.
	WithOnSuccess(fn func(ctx context.Context, response HTTPResponse) error) HTTPRequest
	// WithOnError registers a listener executed when the request is completed with an error.
	WithOnError(fn Listener) HTTPRequest
	// Send sends the request by the Sender and returns response, mapped result and error.
	Send(ctx context.Context) (response HTTPResponse, result any, err error)
	SendOrErr(ctx context.Context) error
}

type httpRequestReadOnly interface {
	// Method returns HTTP method.
	Method() string
	// URL returns the absolute or relative URL, the base URL is applied.
	URL() *url.URL
	// RequestHeader returns HTTP request headers.
	RequestHeader() http.Header
	// QueryParams returns HTTP query parameters.
	QueryParams() url.Values
	// PathParams returns values mapped to a {placeholder} in the URL.
	PathParams() map[string]string
	// RequestBody returns a definition of the request body.
	// Supported types are: `string`, `[]byte`, `io.ReadSeeker`, `io.ReadSeekCloser`
	// and any value serializable to JSON, if the Content-Type is JSON.
	RequestBody() any
	// ErrorDef returns a target value for the error response mapping.
	ErrorDef() error
	// ResultDef returns a target value for the response mapping.
	ResultDef() any
}

type withTracer interface {
	Tracer() trace.Tracer
}

// NewHTTPRequest creates an immutable HTTP request sent by the sender.
func NewHTTPRequest(sender Sender) HTTPRequest {
	return httpRequest{sender: sender, header: make(http.Header)}
}

// httpRequest implements HTTPRequest interface.
type httpRequest struct {
	sender      Sender
	method      string
	baseURL     *url.URL
	url         *url.URL
	header      http.Header
	queryParams url.Values
	pathParams  map[string]string
	body        any
	resultDef   any
	errorDef    error
	listeners   []Listener
}

func (r httpRequest) Tracer() trace.Tracer {
	if tp, ok := r.sender.(withTracer); ok {
		return tp.Tracer()
	}
	return nil
}

func (r httpRequest) Method() string {
	if r.method == "" {
		panic(fmt.Errorf("request method is not set"))
	}
	return r.method
}

func (r httpRequest) URL() *url.URL {
	if r.url == nil {
		panic(fmt.Errorf("request url is not set"))
	}

	clone := *r.url
	out := &clone
	if r.baseURL != nil && !out.IsAbs() {
		out.Path = strings.TrimLeft(out.Path, "/")
		out = r.baseURL.ResolveReference(out)
	}
	return out
}

func (r httpRequest) RequestHeader() http.Header {
	return r.header
}

func (r httpRequest) QueryParams() url.Values {
	return r.queryParams
}

func (r httpRequest) PathParams() map[string]string {
	return r.pathParams
}

func (r httpRequest) RequestBody() any {
	return r.body
}

func (r httpRequest) ErrorDef() error {
	return r.errorDef
}

func (r httpRequest) ResultDef() any {
	return r.resultDef
}

func (r httpRequest) WithGet(url string) HTTPRequest {
	return r.WithMethod(http.MethodGet).WithURL(url)
}

func (r httpRequest) WithPost(url string) HTTPRequest {
	return r.WithMethod(http.MethodPost).WithURL(url)
}

func (r httpRequest) WithPut(url string) HTTPRequest {
	return r.WithMethod(http.MethodPut).WithURL(url)
}

func (r httpRequest) WithDelete(url string) HTTPRequest {
	return r.WithMethod(http.MethodDelete).WithURL(url)
}

func (r httpRequest) WithMethod(method string) HTTPRequest {
	r.method = strings.ToUpper(method)
	return r
}

func (r httpRequest) WithURL(urlStr string) HTTPRequest {
	v, err := url.Parse(urlStr)
	if err != nil {
		panic(fmt.Errorf(`url "%s" is not valid: %w`, urlStr, err))
	}
	r.url = v
	return r
}

func (r httpRequest) WithBaseURL(baseURL string) HTTPRequest {
	v, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURL, err))
	}
	// Trailing slash is required by ResolveReference
	v.Path = strings.TrimRight(v.Path, "/") + "/"
	r.baseURL = v
	return r
}

func (r httpRequest) AndHeader(header string, value string) HTTPRequest {
	r.header = r.header.Clone()
	r.header.Set(header, value)
	return r
}

func (r httpRequest) WithHeaders(headers map[string]string) HTTPRequest {
	r.header = r.header.Clone()
	for k, v := range headers {
		r.header.Set(k, v)
	}
	return r
}

func (r httpRequest) AndQueryParam(key, value string) HTTPRequest {
	r.queryParams = cloneURLValues(r.queryParams)
	r.queryParams.Set(key, value)
	return r
}

func (r httpRequest) WithQueryParams(params map[string]string) HTTPRequest {
	r.queryParams = make(url.Values)
	for k, v := range params {
		r.queryParams.Set(k, v)
	}
	return r
}

func (r httpRequest) WithQueryValues(values url.Values) HTTPRequest {
	r.queryParams = cloneURLValues(values)
	return r
}

func (r httpRequest) AndPathParam(key, value string) HTTPRequest {
	r.pathParams = cloneParams(r.pathParams)
	r.pathParams[key] = value
	return r
}

func (r httpRequest) WithPathParams(params map[string]string) HTTPRequest {
	r.pathParams = cloneParams(params)
	return r
}

func (r httpRequest) WithFormBody(form map[string]string) HTTPRequest {
	formData := make(url.Values)
	for k, v := range form {
		formData.Set(k, v)
	}
	r.body = formData.Encode()
	return r.AndHeader("Content-Type", "application/x-www-form-urlencoded")
}

func (r httpRequest) WithJSONBody(body any) HTTPRequest {
	r.body = body
	return r.AndHeader("Content-Type", "application/json")
}

func (r httpRequest) WithBody(body any) HTTPRequest {
	r.body = body
	return r
}

func (r httpRequest) WithContentType(contentType string) HTTPRequest {
	return r.AndHeader("Content-Type", contentType)
}

func (r httpRequest) WithError(err error) HTTPRequest {
	if reflect.ValueOf(err).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`error must be defined by a pointer`))
	}
	r.errorDef = err
	return r
}

func (r httpRequest) WithResult(result any) HTTPRequest {
	if _, ok := result.(io.Writer); !ok && reflect.ValueOf(result).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`result must be defined by a pointer`))
	}
	r.resultDef = result
	return r
}

func (r httpRequest) WithOnComplete(fn Listener) HTTPRequest {
	r.listeners = appendListener(r.listeners, fn)
	return r
}

func (r httpRequest) WithOnSuccess(fn func(ctx context.Context, response HTTPResponse) error) HTTPRequest {
	r.listeners = appendListener(r.listeners, func(ctx context.Context, response HTTPResponse, err error) error {
		if err == nil {
			return fn(ctx, response)
		}
		return err
	})
	return r
}

func (r httpRequest) WithOnError(fn Listener) HTTPRequest {
	r.listeners = appendListener(r.listeners, func(ctx context.Context, response HTTPResponse, err error) error {
		if err != nil {
			return fn(ctx, response, err)
		}
		return nil
	})
	return r
}

func (r httpRequest) Send(ctx context.Context) (HTTPResponse, any, error) {
	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if r.sender == nil {
		panic(fmt.Errorf("request sender is not set"))
	}

	rawResponse, result, err := r.sender.Send(ctx, r)
	out := &httpResponse{httpRequest: r, rawResponse: rawResponse, result: result, err: err}

	for _, fn := range r.listeners {
		out.err = fn(ctx, out, out.err)
	}

	return out, out.result, out.err
}

func (r httpRequest) SendOrErr(ctx context.Context) error {
	_, _, err := r.Send(ctx)
	return err
}

// appendListener never shares the backing array between two request copies.
func appendListener(in []Listener, fn Listener) []Listener {
	out := make([]Listener, len(in), len(in)+1)
	copy(out, in)
	return append(out, fn)
}
