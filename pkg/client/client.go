// Package client provides the default implementation of the request.Sender interface.
//
// Client is based on the standard net/http package and contains tracing/telemetry support.
// Each request is sent exactly once, the Client does not retry.
// Requests are defined by the immutable request.HTTPRequest, see request.NewHTTPRequest.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/jmnetworking/go-networking/pkg/client/counter"
	"github.com/jmnetworking/go-networking/pkg/client/trace"
	"github.com/jmnetworking/go-networking/pkg/client/trace/otel"
	"github.com/jmnetworking/go-networking/pkg/request"
)

const (
	DefaultUserAgent      = "jmnetworking-go"
	DefaultAcceptEncoding = "gzip, br"
	telemetryAppName      = "github.com/jmnetworking/go-networking"
)

// Client is a default and configurable implementation of the request.Sender interface by Go native http.Client.
// Client is a value, each With* / And* method returns a modified clone.
type Client struct {
	transport    http.RoundTripper
	baseURL      *url.URL
	header       http.Header
	timeout      time.Duration
	traceFactory trace.Factory
	tracer       otelTrace.Tracer
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header)}
	c.header.Set("User-Agent", DefaultUserAgent)
	c.header.Set("Accept-Encoding", DefaultAcceptEncoding)
	return c
}

// WithBaseURL returns a clone of the Client with base url set.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader("User-Agent", v)
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithTokenSource returns a clone of the Client, each request is authorized by a token from the source.
func (c Client) WithTokenSource(src oauth2.TokenSource) Client {
	if src == nil {
		panic(fmt.Errorf("token source cannot be nil"))
	}
	return c.WithTransport(&oauth2.Transport{Source: src, Base: c.transport})
}

// WithTimeout returns a clone of the Client with the total request timeout set.
// Zero value means no timeout.
func (c Client) WithTimeout(timeout time.Duration) Client {
	if timeout < 0 {
		panic(fmt.Errorf("timeout cannot be negative"))
	}
	c.timeout = timeout
	return c
}

// AndTrace returns a clone of the Client with a trace factory added.
// Hooks of the previously added factories are called first.
func (c Client) AndTrace(fn trace.Factory) Client {
	if c.traceFactory == nil {
		c.traceFactory = fn
		return c
	}

	oldFactory := c.traceFactory
	c.traceFactory = func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		ctx, oldTrace := oldFactory(ctx, reqDef)
		ctx, newTrace := fn(ctx, reqDef)
		if newTrace == nil {
			return ctx, oldTrace
		}
		newTrace.Compose(oldTrace)
		return ctx, newTrace
	}
	return c
}

// WithTelemetry returns a clone of the Client with OpenTelemetry tracing and metrics.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Client {
	if tracerProvider != nil {
		c.tracer = tracerProvider.Tracer(telemetryAppName)
	}
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// Timeout returns the total request timeout.
func (c Client) Timeout() time.Duration {
	return c.timeout
}

// Header returns a copy of the common headers.
func (c Client) Header() http.Header {
	return c.header.Clone()
}

// Tracer returns the OpenTelemetry tracer used for request.APIRequest spans, if the telemetry is enabled.
func (c Client) Tracer() otelTrace.Tracer {
	return c.tracer
}

// CloseIdleConnections closes idle connections of the transport, if it is supported.
func (c Client) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}
	if v, ok := c.transport.(closeIdler); ok {
		v.CloseIdleConnections()
	}
}

// Send method sends HTTP request and returns HTTP response, it implements the Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (res *http.Response, result any, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// If method or url is not set, panic occurs. So we get these values first.
	method := reqDef.Method()
	reqURLStr := reqDef.URL().String()

	// Init trace
	var tc *trace.ClientTrace
	if c.traceFactory != nil {
		ctx, tc = c.traceFactory(ctx, reqDef)
		if tc != nil {
			ctx = httptrace.WithClientTrace(ctx, &tc.ClientTrace)
		}
	}

	// Trace request processed
	if tc != nil && tc.RequestProcessed != nil {
		defer func() {
			tc.RequestProcessed(result, err)
		}()
	}

	// Replace path parameters
	for k, v := range reqDef.PathParams() {
		reqURLStr = strings.ReplaceAll(reqURLStr, url.PathEscape("{"+k+"}"), url.PathEscape(v))
	}

	// Convert to absolute url
	var reqURL *url.URL
	if c.baseURL == nil {
		reqURL, err = url.Parse(reqURLStr)
	} else {
		reqURL, err = c.baseURL.Parse(reqURLStr)
	}
	if err != nil {
		return nil, nil, err
	}

	// Set query parameters, parameters from the URL string are kept
	if params := reqDef.QueryParams(); len(params) > 0 {
		query := reqURL.Query()
		for k, values := range params {
			query[k] = values
		}
		reqURL.RawQuery = query.Encode()
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, nil, err
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	// Request headers
	for k, values := range reqDef.RequestHeader() {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Body
	if reqDef.RequestBody() != nil {
		// GetBody factory is used for requests when a redirect requires reading the body more than once.
		req.GetBody = func() (io.ReadCloser, error) {
			body, err := requestBody(reqDef)
			if err != nil {
				return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, req.Method, req.URL.String(), err)
			}
			return body, nil
		}
		req.Body, err = req.GetBody()
		if err != nil {
			return nil, nil, err
		}
	}

	// Setup native client
	nativeClient := http.Client{
		Timeout:   c.timeout,
		Transport: roundTripper{trace: tc, wrapped: c.transport},
	}

	// Send request
	startedAt := time.Now()
	res, err = nativeClient.Do(req)
	if err != nil {
		return nil, nil, handleSendError(startedAt, c.timeout, req, err)
	}

	// Process body
	if r, e, unexpectedErr := MapResponse(res, reqDef.ResultDef(), reqDef.ErrorDef(), tc); unexpectedErr == nil {
		result, err = r, e
	} else {
		err = fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), unexpectedErr)
	}

	// Generic HTTP error
	if err == nil && res.StatusCode > 399 {
		return res, nil, fmt.Errorf(`request %s "%s" failed: %d %s`, req.Method, req.URL.String(), res.StatusCode, http.StatusText(res.StatusCode))
	}

	return res, result, err
}

// roundTripper wraps a http.RoundTripper, it counts transferred bytes and calls trace hooks.
type roundTripper struct {
	trace   *trace.ClientTrace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.trace == nil {
		return rt.wrapped.RoundTrip(req)
	}

	// Trace request start
	if rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}

	// Count sent bytes
	var sentBody *counter.ReadCloser
	if req.Body != nil && req.Body != http.NoBody {
		sentBody = counter.NewReadCloser(req.Body, nil)
		req = req.Clone(req.Context())
		req.Body = sentBody
	}
	sentBytes := func() int64 {
		if sentBody == nil {
			return 0
		}
		return sentBody.Bytes()
	}

	// Send
	res, err := rt.wrapped.RoundTrip(req)

	// Trace response headers
	if rt.trace.HTTPResponse != nil {
		rt.trace.HTTPResponse(res, err)
	}

	// Trace request done, the response body is not available
	if err != nil || res == nil {
		if rt.trace.HTTPRequestDone != nil {
			rt.trace.HTTPRequestDone(res, sentBytes(), 0, err)
		}
		return res, err
	}

	// Trace request done, when the response body is closed
	body := res.Body
	if body == nil {
		body = http.NoBody
	}
	res.Body = counter.NewReadCloser(body, func(receivedBytes int64, err error) {
		if rt.trace.HTTPRequestDone != nil {
			rt.trace.HTTPRequestDone(res, sentBytes(), receivedBytes, err)
		}
	})

	return res, nil
}
