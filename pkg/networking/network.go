// Package networking provides convenience helpers for JSON over HTTP APIs.
//
// Network sends synchronous GET, POST, PUT and DELETE requests and returns the status code and the body.
// Package level functions Get, Post, Put and Delete use the shared Default network.
//
// Objects[T] maps request and response bodies to declared types, see the schema package.
//
// AsyncClient sends each request in its own goroutine and dispatches the result
// to the OnSuccess, OnFailure and OnException callbacks.
//
// Non-2xx responses are returned as *HTTPError, requests without a response as *TransportError.
// Use errors.Is with the Err* classes to check the kind of the error.
// Requests are never retried.
package networking

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jmnetworking/go-networking/pkg/client"
	"github.com/jmnetworking/go-networking/pkg/client/trace"
	"github.com/jmnetworking/go-networking/pkg/client/trace/otel"
	"github.com/jmnetworking/go-networking/pkg/request"
)

//nolint:gochecknoglobals
var (
	defaultNetwork     *Network
	defaultNetworkLock sync.Mutex
)

// Network sends requests by a shared Sender, by default the client.Client.
// Network is safe for concurrent use.
type Network struct {
	sender request.Sender
	logger *zap.Logger
}

type config struct {
	client client.Client
	sender request.Sender
	logger *zap.Logger
}

type Option func(c *config)

// WithClient replaces the default client.Client, options applied later modify the client.
func WithClient(c client.Client) Option {
	return func(cfg *config) {
		cfg.client = c
	}
}

// WithSender sets a custom Sender, for example the restyclient.
// Client options, such as WithTimeout, are not applied to a custom Sender.
func WithSender(sender request.Sender) Option {
	return func(cfg *config) {
		cfg.sender = sender
	}
}

// WithLogger sets the logger, HTTP requests are logged at the debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithTimeout sets the total timeout of a request, zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.WithTimeout(timeout)
	}
}

func WithUserAgent(userAgent string) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.WithUserAgent(userAgent)
	}
}

// WithHeader sets a header sent with each request.
func WithHeader(key, value string) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.WithHeader(key, value)
	}
}

// WithHeaders sets headers sent with each request.
func WithHeaders(headers map[string]string) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.WithHeaders(headers)
	}
}

func WithTransport(transport http.RoundTripper) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.WithTransport(transport)
	}
}

// WithTokenSource authorizes each request by an OAuth2 token.
// It wraps the current transport, so it must be used after WithTransport.
func WithTokenSource(src oauth2.TokenSource) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.WithTokenSource(src)
	}
}

// WithTrace adds a trace factory, for example trace.DumpTracer or the OpenTelemetry tracing.
func WithTrace(factory trace.Factory) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.AndTrace(factory)
	}
}

// WithTelemetry enables OpenTelemetry tracing and metrics, a nil provider disables the part.
func WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Option {
	return func(cfg *config) {
		cfg.client = cfg.client.WithTelemetry(tracerProvider, meterProvider, opts...)
	}
}

// New creates a Network with its own client.Client.
func New(opts ...Option) *Network {
	cfg := config{client: client.New().WithTimeout(DefaultTimeout)}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	} else {
		cfg.client = cfg.client.AndTrace(trace.LogTracer(cfg.logger))
	}

	n := &Network{sender: cfg.sender, logger: cfg.logger}
	if n.sender == nil {
		n.sender = cfg.client
	}
	return n
}

// Default returns the shared Network, it is created on the first call, configured by environment variables.
// An invalid configuration is logged by the global zap logger and DefaultConfig is used instead.
func Default() *Network {
	defaultNetworkLock.Lock()
	defer defaultNetworkLock.Unlock()
	if defaultNetwork == nil {
		cfg, err := LoadConfig()
		if err != nil {
			zap.L().Warn("using default networking config", zap.Error(err))
			cfg = DefaultConfig()
		}
		defaultNetwork = New(cfg.Options()...)
	}
	return defaultNetwork
}

// SetDefault replaces the shared Network, nil resets it, so the next Default call creates a new one.
func SetDefault(n *Network) {
	defaultNetworkLock.Lock()
	defer defaultNetworkLock.Unlock()
	defaultNetwork = n
}

// Logger returns the logger of the Network.
func (n *Network) Logger() *zap.Logger {
	return n.logger
}

// Sender returns the Sender of the Network.
func (n *Network) Sender() request.Sender {
	return n.sender
}

// CloseIdleConnections closes idle keep-alive connections of the underlying transport, if it is supported.
func (n *Network) CloseIdleConnections() {
	if v, ok := n.sender.(interface{ CloseIdleConnections() }); ok {
		v.CloseIdleConnections()
	}
}

func (n *Network) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return n.Send(ctx, http.MethodGet, url, opts...)
}

func (n *Network) Post(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return n.Send(ctx, http.MethodPost, url, opts...)
}

func (n *Network) Put(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return n.Send(ctx, http.MethodPut, url, opts...)
}

func (n *Network) Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return n.Send(ctx, http.MethodDelete, url, opts...)
}

// Send sends the request.
//
// The *HTTPError is returned for a non-2xx response, together with the response.
// If the AsJSON option is used, the body is decoded to the Response.Payload, the decoding error is returned.
func (n *Network) Send(ctx context.Context, method, url string, opts ...RequestOption) (*Response, error) {
	res, asJSON, err := n.roundTrip(ctx, method, url, opts)
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(res.StatusCode, url, res.Body, res.raw); err != nil {
		return res, err
	}
	if asJSON {
		if err := res.decodePayload(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// roundTrip sends the request and returns the response with any status code.
// Only the *TransportError is returned.
func (n *Network) roundTrip(ctx context.Context, method, urlStr string, opts []RequestOption) (*Response, bool, error) {
	if _, err := url.Parse(urlStr); err != nil {
		return nil, false, &TransportError{URL: urlStr, Err: err}
	}

	// Build request
	r := &requestConfig{request: request.NewHTTPRequest(n.sender).WithMethod(method).WithURL(urlStr)}
	for _, o := range opts {
		o(r)
	}

	// Send request, the body is read for any status code
	var body []byte
	res, _, err := r.request.WithResult(&body).Send(ctx)
	if res == nil || res.RawResponse() == nil {
		return nil, false, &TransportError{URL: urlStr, Err: err}
	}

	out := newResponse(res.RawResponse(), body)
	if err != nil && IsSuccess(out.StatusCode) {
		// The body could not be read
		return nil, false, &TransportError{URL: urlStr, Err: err}
	}
	return out, r.asJSON, nil
}

// Get sends GET request by the Default network.
func Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Default().Get(ctx, url, opts...)
}

// Post sends POST request by the Default network.
func Post(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Default().Post(ctx, url, opts...)
}

// Put sends PUT request by the Default network.
func Put(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Default().Put(ctx, url, opts...)
}

// Delete sends DELETE request by the Default network.
func Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Default().Delete(ctx, url, opts...)
}
