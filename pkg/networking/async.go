package networking

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned for a request sent after AsyncClient.Close.
var ErrClosed = errors.New("async client is closed")

// SuccessCallback is called with a 2xx response, or with any response if raising on non-2xx is disabled.
// The returned error becomes the error of the call.
type SuccessCallback func(ctx context.Context, res *Response) error

// FailureCallback is called with a non-2xx response.
type FailureCallback func(ctx context.Context, res *Response)

// ExceptionCallback is called with an error other than *HTTPError, for example a timeout.
// The returned error becomes the error of the call, nil swallows the error.
type ExceptionCallback func(ctx context.Context, err error) error

// AsyncClient sends each request in a new goroutine and dispatches the result to callbacks.
type AsyncClient struct {
	network       *Network
	ownsNetwork   bool
	logger        *zap.Logger
	timeout       time.Duration
	raiseOnNon2xx bool

	lock        sync.RWMutex
	headers     map[string]string
	onSuccess   SuccessCallback
	onFailure   FailureCallback
	onException ExceptionCallback

	closeLock sync.Mutex
	closed    bool
	wg        sync.WaitGroup
}

type asyncConfig struct {
	network       *Network
	logger        *zap.Logger
	headers       map[string]string
	timeout       time.Duration
	raiseOnNon2xx bool
}

type AsyncOption func(c *asyncConfig)

// WithNetwork sets a shared Network, it is not closed by AsyncClient.Close.
func WithNetwork(n *Network) AsyncOption {
	return func(c *asyncConfig) {
		c.network = n
	}
}

// WithAsyncHeaders sets headers sent with each request.
func WithAsyncHeaders(headers map[string]string) AsyncOption {
	return func(c *asyncConfig) {
		c.headers = maps.Clone(headers)
	}
}

// WithAsyncTimeout sets the timeout of each call, zero means the timeout of the Network.
func WithAsyncTimeout(timeout time.Duration) AsyncOption {
	return func(c *asyncConfig) {
		c.timeout = timeout
	}
}

// WithRaiseOnNon2xx configures whether a non-2xx response is returned as *HTTPError, it is enabled by default.
func WithRaiseOnNon2xx(v bool) AsyncOption {
	return func(c *asyncConfig) {
		c.raiseOnNon2xx = v
	}
}

func WithAsyncLogger(logger *zap.Logger) AsyncOption {
	return func(c *asyncConfig) {
		c.logger = logger
	}
}

// NewAsyncClient creates AsyncClient, a new Network is created if no one is set by the WithNetwork option.
func NewAsyncClient(opts ...AsyncOption) *AsyncClient {
	cfg := asyncConfig{raiseOnNon2xx: true}
	for _, o := range opts {
		o(&cfg)
	}

	c := &AsyncClient{
		network:       cfg.network,
		logger:        cfg.logger,
		timeout:       cfg.timeout,
		raiseOnNon2xx: cfg.raiseOnNon2xx,
		headers:       cfg.headers,
	}
	if c.network == nil {
		var networkOpts []Option
		if c.logger != nil {
			networkOpts = append(networkOpts, WithLogger(c.logger))
		}
		c.network = New(networkOpts...)
		c.ownsNetwork = true
	}
	if c.logger == nil {
		c.logger = c.network.Logger()
	}
	return c
}

// SetHeaders replaces headers sent with each request.
func (c *AsyncClient) SetHeaders(headers map[string]string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.headers = maps.Clone(headers)
}

// Headers returns a copy of headers sent with each request.
func (c *AsyncClient) Headers() map[string]string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return maps.Clone(c.headers)
}

func (c *AsyncClient) OnSuccess(fn SuccessCallback) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.onSuccess = fn
}

func (c *AsyncClient) OnFailure(fn FailureCallback) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.onFailure = fn
}

func (c *AsyncClient) OnException(fn ExceptionCallback) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.onException = fn
}

// LogException logs the error and returns it, it can be used as the ExceptionCallback.
func (c *AsyncClient) LogException(_ context.Context, err error) error {
	c.logger.Error("request failed", zap.Error(err))
	return err
}

func (c *AsyncClient) Get(ctx context.Context, url string, opts ...RequestOption) *Call {
	return c.Send(ctx, http.MethodGet, url, opts...)
}

func (c *AsyncClient) Post(ctx context.Context, url string, opts ...RequestOption) *Call {
	return c.Send(ctx, http.MethodPost, url, opts...)
}

func (c *AsyncClient) Put(ctx context.Context, url string, opts ...RequestOption) *Call {
	return c.Send(ctx, http.MethodPut, url, opts...)
}

func (c *AsyncClient) Delete(ctx context.Context, url string, opts ...RequestOption) *Call {
	return c.Send(ctx, http.MethodDelete, url, opts...)
}

// Send starts the request in a new goroutine.
func (c *AsyncClient) Send(ctx context.Context, method, url string, opts ...RequestOption) *Call {
	call := &Call{done: make(chan struct{})}

	c.closeLock.Lock()
	if c.closed {
		c.closeLock.Unlock()
		call.finish(nil, ErrClosed)
		return call
	}
	c.wg.Add(1)
	c.closeLock.Unlock()

	// Client headers are overridden by the request options
	opts = append([]RequestOption{Headers(c.Headers())}, opts...)

	go func() {
		defer c.wg.Done()
		call.finish(c.do(ctx, method, url, opts))
	}()
	return call
}

// Close waits for all running calls.
// Idle connections are closed, if the Network has been created by the client.
// Calls sent after Close fail with ErrClosed.
func (c *AsyncClient) Close() {
	c.closeLock.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.closeLock.Unlock()

	c.wg.Wait()
	if !alreadyClosed && c.ownsNetwork {
		c.network.CloseIdleConnections()
	}
}

func (c *AsyncClient) do(ctx context.Context, method, url string, opts []RequestOption) (*Response, error) {
	c.lock.RLock()
	onSuccess, onFailure, onException := c.onSuccess, c.onFailure, c.onException
	c.lock.RUnlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	handleException := func(err error) (*Response, error) {
		if onException != nil {
			return nil, onException(ctx, err)
		}
		return nil, err
	}

	res, asJSON, err := c.network.roundTrip(ctx, method, url, opts)
	if err != nil {
		return handleException(err)
	}

	if !IsSuccess(res.StatusCode) {
		if onFailure != nil {
			onFailure(ctx, res)
		}
		if c.raiseOnNon2xx {
			return res, HTTPErrorFor(res.StatusCode, url, res.Body, res.raw)
		}
	}

	// Invalid JSON payload is kept as text
	if asJSON {
		_ = res.decodePayload()
	}

	if onSuccess != nil {
		if err := onSuccess(ctx, res); err != nil {
			return handleException(err)
		}
	}
	return res, nil
}

// Call is a running request.
type Call struct {
	done     chan struct{}
	response *Response
	err      error
}

// Done is closed when the call is completed.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait for the call and return its result.
func (c *Call) Wait() (*Response, error) {
	<-c.done
	return c.response, c.err
}

func (c *Call) finish(res *Response, err error) {
	c.response, c.err = res, err
	close(c.done)
}
