package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/jmnetworking/go-networking/pkg/client"
	"github.com/jmnetworking/go-networking/pkg/request"
)

func TestDefaultTransport(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := ""
	c := client.New().WithTransport(client.DefaultTransport())
	defer c.CloseIdleConnections()
	apiRequest := request.NewAPIRequest(&out, request.NewHTTPRequest(c).WithGet(server.URL).WithResult(&out))
	result, err := apiRequest.Send(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "hello", *result)
}

func TestNewTransport_Defaults(t *testing.T) {
	t.Parallel()

	transport, ok := client.NewTransport(client.TransportConfig{}).(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, client.TLSHandshakeTimeout, transport.TLSHandshakeTimeout)
	assert.Equal(t, client.ResponseHeaderTimeout, transport.ResponseHeaderTimeout)
	assert.Equal(t, client.MaxConnectionsPerHost, transport.MaxConnsPerHost)
	assert.Equal(t, client.MaxConnectionsPerHost, transport.MaxIdleConnsPerHost)
	assert.True(t, transport.ForceAttemptHTTP2)
}

func TestNewTransport_Custom(t *testing.T) {
	t.Parallel()

	transport, ok := client.NewTransport(client.TransportConfig{
		ResponseHeaderTimeout: time.Minute,
		MaxConnsPerHost:       4,
	}).(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, time.Minute, transport.ResponseHeaderTimeout)
	assert.Equal(t, 4, transport.MaxConnsPerHost)
	assert.Equal(t, client.TLSHandshakeTimeout, transport.TLSHandshakeTimeout)
}

func TestHTTP2Transport(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &http2.Transport{}, client.HTTP2Transport())
	assert.IsType(t, &http2.Transport{}, client.NewTransport(client.TransportConfig{ForceHTTP2: true}))
}
