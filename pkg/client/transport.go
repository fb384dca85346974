package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	DialTimeout           = 3 * time.Second
	KeepAlive             = 10 * time.Second
	TLSHandshakeTimeout   = 5 * time.Second
	ResponseHeaderTimeout = 20 * time.Second
	MaxConnectionsPerHost = 32
	// HTTP2PingTimeout is used for health checks of idle HTTP2 connections.
	HTTP2PingTimeout = 3 * time.Second
)

// TransportConfig defines connection limits of a transport created by NewTransport.
// Zero fields are replaced by the defaults above.
type TransportConfig struct {
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	MaxConnsPerHost       int
	// ForceHTTP2 skips the HTTP/1.1 upgrade, the server must support HTTP2 over TLS.
	ForceHTTP2 bool
}

// DefaultTransportConfig returns limits used by DefaultTransport.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		DialTimeout:           DialTimeout,
		KeepAlive:             KeepAlive,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
	}
}

func (c TransportConfig) withDefaults() TransportConfig {
	def := DefaultTransportConfig()
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = def.KeepAlive
	}
	if c.TLSHandshakeTimeout <= 0 {
		c.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}
	if c.ResponseHeaderTimeout <= 0 {
		c.ResponseHeaderTimeout = def.ResponseHeaderTimeout
	}
	if c.MaxConnsPerHost <= 0 {
		c.MaxConnsPerHost = def.MaxConnsPerHost
	}
	return c
}

// NewTransport creates a pooled transport, connections are reused across requests to the same host.
func NewTransport(cfg TransportConfig) http.RoundTripper {
	cfg = cfg.withDefaults()
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}

	if cfg.ForceHTTP2 {
		return &http2.Transport{
			DialTLS: func(network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
				return tls.DialWithDialer(dialer, network, addr, tlsCfg)
			},
			ReadIdleTimeout:  HTTP2PingTimeout,
			PingTimeout:      HTTP2PingTimeout,
			WriteByteTimeout: HTTP2PingTimeout,
		}
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
	}
}

// DefaultTransport creates a transport with the default limits.
func DefaultTransport() http.RoundTripper {
	return NewTransport(DefaultTransportConfig())
}

// HTTP2Transport creates a transport which forces the HTTP2 protocol.
func HTTP2Transport() http.RoundTripper {
	cfg := DefaultTransportConfig()
	cfg.ForceHTTP2 = true
	return NewTransport(cfg)
}
