package otel

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

// keySet is a set of lower-cased header or parameter names.
type keySet map[string]struct{}

func newKeySet(keys ...string) keySet {
	s := make(keySet)
	s.add(keys...)
	return s
}

func (s keySet) add(keys ...string) {
	for _, k := range keys {
		s[strings.ToLower(k)] = struct{}{}
	}
}

func (s keySet) has(key string) bool {
	_, found := s[strings.ToLower(key)]
	return found
}

type config struct {
	propagators   propagation.TextMapPropagator
	redactedPath  keySet
	redactedQuery keySet
	redactedHdr   keySet
}

// Option configures the telemetry created by NewTrace.
type Option func(*config)

// WithPropagators injects the trace context into headers of each sent request.
func WithPropagators(v propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagators = v
	}
}

// WithRedactedPathParam masks values of the path params in span attributes.
func WithRedactedPathParam(params ...string) Option {
	return func(c *config) {
		c.redactedPath.add(params...)
	}
}

// WithRedactedQueryParam masks values of the query params in span attributes.
func WithRedactedQueryParam(params ...string) Option {
	return func(c *config) {
		c.redactedQuery.add(params...)
	}
}

// WithRedactedHeaders masks values of the request and response headers in span attributes.
func WithRedactedHeaders(headers ...string) Option {
	return func(c *config) {
		c.redactedHdr.add(headers...)
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		redactedPath:  newKeySet(),
		redactedQuery: newKeySet(),
		redactedHdr: newKeySet(
			"Authorization",
			"Proxy-Authorization",
			"WWW-Authenticate",
			"Proxy-Authenticate",
			"Cookie",
			"Set-Cookie",
			"X-Api-Key",
		),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}
