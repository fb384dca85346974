// Package otel provides OpenTelemetry tracing and metrics for HTTP client requests.
//
// Telemetry is reported on two levels:
//
// 1. Logical request
//   - Span "jmnetworking.client.request" wraps the whole request, including all redirects.
//   - Span "http.request.body.parse" tracks streaming and decoding of the response body.
//   - Metrics are prefixed with "jmnetworking.client.", see clientMeters and parseMeters.
//
// 2. Each sent HTTP request, one per redirect
//   - Span "http.request" is parent of the connection spans, for example "http.dns", "http.tls", "http.getconn".
//   - Metrics are prefixed with "jmnetworking.http.", see httpMeters.
package otel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jmnetworking/go-networking/pkg/client/trace"
	"github.com/jmnetworking/go-networking/pkg/request"
)

const (
	instrumentationName = "github.com/jmnetworking/go-networking"

	clientRequestSpan = "jmnetworking.client.request"
	bodyParseSpan     = "http.request.body.parse"
	httpRequestSpan   = "http.request"
	dnsSpan           = "http.dns"
	getConnSpan       = "http.getconn"
	connectSpan       = "http.connect"
	tlsSpan           = "http.tls"
	headersSpan       = "http.headers"
	sendSpan          = "http.send"
	receiveSpan       = "http.receive"

	attrResourceName     = attribute.Key("resource.name")
	attrDNSAddresses     = attribute.Key("http.dns.addrs")
	attrRemoteAddr       = attribute.Key("http.remote")
	attrLocalAddr        = attribute.Key("http.local")
	attrConnReused       = attribute.Key("http.conn.reused")
	attrConnWasIdle      = attribute.Key("http.conn.wasidle")
	attrConnIdleTime     = attribute.Key("http.conn.idletime")
	attrConnStartNetwork = attribute.Key("http.conn.start.network")
	attrConnDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnDoneAddr     = attribute.Key("http.conn.done.addr")
	attrWroteBytes       = attribute.Key("http.wrote_bytes")
	attrReadBytes        = attribute.Key("http.read_bytes")

	// DataDog reads the span kind and type from attributes.
	attrSpanKind = attribute.Key("span.kind")
	attrSpanType = attribute.Key("span.type")
)

// NewTrace creates a trace.Factory which reports spans and metrics to the providers.
// Nil providers are replaced by no-op implementations.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(instrumentationName)
	meters := newMeters(meterProvider.Meter(instrumentationName))

	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		rt := &requestTelemetry{
			tracer: tracer,
			meters: meters,
			cfg:    cfg,
			attrs:  newAttributes(cfg, reqDef),
		}
		return rt.start(ctx), rt.clientTrace()
	}
}

// requestTelemetry holds the state of one logical request.
// Hooks are called sequentially by the client, so no locking is needed.
type requestTelemetry struct {
	tracer otelTrace.Tracer
	meters *allMeters
	cfg    config
	attrs  *attributes

	rootCtx   context.Context
	rootSpan  otelTrace.Span
	startedAt time.Time

	// State of the current HTTP request, reset on each redirect.
	httpCtx       context.Context
	httpSpan      otelTrace.Span
	httpStartedAt time.Time
	readBytes     int64

	parseSpan      otelTrace.Span
	parseStartedAt time.Time
	parseAttrs     []attribute.KeyValue

	receiveSpan otelTrace.Span
	dnsSpan     otelTrace.Span
	getConnSpan otelTrace.Span
	connectSpan otelTrace.Span
	tlsSpan     otelTrace.Span
	headersSpan otelTrace.Span
	sendSpan    otelTrace.Span
}

func (t *requestTelemetry) clientTrace() *trace.ClientTrace {
	tc := &trace.ClientTrace{
		RequestProcessed: t.requestProcessed,
		HTTPRequestStart: t.httpRequestStart,
		HTTPResponse:     t.httpResponse,
		HTTPRequestDone:  t.httpRequestDone,
		BodyParseStart:   t.bodyParseStart,
		BodyParseDone:    t.bodyParseDone,
	}

	// Low-level hooks, the "otelhttptrace" contrib package does not end spans:
	// https://github.com/open-telemetry/opentelemetry-go-contrib/issues/399
	tc.GotFirstResponseByte = t.gotFirstResponseByte
	tc.DNSStart = t.dnsStart
	tc.DNSDone = t.dnsDone
	tc.GetConn = t.getConn
	tc.GotConn = t.gotConn
	tc.ConnectStart = t.connectStart
	tc.ConnectDone = t.connectDone
	tc.TLSHandshakeStart = t.tlsHandshakeStart
	tc.TLSHandshakeDone = t.tlsHandshakeDone
	tc.WroteHeaderField = t.wroteHeaderField
	tc.WroteHeaders = t.wroteHeaders
	tc.WroteRequest = t.wroteRequest
	return tc
}

func (t *requestTelemetry) startSpan(parent context.Context, name string, attrs ...attribute.KeyValue) (context.Context, otelTrace.Span) {
	return t.tracer.Start(parent, name, otelTrace.WithSpanKind(otelTrace.SpanKindClient), otelTrace.WithAttributes(attrs...))
}

func (t *requestTelemetry) start(ctx context.Context) context.Context {
	t.startedAt = time.Now()
	t.meters.client.inFlight.Add(ctx, 1, otelMetric.WithAttributes(t.attrs.definition...))

	var attrs []attribute.KeyValue
	attrs = append(attrs,
		attrResourceName.String(t.attrs.definitionURL.Path),
		attrSpanKind.String("client"),
		attrSpanType.String("http"),
	)
	attrs = append(attrs, t.attrs.definition...)
	attrs = append(attrs, t.attrs.definitionExtra...)
	t.rootCtx, t.rootSpan = t.startSpan(ctx, clientRequestSpan, attrs...)
	t.httpCtx = t.rootCtx
	return t.rootCtx
}

func (t *requestTelemetry) requestProcessed(_ any, err error) {
	// The in-flight counter must be decremented with the same dimensions as it was incremented.
	t.meters.client.inFlight.Add(t.rootCtx, -1, otelMetric.WithAttributes(t.attrs.definition...))

	var meterAttrs []attribute.KeyValue
	meterAttrs = append(meterAttrs, t.attrs.definition...)
	meterAttrs = append(meterAttrs, t.attrs.httpResponse...)
	meterAttrs = append(meterAttrs, t.attrs.httpResponseError...)
	t.meters.client.duration.Record(t.rootCtx, sinceMs(t.startedAt), otelMetric.WithAttributes(meterAttrs...))

	if t.rootSpan == nil {
		return
	}
	t.rootSpan.SetAttributes(t.attrs.httpResponse...)
	t.rootSpan.SetAttributes(t.attrs.httpResponseExtra...)
	if err != nil {
		setSpanError(t.rootSpan, err)
		t.rootSpan.End(otelTrace.WithStackTrace(true))
	} else {
		t.rootSpan.End()
	}
	t.rootSpan = nil
}

func (t *requestTelemetry) httpRequestStart(req *http.Request) {
	t.readBytes = 0
	t.httpStartedAt = time.Now()
	t.httpCtx, t.httpSpan = t.startSpan(t.rootCtx, httpRequestSpan, attrSpanKind.String("client"), attrSpanType.String("http"))

	if t.cfg.propagators != nil {
		t.cfg.propagators.Inject(t.httpCtx, propagation.HeaderCarrier(req.Header))
	}

	t.attrs.SetFromRequest(req)
	t.meters.http.inFlight.Add(t.rootCtx, 1, otelMetric.WithAttributes(t.attrs.httpRequest...))
	t.httpSpan.SetAttributes(attrResourceName.String(t.attrs.httpURL.Path))
	t.httpSpan.SetAttributes(t.attrs.httpRequest...)
	t.httpSpan.SetAttributes(t.attrs.httpRequestExtra...)
}

func (t *requestTelemetry) httpResponse(res *http.Response, err error) {
	t.attrs.SetFromResponse(res, err)
	if t.httpSpan != nil {
		t.httpSpan.SetAttributes(t.attrs.httpResponse...)
		t.httpSpan.SetAttributes(t.attrs.httpResponseExtra...)
	}
}

func (t *requestTelemetry) httpRequestDone(res *http.Response, sent, received int64, err error) {
	t.readBytes = received
	reqAttrs := otelMetric.WithAttributes(t.attrs.httpRequest...)
	resAttrs := otelMetric.WithAttributes(t.attrs.httpResponse...)
	t.meters.http.inFlight.Add(t.rootCtx, -1, reqAttrs)
	t.meters.http.duration.Record(t.rootCtx, sinceMs(t.httpStartedAt), reqAttrs, resAttrs)
	t.meters.http.requestContentLength.Add(t.rootCtx, sent, reqAttrs, resAttrs)
	t.meters.http.responseContentLength.Add(t.rootCtx, received, reqAttrs, resAttrs)

	if t.httpSpan != nil {
		t.httpSpan.SetAttributes(attrWroteBytes.Int64(sent), attrReadBytes.Int64(received))
		switch {
		case err != nil:
			setSpanError(t.httpSpan, err)
		case res != nil && res.StatusCode >= http.StatusBadRequest:
			setSpanError(t.httpSpan, fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode)))
		}
	}
	if t.receiveSpan != nil {
		t.receiveSpan.SetAttributes(attrReadBytes.Int64(received))
		if err != nil {
			setSpanError(t.receiveSpan, err)
		}
	}

	// The body is still being parsed, spans are ended by bodyParseDone.
	if t.parseSpan == nil {
		t.endHTTPSpans()
	}
}

func (t *requestTelemetry) bodyParseStart(_ *http.Response) {
	t.parseStartedAt = time.Now()
	t.parseAttrs = append(append([]attribute.KeyValue(nil), t.attrs.definition...), t.attrs.httpResponse...)
	t.meters.parse.inFlight.Add(t.rootCtx, 1, otelMetric.WithAttributes(t.parseAttrs...))

	var spanAttrs []attribute.KeyValue
	spanAttrs = append(spanAttrs, t.attrs.httpRequest...)
	spanAttrs = append(spanAttrs, t.attrs.httpResponse...)
	_, t.parseSpan = t.startSpan(t.httpCtx, bodyParseSpan, spanAttrs...)
}

func (t *requestTelemetry) bodyParseDone(_ *http.Response, _ any, _ error, parseErr error) {
	t.meters.parse.inFlight.Add(t.rootCtx, -1, otelMetric.WithAttributes(t.parseAttrs...))
	t.meters.parse.duration.Record(t.rootCtx, sinceMs(t.parseStartedAt), otelMetric.WithAttributes(t.parseAttrs...))

	if t.parseSpan != nil {
		t.parseSpan.SetAttributes(attrReadBytes.Int64(t.readBytes))
		if parseErr != nil {
			setSpanError(t.parseSpan, parseErr)
		}
		t.parseSpan.End()
		t.parseSpan = nil
	}
	t.endHTTPSpans()
}

func (t *requestTelemetry) endHTTPSpans() {
	if t.receiveSpan != nil {
		t.receiveSpan.End()
		t.receiveSpan = nil
	}
	if t.httpSpan != nil {
		t.httpSpan.End()
		t.httpSpan = nil
	}
}

func (t *requestTelemetry) gotFirstResponseByte() {
	_, t.receiveSpan = t.startSpan(t.httpCtx, receiveSpan)
}

func (t *requestTelemetry) dnsStart(info httptrace.DNSStartInfo) {
	_, t.dnsSpan = t.startSpan(t.httpCtx, dnsSpan, semconv.NetHostName(info.Host))
}

func (t *requestTelemetry) dnsDone(info httptrace.DNSDoneInfo) {
	if t.dnsSpan == nil {
		return
	}
	addrs := make([]string, 0, len(info.Addrs))
	for _, addr := range info.Addrs {
		addrs = append(addrs, addr.String())
	}
	t.dnsSpan.SetAttributes(attrDNSAddresses.String(strings.Join(addrs, ";")))
	endSpan(&t.dnsSpan, info.Err)
}

func (t *requestTelemetry) getConn(host string) {
	_, t.getConnSpan = t.startSpan(t.httpCtx, getConnSpan, semconv.NetHostName(host))
}

func (t *requestTelemetry) gotConn(info httptrace.GotConnInfo) {
	if t.getConnSpan == nil {
		return
	}
	t.getConnSpan.SetAttributes(
		attrRemoteAddr.String(info.Conn.RemoteAddr().String()),
		attrLocalAddr.String(info.Conn.LocalAddr().String()),
		attrConnReused.Bool(info.Reused),
		attrConnWasIdle.Bool(info.WasIdle),
	)
	if info.WasIdle {
		t.getConnSpan.SetAttributes(attrConnIdleTime.String(info.IdleTime.String()))
	}
	endSpan(&t.getConnSpan, nil)
}

func (t *requestTelemetry) connectStart(network, addr string) {
	_, t.connectSpan = t.startSpan(t.httpCtx, connectSpan, attrRemoteAddr.String(addr), attrConnStartNetwork.String(network))
}

func (t *requestTelemetry) connectDone(network, addr string, err error) {
	if t.connectSpan == nil {
		return
	}
	t.connectSpan.SetAttributes(attrConnDoneAddr.String(addr), attrConnDoneNetwork.String(network))
	endSpan(&t.connectSpan, err)
}

// tlsHandshakeStart is not called if the http2.Transport is used directly, without upgrade from http.Transport.
func (t *requestTelemetry) tlsHandshakeStart() {
	_, t.tlsSpan = t.startSpan(t.httpCtx, tlsSpan)
}

func (t *requestTelemetry) tlsHandshakeDone(_ tls.ConnectionState, err error) {
	endSpan(&t.tlsSpan, err)
}

func (t *requestTelemetry) wroteHeaderField(_ string, _ []string) {
	if t.headersSpan == nil {
		_, t.headersSpan = t.startSpan(t.httpCtx, headersSpan)
	}
}

func (t *requestTelemetry) wroteHeaders() {
	endSpan(&t.headersSpan, nil)
	_, t.sendSpan = t.startSpan(t.httpCtx, sendSpan)
}

func (t *requestTelemetry) wroteRequest(info httptrace.WroteRequestInfo) {
	endSpan(&t.sendSpan, info.Err)
}

// endSpan ends the span, if any, and clears the reference.
func endSpan(span *otelTrace.Span, err error) {
	if *span == nil {
		return
	}
	if err != nil {
		setSpanError(*span, err)
	}
	(*span).End()
	*span = nil
}

func setSpanError(span otelTrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
