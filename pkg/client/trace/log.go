package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jmnetworking/go-networking/pkg/request"
)

// LogTracer logs each stage of an HTTP request at the debug level.
// Records of one logical request share the "request_id" field.
func LogTracer(logger *zap.Logger) Factory {
	var idGenerator uint64
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		requestID := atomic.AddUint64(&idGenerator, 1)
		log := logger.With(zap.Uint64("request_id", requestID))

		var req *http.Request
		var connStartTime time.Time
		var startTime time.Time
		var doneTime time.Time

		t := &ClientTrace{}
		t.ConnectStart = func(network, addr string) {
			connStartTime = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			fields := []zap.Field{zap.Bool("reused", info.Reused)}
			if info.Reused {
				fields = append(fields, zap.Bool("was_idle", info.WasIdle), zap.Duration("idle_time", info.IdleTime))
			} else if !connStartTime.IsZero() {
				fields = append(fields, zap.Duration("connect_time", time.Since(connStartTime)))
			}
			log.Debug("CONN  "+requestLine(req), fields...)
		}
		t.HTTPRequestStart = func(r *http.Request) {
			req = r
			startTime = time.Now()
			log.Debug("START " + requestLine(req))
		}
		t.HTTPRequestDone = func(r *http.Response, sent, received int64, err error) {
			doneTime = time.Now()
			fields := []zap.Field{
				zap.Duration("duration", doneTime.Sub(startTime)),
				zap.Int64("sent_bytes", sent),
				zap.Int64("received_bytes", received),
			}
			if r != nil {
				fields = append(fields, zap.Int("status_code", r.StatusCode))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			log.Debug("DONE  "+requestLine(req), fields...)
		}
		t.RequestProcessed = func(result any, err error) {
			fields := []zap.Field{zap.Duration("duration", time.Since(startTime))}
			if !doneTime.IsZero() {
				fields = append(fields, zap.Duration("body_duration", time.Since(doneTime)))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			log.Debug("BODY  "+requestLine(req), fields...)
		}
		return ctx, t
	}
}

func requestLine(req *http.Request) string {
	if req == nil {
		return "<no request>"
	}
	return req.Method + ` "` + req.URL.String() + `"`
}
