// Package trace extends the httptrace.ClientTrace and adds additional HTTPRequest hooks.
// A custom ClientTrace definition can be registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"

	"github.com/jmnetworking/go-networking/pkg/request"
)

// Factory creates ClientTrace hooks for a request.
type Factory func(ctx context.Context, request request.HTTPRequest) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of an outgoing HTTPRequest.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when an HTTP request begins, it is called again for each redirect.
	HTTPRequestStart func(request *http.Request)
	// HTTPResponse is called when the response headers are received or the round trip failed.
	HTTPResponse func(response *http.Response, err error)
	// HTTPRequestDone is called when the response body is closed or the round trip failed.
	HTTPRequestDone func(response *http.Response, sentBytes, receivedBytes int64, err error)
	// BodyParseStart is called before the response body is read and mapped to the result.
	BodyParseStart func(response *http.Response)
	// BodyParseDone is called when the response body is processed.
	// The err is the mapped API error, the parseErr is an unexpected processing error.
	BodyParseDone func(response *http.Response, result any, err error, parseErr error)
	// RequestProcessed is called when Client.Send method is done.
	RequestProcessed func(result any, err error)
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// Hooks of the old trace are called first.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	t.ClientTrace = composeStruct(t.ClientTrace, old.ClientTrace)
	composeFields(reflect.ValueOf(t).Elem(), reflect.ValueOf(old).Elem())
}

func composeStruct(t, old httptrace.ClientTrace) httptrace.ClientTrace {
	composeFields(reflect.ValueOf(&t).Elem(), reflect.ValueOf(&old).Elem())
	return t
}

func composeFields(tv, ov reflect.Value) {
	for i := range tv.NumField() {
		tf := tv.Field(i)
		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call, otherwise it creates a recursive call cycle
		tfCopy := reflect.ValueOf(tf.Interface())
		tf.Set(reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			of.Call(args)
			return tfCopy.Call(args)
		}))
	}
}
