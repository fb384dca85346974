package trace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/jmnetworking/go-networking/pkg/client/decode"
	"github.com/jmnetworking/go-networking/pkg/request"
)

const (
	// DumpFullEnv disables truncation of dumped bodies, if set to "true".
	DumpFullEnv      = "HTTP_DUMP_TRACE_FULL"
	dumpMaxLength    = 2000
	dumpMaskedHeader = "****"
)

// dumpMaskedHeaders are not written to the dump.
var dumpMaskedHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie", "X-Api-Key"} //nolint:gochecknoglobals

// DumpTracer writes each HTTP request and response to the writer.
// Credential headers are masked, but bodies are written as they are, do not use it in production.
func DumpTracer(wr io.Writer) Factory {
	return func(ctx context.Context, _ request.HTTPRequest) (context.Context, *ClientTrace) {
		d := &dumper{wr: wr}
		tc := &ClientTrace{
			HTTPRequestStart: d.requestStart,
			HTTPResponse:     d.response,
			RequestProcessed: d.processed,
		}
		return ctx, tc
	}
}

type dumper struct {
	wr          io.Writer
	method      string
	uri         string
	statusCode  int
	requestDump []byte
	err         error
	startedAt   time.Time
	headersAt   time.Time
}

func (d *dumper) requestStart(req *http.Request) {
	d.startedAt = time.Now()
	d.method = req.Method
	d.uri = req.URL.RequestURI()

	// The body is read and restored by DumpRequestOut, so the original request must be dumped.
	header := req.Header
	req.Header = maskHeader(header)
	d.requestDump, _ = httputil.DumpRequestOut(req, true)
	req.Header = header
}

func (d *dumper) response(res *http.Response, err error) {
	d.headersAt = time.Now()
	d.err = err
	if res != nil {
		d.statusCode = res.StatusCode
	}

	d.println()
	d.println(">>>>>> HTTP DUMP")
	d.body(string(d.requestDump))
	d.println("------")
	defer d.println("<<<<<< HTTP DUMP END")

	if err != nil {
		d.println("ERROR: ", err)
		return
	}

	if v, err := httputil.DumpResponse(res, false); err == nil {
		d.println(strings.TrimSpace(string(v)))
	} else {
		d.println("cannot dump response headers: ", err)
	}

	if res.Body == nil || res.Body == http.NoBody {
		return
	}

	// The raw body is buffered and set back to the response
	raw, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	res.Body = io.NopCloser(bytes.NewReader(raw))
	switch {
	case err != nil:
		d.println("cannot read response body: ", err)
	case len(raw) > 0:
		decoded, err := decodeBody(raw, res.Header.Get("Content-Encoding"))
		if err != nil {
			d.println("cannot decode response body: ", err)
		}
		d.println("------")
		d.body(decoded)
	}
}

func (d *dumper) processed(_ any, err error) {
	if err != nil {
		d.err = err
	}
	d.println()
	d.println(">>>>>> HTTP REQUEST PROCESSED", "| ", d.method, d.uri, d.statusCode, "| ERROR:", d.err, "| HEADERS AT:", d.headersAt.Sub(d.startedAt), "| DONE AT:", time.Since(d.startedAt))
}

func (d *dumper) body(body string) {
	body = strings.TrimSpace(body)
	if len(body) > dumpMaxLength && os.Getenv(DumpFullEnv) != "true" { //nolint:forbidigo
		d.println(body[:dumpMaxLength])
		d.println(fmt.Sprintf("... (set env %s=true to see full output)", DumpFullEnv))
		return
	}
	d.println(body)
}

func (d *dumper) println(a ...any) {
	_, _ = fmt.Fprintln(d.wr, a...)
}

func maskHeader(in http.Header) http.Header {
	out := in.Clone()
	for _, k := range dumpMaskedHeaders {
		if out.Get(k) != "" {
			out.Set(k, dumpMaskedHeader)
		}
	}
	return out
}

func decodeBody(raw []byte, encoding string) (string, error) {
	reader, err := decode.Decode(io.NopCloser(bytes.NewReader(raw)), encoding)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if _, err := io.Copy(&out, reader); err != nil {
		return out.String(), err
	}
	return out.String(), nil
}
