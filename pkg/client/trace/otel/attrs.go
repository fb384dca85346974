package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/semconv/v1.18.0/httpconv"

	"github.com/jmnetworking/go-networking/pkg/request"
)

const (
	maskedAttrValue = "****"
)

type attributes struct {
	config config
	// definitionURL with redacted path params
	definitionURL *url.URL
	// redactedPathValues are masked in the URL of the sent request
	redactedPathValues []string
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// httpURL of the last sent request
	httpURL *url.URL
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
	// httpResponseError attributes for metrics
	httpResponseError []attribute.KeyValue
}

func newAttributes(cfg config, reqDef request.HTTPRequest) *attributes {
	out := &attributes{config: cfg, httpURL: &url.URL{}}

	// Path params are replaced, secret values are masked
	reqURLStr := reqDef.URL().String()
	for k, v := range reqDef.PathParams() {
		if cfg.redactedPath.has(k) && v != "" {
			out.redactedPathValues = append(out.redactedPathValues, v)
			v = maskedAttrValue
		}
		reqURLStr = strings.ReplaceAll(reqURLStr, url.PathEscape("{"+k+"}"), url.PathEscape(v))
	}
	reqURL, err := url.Parse(reqURLStr)
	if err != nil {
		reqURL = reqDef.URL()
	}
	out.definitionURL = reqURL

	var resultType string
	if v := reflect.TypeOf(reqDef.ResultDef()); v != nil {
		resultType = v.String()
	}

	// Definition base
	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", reqDef.Method()),
		attribute.String("definition.result.type", resultType),
		attribute.String("definition.url.path", mustURLPathUnescape(reqURL.Path)),
		attribute.String("definition.url.host.full", reqURL.Host),
	}
	if dotPos := strings.IndexByte(reqURL.Host, '.'); dotPos > 0 {
		out.definition = append(out.definition,
			// Host prefix, e.g. "api" for "api.example.com"
			attribute.String("definition.url.host.prefix", reqURL.Host[:dotPos]),
			// Host suffix, e.g. "example.com"
			attribute.String("definition.url.host.suffix", strings.TrimLeft(reqURL.Host[dotPos:], ".")),
		)
	}

	// Definition params
	out.definitionExtra = append(out.definitionExtra, attribute.String("definition.url.full", mustURLPathUnescape(reqURL.String())))
	out.definitionExtra = append(out.definitionExtra, sortedAttrs(reqDef.RequestHeader(), "definition.header.", cfg.redactedHdr)...)
	out.definitionExtra = append(out.definitionExtra, sortedAttrs(reqDef.QueryParams(), "definition.params.query.", cfg.redactedQuery)...)
	for k, v := range reqDef.PathParams() {
		if cfg.redactedPath.has(k) {
			v = maskedAttrValue
		}
		out.definitionExtra = append(out.definitionExtra, attribute.String("definition.params.path."+k, cast.ToString(v)))
	}

	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpURL = &url.URL{}
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}

	// Secret params are masked
	v.httpURL = redactPath(redactQuery(req.URL, v.config.redactedQuery), v.redactedPathValues)

	// Base
	clone := req.Clone(req.Context())
	clone.URL = v.httpURL
	v.httpRequest = httpconv.ClientRequest(clone)

	// Extra, user agent is already present from httpconv
	header := req.Header.Clone()
	header.Del("User-Agent")
	if referer := header.Get("Referer"); referer != "" {
		header.Set("Referer", v.redactURL(referer))
	}
	v.httpRequestExtra = sortedAttrs(header, "http.header.", v.config.redactedHdr)
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	if res == nil {
		v.httpResponse = nil
		v.httpResponseExtra = nil
	} else {
		v.httpResponse = httpconv.ClientResponse(res)
		v.httpResponseExtra = sortedAttrs(res.Header, "http.response.header.", v.config.redactedHdr)
	}

	// Error
	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseError = []attribute.KeyValue{
		attribute.String("http.response.class", responseClass(res, err)),
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.response.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	}
}

// redactURL masks secret params in a URL from a header, for example the Referer set on redirects.
func (v *attributes) redactURL(in string) string {
	u, err := url.Parse(in)
	if err != nil {
		return maskedAttrValue
	}
	return redactPath(redactQuery(u, v.config.redactedQuery), v.redactedPathValues).String()
}

// sortedAttrs converts header or query values to attributes, redacted keys are masked.
func sortedAttrs(values map[string][]string, prefix string, redacted keySet) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for key, v := range values {
		key = strings.ToLower(key)
		value := strings.Join(v, ";")
		if redacted.has(key) {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String(prefix+key, value))
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
	return attrs
}

func redactQuery(in *url.URL, redacted keySet) *url.URL {
	clone := *in
	if len(redacted) == 0 || clone.RawQuery == "" {
		return &clone
	}
	query := clone.Query()
	for key := range query {
		if redacted.has(key) {
			query.Set(key, maskedAttrValue)
		}
	}
	clone.RawQuery = query.Encode()
	return &clone
}

func redactPath(in *url.URL, values []string) *url.URL {
	for _, value := range values {
		in.Path = strings.ReplaceAll(in.Path, value, maskedAttrValue)
		in.RawPath = ""
	}
	return in
}

func mustURLPathUnescape(in string) string {
	out, err := url.PathUnescape(in)
	if err != nil {
		return in
	}
	return out
}
