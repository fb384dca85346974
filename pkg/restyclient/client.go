// Package restyclient implements the request.Sender interface by the go-resty HTTP client.
//
// Request definitions and response mapping are the same as for the client.Client,
// so a request.HTTPRequest can be sent by any of them.
package restyclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/jmnetworking/go-networking/pkg/client"
	"github.com/jmnetworking/go-networking/pkg/request"
)

// Client sends requests by the wrapped resty.Client.
type Client struct {
	resty *resty.Client
}

// New wraps the resty client, nil creates a new one.
// Retries configured in the resty client are not disabled.
func New(c *resty.Client) Client {
	if c == nil {
		c = resty.New()
	}
	return Client{resty: c}
}

// Resty returns the wrapped client.
func (c Client) Resty() *resty.Client {
	return c.resty
}

// CloseIdleConnections closes idle connections of the underlying http.Client.
func (c Client) CloseIdleConnections() {
	c.resty.GetClient().CloseIdleConnections()
}

// Send method sends HTTP request and returns HTTP response, it implements the request.Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (res *http.Response, result any, err error) {
	method := reqDef.Method()
	reqURL := reqDef.URL().String()

	// Replace path parameters, the resty placeholders are not used, the URL is already escaped
	for k, v := range reqDef.PathParams() {
		reqURL = strings.ReplaceAll(reqURL, url.PathEscape("{"+k+"}"), url.PathEscape(v))
	}

	r := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeaderMultiValues(reqDef.RequestHeader()).
		SetQueryParamsFromValues(reqDef.QueryParams())

	// Body
	if body, err := requestBody(reqDef); err != nil {
		return nil, nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, method, reqURL, err)
	} else if body != nil {
		r.SetBody(body)
	}

	// Send request
	restyRes, err := r.Execute(method, reqURL)
	if err != nil {
		return nil, nil, &client.RequestError{Method: method, URL: reqURL, Err: err}
	}
	res = restyRes.RawResponse

	// Process body
	if mapped, e, unexpectedErr := client.MapResponse(res, reqDef.ResultDef(), reqDef.ErrorDef(), nil); unexpectedErr == nil {
		result, err = mapped, e
	} else {
		err = fmt.Errorf(`cannot process request %s "%s": %w`, method, reqURL, unexpectedErr)
	}

	// Generic HTTP error
	if err == nil && res.StatusCode > 399 {
		return res, nil, fmt.Errorf(`request %s "%s" failed: %d %s`, method, reqURL, res.StatusCode, http.StatusText(res.StatusCode))
	}

	return res, result, err
}

// requestBody converts the body definition to a value resty can send as it is.
func requestBody(reqDef request.HTTPRequest) (any, error) {
	switch v := reqDef.RequestBody().(type) {
	case nil:
		return nil, nil
	case string, []byte, io.Reader:
		return v, nil
	default:
		contentType := reqDef.RequestHeader().Get("Content-Type")
		if !client.IsJSONContentType(contentType) {
			return nil, fmt.Errorf(`body type %T is not supported for Content-Type "%s"`, v, contentType)
		}
		return client.EncodeJSON(v)
	}
}
