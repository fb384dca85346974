package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jmnetworking/go-networking/pkg/client/decode"
	"github.com/jmnetworking/go-networking/pkg/client/trace"
	"github.com/jmnetworking/go-networking/pkg/request"
)

// ErrorWithRequest is implemented by a JSON error definition which needs the HTTP request.
type ErrorWithRequest interface {
	error
	SetRequest(request *http.Request)
}

// ErrorWithResponse is implemented by a JSON error definition which needs the HTTP response.
type ErrorWithResponse interface {
	error
	SetResponse(response *http.Response)
}

// MapResponse reads the response body and maps it to the result or to the error definition.
//
// Supported result definitions are *[]byte, *string, io.Writer, io.WriteCloser
// and any pointer for a JSON response with 2xx status code.
// The errDef is filled from a JSON response with status code >= 400.
// The unexpectedErr is returned if the body cannot be read or decoded.
//
// The body is always closed. The trace may be nil.
func MapResponse(r *http.Response, resultDef any, errDef error, tc *trace.ClientTrace) (result any, err error, unexpectedErr error) {
	if tc != nil && tc.BodyParseStart != nil {
		tc.BodyParseStart(r)
	}
	if tc != nil && tc.BodyParseDone != nil {
		defer func() {
			tc.BodyParseDone(r, result, err, unexpectedErr)
		}()
	}

	// The body is closed before the BodyParseDone hook
	result, err, unexpectedErr = mapResponseBody(r, resultDef, errDef)
	if closeErr := r.Body.Close(); closeErr != nil && unexpectedErr == nil && err == nil {
		unexpectedErr = fmt.Errorf(`cannot close response body: %w`, closeErr)
	}
	return result, err, unexpectedErr
}

func mapResponseBody(r *http.Response, resultDef any, errDef error) (result any, err error, unexpectedErr error) {
	if r.StatusCode == http.StatusNoContent {
		return nil, nil, nil
	}

	// Process content encoding
	body, decodeErr := decode.Decode(r.Body, r.Header.Get("Content-Encoding"))
	if decodeErr != nil {
		return nil, nil, fmt.Errorf("cannot decode response: %w", decodeErr)
	}

	// Process content type
	contentType := r.Header.Get("Content-Type")
	switch v := resultDef.(type) {
	case *[]byte:
		// Load response body as []byte
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = bodyBytes
		return v, nil, nil
	case *string:
		// Load response body as string
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = string(bodyBytes)
		return v, nil, nil
	case io.WriteCloser:
		// Stream response to io.WriteCloser
		if _, err := io.Copy(v, body); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		if err := v.Close(); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return v, nil, nil
	case io.Writer:
		// Stream response to io.Writer
		if _, err := io.Copy(v, body); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return v, nil, nil
	}

	if !IsJSONContentType(contentType) {
		return nil, nil, nil
	}

	switch {
	case r.StatusCode > 199 && r.StatusCode < 300 && resultDef != nil:
		// Map JSON response to defined result
		if err := json.NewDecoder(body).Decode(resultDef); err != nil {
			return nil, nil, fmt.Errorf(`cannot decode JSON result: %w`, err)
		}
		return resultDef, nil, nil
	case r.StatusCode > 399 && errDef != nil:
		// Map JSON response to defined error
		if err := json.NewDecoder(body).Decode(errDef); err != nil {
			return nil, nil, fmt.Errorf(`cannot decode JSON error: %w`, err)
		}
		if v, ok := errDef.(ErrorWithRequest); ok {
			v.SetRequest(r.Request)
		}
		if v, ok := errDef.(ErrorWithResponse); ok {
			v.SetResponse(r)
		}
		return nil, errDef, nil
	}
	return nil, nil, nil
}

func requestBody(r request.HTTPRequest) (io.ReadCloser, error) {
	contentType := r.RequestHeader().Get("Content-Type")
	switch v := r.RequestBody().(type) {
	case nil:
		return nil, nil
	case string:
		return io.NopCloser(strings.NewReader(v)), nil
	case []byte:
		return io.NopCloser(bytes.NewReader(v)), nil
	case io.ReadSeekCloser:
		// The stream is rewound, the body may be read more than once on redirect
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return v, nil
	case io.ReadSeeker:
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return io.NopCloser(v), nil
	default:
		if !IsJSONContentType(contentType) {
			return nil, fmt.Errorf(`body type %T is not supported for Content-Type "%s"`, v, contentType)
		}
		c, err := EncodeJSON(v)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(c)), nil
	}
}
