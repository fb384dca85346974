package networking

import (
	"net/url"

	"github.com/jmnetworking/go-networking/pkg/request"
)

type requestConfig struct {
	request request.HTTPRequest
	asJSON  bool
}

// RequestOption modifies a single request.
type RequestOption func(r *requestConfig)

// Query sets a query parameter.
func Query(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.request = r.request.AndQueryParam(key, value)
	}
}

// QueryValues adds query parameters, a parameter may have multiple values.
func QueryValues(values url.Values) RequestOption {
	return func(r *requestConfig) {
		merged := make(url.Values)
		for k, v := range r.request.QueryParams() {
			merged[k] = append(merged[k], v...)
		}
		for k, v := range values {
			merged[k] = append(merged[k], v...)
		}
		r.request = r.request.WithQueryValues(merged)
	}
}

// PathParam replaces the {key} placeholder in the URL.
func PathParam(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.request = r.request.AndPathParam(key, value)
	}
}

// Header sets a request header, it overrides the header of the Network.
func Header(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.request = r.request.AndHeader(key, value)
	}
}

// Headers sets request headers, they override the headers of the Network.
func Headers(headers map[string]string) RequestOption {
	return func(r *requestConfig) {
		if len(headers) > 0 {
			r.request = r.request.WithHeaders(headers)
		}
	}
}

// JSONBody encodes the value to JSON and sends it as the request body.
func JSONBody(v any) RequestOption {
	return func(r *requestConfig) {
		r.request = r.request.WithJSONBody(v)
	}
}

// FormBody sends the data as "application/x-www-form-urlencoded" body.
// Values are converted to strings, slices are expanded to "key[index]" fields.
func FormBody(data map[string]any) RequestOption {
	return func(r *requestConfig) {
		r.request = r.request.WithFormBody(request.ToFormBody(data))
	}
}

// Body sets a raw request body: string, []byte or io.ReadSeeker.
func Body(v any) RequestOption {
	return func(r *requestConfig) {
		r.request = r.request.WithBody(v)
	}
}

// ContentType sets the Content-Type header.
func ContentType(contentType string) RequestOption {
	return func(r *requestConfig) {
		r.request = r.request.WithContentType(contentType)
	}
}

// AsJSON decodes the response body to the Response.Payload.
func AsJSON() RequestOption {
	return func(r *requestConfig) {
		r.asJSON = true
		r.request = r.request.AndHeader("Accept", "application/json")
	}
}
