package networking

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// Response of a completed request.
type Response struct {
	StatusCode int
	Header     http.Header
	// Body as text.
	Body string
	// Payload is the body decoded from JSON if the AsJSON option is used, otherwise it is the Body string.
	Payload any
	raw     *http.Response
}

func newResponse(raw *http.Response, body []byte) *Response {
	str := string(body)
	return &Response{StatusCode: raw.StatusCode, Header: raw.Header, Body: str, Payload: str, raw: raw}
}

// Raw returns the standard HTTP response, the body is already closed.
func (r *Response) Raw() *http.Response {
	return r.raw
}

// JSON decodes the body to the target.
func (r *Response) JSON(target any) error {
	if err := json.UnmarshalFromString(r.Body, target); err != nil {
		return fmt.Errorf(`cannot decode JSON response: %w`, err)
	}
	return nil
}

func (r *Response) decodePayload() error {
	var payload any
	if err := r.JSON(&payload); err != nil {
		return err
	}
	r.Payload = payload
	return nil
}
