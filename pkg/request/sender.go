package request

import (
	"context"
	"net/http"
)

// Sender represents an HTTP client.
type Sender interface {
	// Send sends the defined request and returns the raw response and the mapped result.
	// The type of the returned result is the type of HTTPRequest.ResultDef(), if any.
	Send(ctx context.Context, request HTTPRequest) (rawResponse *http.Response, result any, err error)
}

// Sendable is HTTPRequest, APIRequest or a group of them.
type Sendable interface {
	SendOrErr(ctx context.Context) error
}

// ReqDefinitionError can be used as the Sendable interface,
// the error is returned when the request is sent.
// So the definition error is checked only once, in one place.
type ReqDefinitionError struct {
	error
}

func NewReqDefinitionError(err error) Sendable {
	return ReqDefinitionError{error: err}
}

func (v ReqDefinitionError) SendOrErr(_ context.Context) error {
	return v
}

func (v ReqDefinitionError) Unwrap() error {
	return v.error
}
