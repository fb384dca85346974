// Package request defines immutable HTTP requests, see the NewHTTPRequest function.
//
// A request is bound to a Sender which performs the actual call.
// The client.Client is the default Sender, built on the standard net/http package,
// and restyclient provides one on top of go-resty.
//
// Listeners registered by WithOnComplete, WithOnSuccess and WithOnError are
// invoked in registration order after the response has been received and mapped.
//
// APIRequest[R Result] wraps one or more Sendable values and maps them to a single result.
// WaitGroup, RunGroup and Parallel are helpers for concurrent requests.
package request
