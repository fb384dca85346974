package otel

import "net/http"

// responseClass groups responses for metrics dimensions, so the cardinality stays low.
func responseClass(res *http.Response, err error) string {
	switch {
	case err != nil:
		return "error"
	case res == nil:
		return "none"
	case res.StatusCode >= http.StatusInternalServerError:
		return "server_error"
	case res.StatusCode >= http.StatusBadRequest:
		return "client_error"
	case res.StatusCode >= http.StatusMultipleChoices:
		return "redirection"
	case res.StatusCode >= http.StatusOK:
		return "success"
	default:
		return "informational"
	}
}
