package client

import (
	"mime"
	"regexp"
	"strings"
)

const (
	ContentTypeApplicationJSON       = "application/json"
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
)

var jsonContentTypeRegexp = regexp.MustCompile(ContentTypeApplicationJSONRegexp)

// IsJSONContentType returns true for "application/json" and "application/*+json" media types.
// Parameters, for example "; charset=utf-8", are ignored.
func IsJSONContentType(contentType string) bool {
	return jsonContentTypeRegexp.MatchString(mediaType(contentType))
}

func mediaType(contentType string) string {
	if v, _, err := mime.ParseMediaType(contentType); err == nil {
		return v
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
