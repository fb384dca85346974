package schema

import (
	jsoniter "github.com/json-iterator/go"
)

// json - replacement of the standard encoding/json library, it caches type metadata.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals
