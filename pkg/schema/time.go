package schema

import (
	"fmt"
	"time"

	"github.com/relvacode/iso8601"
)

// Time is a timestamp decoded from any ISO 8601 format and encoded as RFC 3339.
// Zero value is encoded as null.
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time {
	return Time{Time: t}
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf(`time must be a string: %w`, err)
	}

	v, err := iso8601.ParseString(str)
	if err != nil {
		return fmt.Errorf(`time "%s" is not valid ISO 8601: %w`, str, err)
	}
	t.Time = v
	return nil
}

func (t Time) String() string {
	return t.Format(time.RFC3339Nano)
}
