package schema_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmnetworking/go-networking/pkg/schema"
)

type owner struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type todo struct {
	ID        int          `json:"id" validate:"required,min=1"`
	Title     string       `json:"title" validate:"required,max=20"`
	Completed bool         `json:"completed"`
	Owner     *owner       `json:"owner,omitempty"`
	Tags      []string     `json:"tags,omitempty" validate:"dive,required"`
	Created   *schema.Time `json:"created,omitempty"`
}

func TestDecode_Object(t *testing.T) {
	t.Parallel()

	out, err := schema.Decode[todo]([]byte(`{"id":1,"title":"Buy milk","completed":true,"unknown":"ignored","owner":{"name":"John"}}`))
	require.NoError(t, err)
	assert.Equal(t, todo{ID: 1, Title: "Buy milk", Completed: true, Owner: &owner{Name: "John"}}, out)

	ptr, err := schema.Decode[*todo]([]byte(`{"id":2,"title":"Walk dog"}`))
	require.NoError(t, err)
	assert.Equal(t, &todo{ID: 2, Title: "Walk dog"}, ptr)
}

func TestDecode_Many(t *testing.T) {
	t.Parallel()

	out, err := schema.Decode[[]todo]([]byte(`[{"id":1,"title":"A"},{"id":2,"title":"B"}]`))
	require.NoError(t, err)
	assert.Equal(t, []todo{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}, out)

	_, err = schema.Decode[[]todo]([]byte(`[{"id":1,"title":"A"},{"id":0,"title":""}]`))
	require.Error(t, err)
	var validationErr *schema.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"[1].id", "[1].title"}, validationErr.Paths())
}

func TestDecode_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := schema.Decode[todo]([]byte(`{"id":"foo"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot decode schema_test.todo:`)

	_, err = schema.Decode[todo]([]byte(`[{"id":1}]`))
	require.Error(t, err)
}

func TestDecode_ValidationError(t *testing.T) {
	t.Parallel()

	_, err := schema.Decode[todo]([]byte(`{"id":1,"title":"This title is much too long","owner":{"email":"foo"},"tags":[""]}`))
	require.Error(t, err)

	var validationErr *schema.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"owner.email", "owner.name", "tags[0]", "title"}, validationErr.Paths())
	assert.Equal(t, `invalid value:
- "owner.email" failed on "email"
- "owner.name" failed on "required"
- "tags[0]" failed on "required"
- "title" failed on "max=20"`, err.Error())
}

func TestEncode(t *testing.T) {
	t.Parallel()

	created := schema.NewTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	out, err := schema.Encode(todo{ID: 1, Title: "Buy milk", Created: &created})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"title":"Buy milk","completed":false,"created":"2024-01-02T03:04:05Z"}`, string(out))

	_, err = schema.Encode(&todo{})
	require.Error(t, err)
	assert.Equal(t, `invalid value:
- "id" failed on "required"
- "title" failed on "required"`, err.Error())

	// Non-struct values are always valid
	out, err = schema.Encode(map[string]any{"foo": "bar"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":"bar"}`, string(out))
}

func TestValidate_Map(t *testing.T) {
	t.Parallel()

	err := schema.Validate(map[string]todo{"a": {ID: 1, Title: "A"}, "b": {Title: "B"}})
	require.Error(t, err)
	var validationErr *schema.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"[b].id"}, validationErr.Paths())

	assert.NoError(t, schema.Validate(nil))
	assert.NoError(t, schema.Validate((*todo)(nil)))
	assert.NoError(t, schema.Validate("string"))
}

func TestTime(t *testing.T) {
	t.Parallel()

	type value struct {
		Time schema.Time `json:"time"`
	}

	// ISO 8601 without a time zone is UTC
	out, err := schema.Decode[value]([]byte(`{"time":"2024-01-02T03:04:05"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), out.Time.UTC())
	assert.Equal(t, "2024-01-02T03:04:05Z", out.Time.String())

	// Offset is kept
	out, err = schema.Decode[value]([]byte(`{"time":"2024-01-02T03:04:05.123+02:00"}`))
	require.NoError(t, err)
	encoded, err := schema.Encode(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"2024-01-02T03:04:05.123+02:00"}`, string(encoded))

	// Null
	out, err = schema.Decode[value]([]byte(`{"time":null}`))
	require.NoError(t, err)
	assert.True(t, out.Time.IsZero())
	encoded, err = schema.Encode(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":null}`, string(encoded))

	// Invalid
	_, err = schema.Decode[value]([]byte(`{"time":"yesterday"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `time "yesterday" is not valid ISO 8601`)
}
