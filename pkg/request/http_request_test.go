package request_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmnetworking/go-networking/pkg/client"
	"github.com/jmnetworking/go-networking/pkg/request"
)

type error1 struct {
	error
}

type error2 struct {
	error
}

type result1 struct{}

type result2 struct{}

func TestHttpRequest_Immutability(t *testing.T) {
	t.Parallel()
	var a, b request.HTTPRequest
	c := client.New()
	a = request.NewHTTPRequest(c)

	// WithGet
	a = a.WithGet("/foo1")
	b = a.WithGet("/foo2")
	assert.Equal(t, http.MethodGet, a.Method())
	assert.Equal(t, "/foo1", a.URL().String())
	assert.Equal(t, http.MethodGet, b.Method())
	assert.Equal(t, "/foo2", b.URL().String())

	// WithPost
	a = a.WithPost("/foo1")
	b = a.WithPost("/foo2")
	assert.Equal(t, http.MethodPost, a.Method())
	assert.Equal(t, "/foo1", a.URL().String())
	assert.Equal(t, http.MethodPost, b.Method())
	assert.Equal(t, "/foo2", b.URL().String())

	// WithPut
	a = a.WithPut("/foo1")
	b = a.WithPut("/foo2")
	assert.Equal(t, http.MethodPut, a.Method())
	assert.Equal(t, "/foo1", a.URL().String())
	assert.Equal(t, http.MethodPut, b.Method())
	assert.Equal(t, "/foo2", b.URL().String())

	// WithDelete
	a = a.WithDelete("/foo1")
	b = a.WithDelete("/foo2")
	assert.Equal(t, http.MethodDelete, a.Method())
	assert.Equal(t, "/foo1", a.URL().String())
	assert.Equal(t, http.MethodDelete, b.Method())
	assert.Equal(t, "/foo2", b.URL().String())

	// WithMethod
	a = a.WithMethod(http.MethodGet)
	b = a.WithMethod(http.MethodPost)
	assert.Equal(t, http.MethodGet, a.Method())
	assert.Equal(t, http.MethodPost, b.Method())

	// WithBaseURL
	a = a.WithBaseURL("/base1")
	b = a.WithBaseURL("/base2")
	assert.Equal(t, "/base1/foo1", a.URL().String())
	assert.Equal(t, "/base2/foo1", b.URL().String())

	// WithURL
	a = a.WithURL("/url1")
	b = a.WithURL("/url2")
	assert.Equal(t, "/base1/url1", a.URL().String())
	assert.Equal(t, "/base1/url2", b.URL().String())

	// AndHeader
	a = a.AndHeader("key1", "value1")
	b = a.AndHeader("key2", "value2")
	assert.Equal(t, http.Header{"Key1": []string{"value1"}}, a.RequestHeader())
	assert.Equal(t, http.Header{"Key1": []string{"value1"}, "Key2": []string{"value2"}}, b.RequestHeader())

	// WithHeaders
	a = a.WithHeaders(map[string]string{"key3": "value3"})
	b = a.WithHeaders(map[string]string{"key4": "value4"})
	assert.Equal(t, http.Header{"Key1": []string{"value1"}, "Key3": []string{"value3"}}, a.RequestHeader())
	assert.Equal(t, http.Header{"Key1": []string{"value1"}, "Key3": []string{"value3"}, "Key4": []string{"value4"}}, b.RequestHeader())

	// AndQueryParam
	a = a.AndQueryParam("key1", "value1")
	b = a.AndQueryParam("key2", "value2")
	assert.Equal(t, url.Values{"key1": []string{"value1"}}, a.QueryParams())
	assert.Equal(t, url.Values{"key1": []string{"value1"}, "key2": []string{"value2"}}, b.QueryParams())

	// WithQueryParams
	a = a.WithQueryParams(map[string]string{"foo1": "bar1"})
	b = a.WithQueryParams(map[string]string{"foo2": "bar2"})
	assert.Equal(t, url.Values{"foo1": []string{"bar1"}}, a.QueryParams())
	assert.Equal(t, url.Values{"foo2": []string{"bar2"}}, b.QueryParams())

	// WithQueryValues
	a = a.WithQueryValues(url.Values{"multi": []string{"1", "2"}})
	b = a.AndQueryParam("multi", "3")
	assert.Equal(t, url.Values{"multi": []string{"1", "2"}}, a.QueryParams())
	assert.Equal(t, url.Values{"multi": []string{"3"}}, b.QueryParams())

	// AndPathParam
	a = a.AndPathParam("key1", "value1")
	b = a.AndPathParam("key2", "value2")
	assert.Equal(t, map[string]string{"key1": "value1"}, a.PathParams())
	assert.Equal(t, map[string]string{"key1": "value1", "key2": "value2"}, b.PathParams())

	// WithPathParams
	a = a.WithPathParams(map[string]string{"foo1": "bar1"})
	b = a.WithPathParams(map[string]string{"foo2": "bar2"})
	assert.Equal(t, map[string]string{"foo1": "bar1"}, a.PathParams())
	assert.Equal(t, map[string]string{"foo2": "bar2"}, b.PathParams())

	// WithFormBody
	a = a.WithFormBody(map[string]string{"foo1": "bar1"})
	b = a.WithFormBody(map[string]string{"foo2": "bar2"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, "foo1=bar1", a.RequestBody())
	assert.Equal(t, "foo2=bar2", b.RequestBody())

	// WithJSONBody
	a = a.WithJSONBody(123)
	b = a.WithJSONBody(456)
	assert.Equal(t, 123, a.RequestBody())
	assert.Equal(t, 456, b.RequestBody())

	// WithError
	a = a.WithError(&error1{})
	b = a.WithError(&error2{})
	assert.Equal(t, &error1{}, a.ErrorDef())
	assert.Equal(t, &error2{}, b.ErrorDef())

	// WithResult
	a = a.WithResult(&result1{})
	b = a.WithResult(&result2{})
	assert.Equal(t, &result1{}, a.ResultDef())
	assert.Equal(t, &result2{}, b.ResultDef())

	// WithOnComplete
	l1 := func(ctx context.Context, response request.HTTPResponse, err error) error {
		return nil
	}
	l2 := func(ctx context.Context, response request.HTTPResponse, err error) error {
		return nil
	}
	a = a.WithOnComplete(l1)
	b = a.WithOnComplete(l2)
	assert.NotEqual(t, a, b)

	// WithOnSuccess
	l3 := func(ctx context.Context, response request.HTTPResponse) error {
		return nil
	}
	l4 := func(ctx context.Context, response request.HTTPResponse) error {
		return nil
	}
	a = a.WithOnSuccess(l3)
	b = a.WithOnSuccess(l4)
	assert.NotEqual(t, a, b)

	// WithOnError
	l5 := func(ctx context.Context, response request.HTTPResponse, err error) error {
		return nil
	}
	l6 := func(ctx context.Context, response request.HTTPResponse, err error) error {
		return nil
	}
	a = a.WithOnError(l5)
	b = a.WithOnError(l6)
	assert.NotEqual(t, a, b)
}

func TestToFormBody(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"string": "test",
		"number": 100,
		"slice":  []string{"a", "b", "c"},
		"map":    map[string]string{"k0": "v0", "k1": "v1"},
	}

	expected := map[string]string{
		"string":   "test",
		"number":   "100",
		"slice[0]": "a",
		"slice[1]": "b",
		"slice[2]": "c",
		"map[k0]":  "v0",
		"map[k1]":  "v1",
	}
	actual := request.ToFormBody(data)

	assert.Equal(t, expected, actual)
}

func TestToFormBody_Types(t *testing.T) {
	t.Parallel()

	ordered := orderedmap.New()
	ordered.Set("b", 2)
	ordered.Set("a", 1)

	actual := request.ToFormBody(map[string]any{
		"nil":     nil,
		"bool":    true,
		"float":   1.5,
		"any":     []any{1, "x"},
		"ordered": ordered,
	})
	assert.Equal(t, map[string]string{
		"nil":     "",
		"bool":    "true",
		"float":   "1.5",
		"any[0]":  "1",
		"any[1]":  "x",
		"ordered": `{"b":2,"a":1}`,
	}, actual)
}

func TestStructToMap(t *testing.T) {
	t.Parallel()

	type Base struct {
		ID int `json:"id"`
	}
	type todo struct {
		Base
		Title    string `json:"title"`
		Done     bool   `json:"completed,omitempty"`
		Note     string `json:"note" writeoptional:"true"`
		Created  string `json:"created" readonly:"true"`
		Renamed  string `json:"foo" writeas:"bar"`
		Ignored  string `json:"-"`
		internal string
	}

	in := todo{Base: Base{ID: 1}, Title: "Buy milk", Done: true, Created: "now", Renamed: "value", internal: "x"}
	assert.Equal(t, map[string]any{
		"id":        1,
		"title":     "Buy milk",
		"completed": true,
		"bar":       "value",
	}, request.StructToMap(in, nil))
	assert.Equal(t, map[string]any{
		"title": "Buy milk",
	}, request.StructToMap(&in, []string{"title"}))
}

func TestHttpRequest_MethodIsUpperCase(t *testing.T) {
	t.Parallel()
	r := request.NewHTTPRequest(client.New()).WithMethod("patch").WithURL("/foo")
	assert.Equal(t, http.MethodPatch, r.Method())
}

func TestHttpRequest_InvalidDefinition(t *testing.T) {
	t.Parallel()
	r := request.NewHTTPRequest(client.New())
	assert.Panics(t, func() { r.Method() })
	assert.Panics(t, func() { r.URL() })
	assert.Panics(t, func() { r.WithURL(":invalid") })
	assert.Panics(t, func() { r.WithResult(result1{}) })
	assert.Panics(t, func() { r.WithError(error1{}) })
}

func TestHttpRequest_Listeners(t *testing.T) {
	t.Parallel()

	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com/ok", httpmock.NewStringResponder(200, "OK"))
	transport.RegisterResponder("GET", "https://example.com/missing", httpmock.NewStringResponder(404, "missing"))

	var calls []string
	base := request.NewHTTPRequest(c).
		WithOnComplete(func(ctx context.Context, response request.HTTPResponse, err error) error {
			calls = append(calls, "complete")
			return err
		}).
		WithOnSuccess(func(ctx context.Context, response request.HTTPResponse) error {
			calls = append(calls, "success")
			return nil
		}).
		WithOnError(func(ctx context.Context, response request.HTTPResponse, err error) error {
			calls = append(calls, "error")
			return err
		})

	// Success
	ctx := context.Background()
	response, _, err := base.WithGet("https://example.com/ok").Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, []string{"complete", "success"}, calls)

	// Error
	calls = nil
	response, _, err = base.WithGet("https://example.com/missing").Send(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())
	assert.True(t, response.IsError())
	assert.Equal(t, []string{"complete", "error"}, calls)

	// A listener can clear the error
	_, _, err = base.
		WithGet("https://example.com/missing").
		WithOnError(func(ctx context.Context, response request.HTTPResponse, err error) error {
			return nil
		}).
		Send(ctx)
	assert.NoError(t, err)
}

func TestHttpRequest_CancelledContext(t *testing.T) {
	t.Parallel()

	c, transport := client.NewMockedClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := request.NewHTTPRequest(c).WithGet("https://example.com").Send(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestAPIRequest(t *testing.T) {
	t.Parallel()

	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com/1", httpmock.NewStringResponder(200, "one"))
	transport.RegisterResponder("GET", "https://example.com/2", httpmock.NewStringResponder(200, "two"))

	var out1, out2 string
	result := &[]string{}
	api := request.NewAPIRequest(result,
		request.NewHTTPRequest(c).WithGet("https://example.com/1").WithResult(&out1),
		request.NewHTTPRequest(c).WithGet("https://example.com/2").WithResult(&out2),
	).
		WithBefore(func(ctx context.Context) error {
			*result = append(*result, "before")
			return nil
		}).
		WithOnSuccess(func(ctx context.Context, result *[]string) error {
			*result = append(*result, out1, out2)
			return nil
		})

	actual, err := api.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "one", "two"}, *actual)

	// Before callback error stops sending
	_, err = api.WithBefore(func(ctx context.Context) error { return errors.New("stop") }).Send(context.Background())
	assert.EqualError(t, err, "stop")
	assert.Equal(t, 2, transport.GetTotalCallCount())

	// No operation request
	noop, err := request.NewNoOperationAPIRequest(result).Send(context.Background())
	require.NoError(t, err)
	assert.Same(t, result, noop)
}

func TestReqDefinitionError(t *testing.T) {
	t.Parallel()

	defErr := errors.New("invalid definition")
	wg := request.NewWaitGroup(context.Background())
	wg.Send(request.NewReqDefinitionError(defErr))
	err := wg.Wait()
	assert.ErrorIs(t, err, defErr)
}
