package trace_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jmnetworking/go-networking/pkg/client"
	"github.com/jmnetworking/go-networking/pkg/client/trace"
	"github.com/jmnetworking/go-networking/pkg/request"
)

func TestLogTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.ResponderFromMultipleResponses([]*http.Response{
		{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("OK1"))},
		{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("missing"))},
	}))

	// Logs for trace testing
	core, logs := observer.New(zapcore.DebugLevel)

	// Create client
	ctx := context.Background()
	c := client.New().
		WithTransport(transport).
		AndTrace(trace.LogTracer(zap.New(core)))

	// Test
	str := ""
	_, result, err := request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(&str).Send(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "OK1", *result.(*string))
	_, _, err = request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(&str).Send(ctx)
	assert.Error(t, err)

	// Expected trace
	var messages []string
	for _, entry := range logs.All() {
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{
		`START GET "https://example.com"`,
		`DONE  GET "https://example.com"`,
		`BODY  GET "https://example.com"`,
		`START GET "https://example.com"`,
		`DONE  GET "https://example.com"`,
		`BODY  GET "https://example.com"`,
	}, messages)

	// Request ID and status code
	entries := logs.All()
	assert.Equal(t, uint64(1), entries[0].ContextMap()["request_id"])
	assert.Equal(t, int64(http.StatusOK), entries[1].ContextMap()["status_code"])
	assert.Equal(t, int64(3), entries[1].ContextMap()["received_bytes"])
	assert.Equal(t, uint64(2), entries[3].ContextMap()["request_id"])
	assert.Equal(t, int64(http.StatusNotFound), entries[4].ContextMap()["status_code"])
	assert.Equal(t, `request GET "https://example.com" failed: 404 Not Found`, entries[5].ContextMap()["error"])
}
