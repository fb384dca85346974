package request_test

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmnetworking/go-networking/pkg/client"
	"github.com/jmnetworking/go-networking/pkg/request"
)

func TestRunGroup_FollowPages(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")
	registerPages(transport, 4)

	g := request.NewRunGroup(context.Background())

	lock := &sync.Mutex{}
	var items []string
	var addPage func(page int)
	addPage = func(page int) {
		out := &itemsPage{}
		g.Add(request.NewHTTPRequest(c).
			WithGet("items").
			AndQueryParam("page", strconv.Itoa(page)).
			WithResult(out).
			WithOnSuccess(func(ctx context.Context, response request.HTTPResponse) error {
				lock.Lock()
				items = append(items, out.Items...)
				lock.Unlock()
				if out.Next > 0 {
					addPage(out.Next)
				}
				return nil
			}),
		)
	}
	addPage(1)

	// Nothing is sent before RunAndWait
	assert.Equal(t, 0, transport.GetTotalCallCount())

	require.NoError(t, g.RunAndWait())
	assert.ElementsMatch(t, []string{"item1", "item2", "item3", "item4"}, items)
	assert.Equal(t, 4, transport.GetTotalCallCount())
}

func TestRunGroup_StopOnFirstError(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")
	transport.RegisterResponder(http.MethodGet, `https://example.com/denied`, httpmock.NewStringResponder(http.StatusUnauthorized, "denied"))

	g := request.NewRunGroupWithLimit(context.Background(), 1)

	requestsCount := 50
	for i := 0; i < requestsCount; i++ {
		g.Add(request.NewHTTPRequest(c).WithGet("denied"))
	}

	err := g.RunAndWait()
	require.Error(t, err)
	assert.Equal(t, `request GET "https://example.com/denied" failed: 401 Unauthorized`, err.Error())

	// The group context is cancelled by the first error, waiting requests are not sent
	assert.Less(t, transport.GetTotalCallCount(), requestsCount)
}

func TestRunGroup_ErrorFromListener(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	transport.RegisterResponder(http.MethodGet, `https://example.com/foo`, httpmock.NewStringResponder(http.StatusOK, "OK"))

	g := request.NewRunGroup(context.Background())
	g.Add(request.NewHTTPRequest(c).
		WithGet("https://example.com/foo").
		WithOnSuccess(func(ctx context.Context, response request.HTTPResponse) error {
			return assert.AnError
		}),
	)

	assert.ErrorIs(t, g.RunAndWait(), assert.AnError)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestRunGroup_Empty(t *testing.T) {
	t.Parallel()
	assert.NoError(t, request.NewRunGroup(context.Background()).RunAndWait())
}
