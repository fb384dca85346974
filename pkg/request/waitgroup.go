package request

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"
)

// WaitGroupConcurrencyLimit is the maximum number of concurrent requests in one WaitGroup.
const WaitGroupConcurrencyLimit = 8

// WaitGroup sends requests concurrently by the Send method,
// the Wait method blocks until all requests are completed.
//
// A request is sent immediately after the Send call.
// An error does not stop other requests, Wait returns all errors that have occurred.
//
// Use RunGroup to schedule requests first or to stop at the first error.
type WaitGroup struct {
	ctx context.Context
	wg  *sync.WaitGroup
	sem *semaphore.Weighted

	lock *sync.Mutex
	err  *multierror.Error
}

// NewWaitGroup creates new WaitGroup.
func NewWaitGroup(ctx context.Context) *WaitGroup {
	return NewWaitGroupWithLimit(ctx, WaitGroupConcurrencyLimit)
}

// NewWaitGroupWithLimit creates new WaitGroup with the given limit of concurrent requests.
func NewWaitGroupWithLimit(ctx context.Context, limit int64) *WaitGroup {
	return &WaitGroup{ctx: ctx, wg: &sync.WaitGroup{}, sem: semaphore.NewWeighted(limit), lock: &sync.Mutex{}}
}

// Send a concurrent request.
// It can be called from a listener of another request in the group.
func (g *WaitGroup) Send(request Sendable) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			g.addError(err)
			return
		}
		defer g.sem.Release(1)

		if err := request.SendOrErr(g.ctx); err != nil {
			g.addError(err)
		}
	}()
}

// Wait for all requests to complete. All errors that have occurred are returned.
func (g *WaitGroup) Wait() error {
	g.wg.Wait()

	g.lock.Lock()
	defer g.lock.Unlock()

	// A single error is not wrapped
	if g.err != nil && len(g.err.Errors) == 1 {
		return g.err.Errors[0]
	}
	return g.err.ErrorOrNil()
}

func (g *WaitGroup) addError(err error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.err = multierror.Append(g.err, err)
}
