package request

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunGroupConcurrencyLimit is the maximum number of concurrent requests in one RunGroup.
const RunGroupConcurrencyLimit = 32

// RunGroup schedules requests by the Add method,
// they are sent concurrently when the RunAndWait method is called.
//
// Sending stops at the first error, which is returned by RunAndWait.
//
// Use WaitGroup to send requests immediately or to collect all errors.
type RunGroup struct {
	ctx   context.Context
	start chan struct{}
	group *errgroup.Group
	sem   *semaphore.Weighted
}

// NewRunGroup creates a new RunGroup.
func NewRunGroup(ctx context.Context) *RunGroup {
	return NewRunGroupWithLimit(ctx, RunGroupConcurrencyLimit)
}

// NewRunGroupWithLimit creates a new RunGroup with the given limit of concurrent requests.
func NewRunGroupWithLimit(ctx context.Context, limit int64) *RunGroup {
	group, ctx := errgroup.WithContext(ctx)
	return &RunGroup{
		ctx:   ctx,
		start: make(chan struct{}),
		group: group,
		sem:   semaphore.NewWeighted(limit),
	}
}

// Add a request, it is sent after the RunAndWait call.
// Requests can also be added from a listener, while RunAndWait is running.
func (g *RunGroup) Add(request Sendable) {
	g.group.Go(func() error {
		<-g.start

		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			return err
		}
		defer g.sem.Release(1)

		return request.SendOrErr(g.ctx)
	})
}

// RunAndWait starts sending requests and waits for the result.
func (g *RunGroup) RunAndWait() error {
	close(g.start)
	return g.group.Wait()
}
