// Package workers bridges blocking solver operations into the
// request-handling runtime. A bounded pool admits units of work;
// the submitting goroutine awaits completion on a channel without
// blocking other requests.
package workers

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"gtgate.dev/gtgate/common"
)

// ErrClosed is returned by Submit after the pool has been shut down.
var ErrClosed = errors.New("worker pool closed")

// ErrNotScheduled is returned when a unit of work could not be admitted
// before the submitting context ended.
var ErrNotScheduled = errors.New("blocking work could not be scheduled")

// Result carries the outcome of one unit of blocking work.
type Result struct {
	Data interface{}
	Err  error
}

// Fn is a unit of blocking work. cancel is closed if the pool shuts
// down while the work is in flight; honoring it is optional, and the
// reference behavior never does. Work always runs to completion once
// admitted, even if the submitting request was abandoned.
type Fn func(cancel <-chan struct{}) (interface{}, error)

// Pool admits up to a fixed number of concurrent blocking work units.
type Pool struct {
	sem       *semaphore.Weighted
	cancel    chan struct{}
	closed    common.AtomicBool
	closeOnce sync.Once
}

// NewPool creates a Pool admitting size concurrent units. A size of
// zero or less falls back to the default.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = common.DefaultWorkers
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		cancel: make(chan struct{}),
	}
}

// Submit admits fn and returns a channel that yields exactly one
// Result once fn finishes. The submitting goroutine may stop waiting
// on the channel at any time; fn still runs to completion.
func (p *Pool) Submit(ctx context.Context, fn Fn) (<-chan Result, error) {
	if p.closed.IsSet() {
		return nil, ErrClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(ErrNotScheduled, err.Error())
	}
	if p.closed.IsSet() {
		p.sem.Release(1)
		return nil, ErrClosed
	}

	// Buffered so the worker never blocks on an abandoned submitter.
	done := make(chan Result, 1)
	go func() {
		defer p.sem.Release(1)
		data, err := fn(p.cancel)
		done <- Result{Data: data, Err: err}
	}()
	return done, nil
}

// Close shuts the pool down. In-flight work observes the cancel
// channel but is not interrupted; subsequent Submit calls fail with
// ErrClosed.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.SetTrue()
		close(p.cancel)
	})
}
