package queue

import (
	"context"
	"sync"

	"github.com/rxtech-lab/quotex-connect/pkg/errors"
)

// Future is a one-shot completion signal for a Request.
type Future struct {
	once sync.Once
	done chan struct{}
	resp *Response
}

func newFuture() *Future {
	return &Future{
		once: sync.Once{},
		done: make(chan struct{}),
		resp: nil,
	}
}

// Done is closed when the response is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the response is available or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, nil
	case <-ctx.Done():
		return nil, errors.FromContext(ctx, "wait for response")
	}
}

// Result returns the response without blocking.
func (f *Future) Result() (*Response, bool) {
	select {
	case <-f.done:
		return f.resp, true
	default:
		return nil, false
	}
}

// resolve publishes resp, then runs after. Waiters are released before after runs, so a
// callback may wait on its own future. Later calls are ignored and return false.
func (f *Future) resolve(resp *Response, after func()) bool {
	resolved := false

	f.once.Do(func() {
		resolved = true
		f.resp = resp
		close(f.done)

		if after != nil {
			after()
		}
	})

	return resolved
}
