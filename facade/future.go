package facade

import (
	"context"

	"github.com/flowcraft/durable/invocation"
	"github.com/flowcraft/durable/journal"
)

// Future is a handler-facing handle on a pending durable operation: a
// journal.Awaitable bound to the Context's ambient context.Context, so
// call sites never have to thread ctx through Await themselves.
type Future struct {
	ctx context.Context
	a   *journal.Awaitable
}

// Await blocks until the underlying operation resolves or the bound
// context is cancelled.
func (f *Future) Await() ([]byte, error) {
	return f.a.Wait(f.ctx)
}

// All blocks until every Future has resolved, returning the first error
// encountered (spec.md §4.h).
func All(futures []*Future) error {
	if len(futures) == 0 {
		return nil
	}
	return invocation.All(futures[0].ctx, toAwaitables(futures))
}

// Race blocks until the first Future resolves and returns its index
// (spec.md §4.h).
func Race(futures []*Future) (int, error) {
	if len(futures) == 0 {
		return -1, nil
	}
	return invocation.Race(futures[0].ctx, toAwaitables(futures))
}

func toAwaitables(futures []*Future) []*journal.Awaitable {
	var out = make([]*journal.Awaitable, len(futures))
	for i, f := range futures {
		out[i] = f.a
	}
	return out
}
