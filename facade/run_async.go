package facade

import (
	"context"
	"encoding/json"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/sideeffect"
)

// AsyncResult is the awaitable handle RunAsync hands back: a typed view
// over a Future whose raw bytes are the JSON encoding of T, mirroring the
// decode Run performs inline for its synchronous counterpart.
type AsyncResult[T any] struct {
	fut *Future
}

// Await blocks until the underlying step resolves, decoding its journaled
// result into T.
func (r *AsyncResult[T]) Await() (T, error) {
	var zero T
	raw, err := r.fut.Await()
	if err != nil {
		return zero, err
	}
	var v T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, durerr.WrapProtocolError(err, "RunAsync: decoding result")
		}
	}
	return v, nil
}

// RunAsync starts fn as a durable side effect without blocking the caller,
// per spec.md §4.h's `run_async(name, closure) → awaitable`. The returned
// AsyncResult can be awaited later, including alongside other futures via
// All/Race against its underlying Future.
func RunAsync[T any](c *Context, name string, policy sideeffect.RetryPolicy, fn func(context.Context) (T, error)) (*AsyncResult[T], error) {
	a, err := sideeffect.RunAsync(c, c.machine.Executor, name, policy, fn)
	if err != nil {
		return nil, err
	}
	return &AsyncResult[T]{fut: &Future{ctx: c, a: a}}, nil
}

// Future exposes the underlying awaitable so an AsyncResult can be combined
// with other operations via facade.All/facade.Race.
func (r *AsyncResult[T]) Future() *Future {
	return r.fut
}
