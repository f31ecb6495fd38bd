package journal

import (
	"context"

	"github.com/flowcraft/durable/durerr"
)

// Awaitable is a single-consumer future resolved exactly once, by success
// value, failure, or cancellation. It backs every suspension point named in
// spec.md §5.
type Awaitable struct {
	done chan struct{}

	value   []byte
	failed  bool
	code    uint32
	message string
	cancel  bool
}

func newAwaitable() *Awaitable {
	return &Awaitable{done: make(chan struct{})}
}

// resolvedAwaitable returns an Awaitable that is already resolved, used
// when an early-delivered completion is consumed by a subsequent register.
func resolvedAwaitable(r result) *Awaitable {
	var a = &Awaitable{
		done:    make(chan struct{}),
		value:   r.value,
		failed:  r.failed,
		code:    r.code,
		message: r.message,
	}
	close(a.done)
	return a
}

// NewResolvedAwaitable builds an already-resolved Awaitable directly from a
// journal entry's recorded outcome, for callers replaying a Completed entry
// without ever touching the completion registry (the registry only matters
// for completions still pending delivery over the wire).
func NewResolvedAwaitable(value []byte, failed bool, code uint32, message string) *Awaitable {
	return resolvedAwaitable(result{value: value, failed: failed, code: code, message: message})
}

// NewPendingAwaitable builds an unresolved Awaitable for a caller that will
// resolve it itself (via ResolveSuccess/ResolveFailure) rather than through
// a Registry — used by RunAsync, which is both the producer and the only
// possible consumer of its own result and so never needs a wire round trip
// to resolve.
func NewPendingAwaitable() *Awaitable {
	return newAwaitable()
}

// ResolveSuccess resolves a pending Awaitable built with NewPendingAwaitable
// with a success value. Resolving an Awaitable obtained any other way (e.g.
// from a Registry) is a programmer error.
func (a *Awaitable) ResolveSuccess(value []byte) { a.resolveSuccess(value) }

// ResolveFailure is the failure counterpart to ResolveSuccess.
func (a *Awaitable) ResolveFailure(code uint32, message string) { a.resolveFailure(code, message) }

func (a *Awaitable) resolveSuccess(value []byte) {
	a.value = value
	close(a.done)
}

func (a *Awaitable) resolveFailure(code uint32, message string) {
	a.failed = true
	a.code = code
	a.message = message
	close(a.done)
}

func (a *Awaitable) resolveCancel() {
	a.cancel = true
	close(a.done)
}

// Wait blocks until the Awaitable resolves or ctx is cancelled.
func (a *Awaitable) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-a.done:
		if a.cancel {
			return nil, durerr.CancellationFailure{}
		}
		if a.failed {
			return nil, durerr.NewTerminalFailure(a.code, a.message)
		}
		return a.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done exposes the underlying resolution channel, for combinators (all/race)
// that need to select over many Awaitables at once without allocating a
// goroutine per child.
func (a *Awaitable) Done() <-chan struct{} { return a.done }

// Peek returns the resolved outcome without blocking; ok is false if the
// Awaitable has not yet resolved.
func (a *Awaitable) Peek() (value []byte, failed bool, code uint32, message string, cancelled bool, ok bool) {
	select {
	case <-a.done:
		return a.value, a.failed, a.code, a.message, a.cancel, true
	default:
		return nil, false, 0, "", false, false
	}
}
