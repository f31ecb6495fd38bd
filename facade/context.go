// Package facade implements the handler-facing Context API described in
// spec.md §9: a thin wrapper borrowing the invocation state machine by
// pointer rather than owning it, so the facade and the machine can hold
// cyclic references to each other's lifetime without either owning the
// other. Grounded on the restate-sdk-go Context/Machine split found in
// the pack's reference material: a small struct embedding the ambient
// context.Context and a pointer back to the machine, with every method a
// one-line delegation.
package facade

import (
	"context"
	"time"

	"github.com/flowcraft/durable/invocation"
	"github.com/flowcraft/durable/sideeffect"
)

// Context is the object handler code actually receives. It satisfies
// context.Context itself (embedding one) so handler code can pass it
// anywhere a context.Context is expected, e.g. into an HTTP client used
// inside a Run closure.
type Context struct {
	context.Context
	machine *invocation.Machine
}

// New wraps an already-started Machine in a Context bound to ctx.
func New(ctx context.Context, m *invocation.Machine) *Context {
	return &Context{Context: ctx, machine: m}
}

// Sleep durably parks the invocation for d.
func (c *Context) Sleep(name string, d time.Duration) error {
	return c.machine.Sleep(c, name, d)
}

// Call durably invokes another service handler and blocks for its result.
func (c *Context) Call(name string, req invocation.CallRequest) ([]byte, error) {
	return c.machine.Call(c, name, req)
}

// Send dispatches a one-way, fire-and-forget call.
func (c *Context) Send(name string, req invocation.CallRequest) error {
	return c.machine.Send(name, req)
}

// AttachInvocation durably awaits another invocation's result.
func (c *Context) AttachInvocation(name, invocationID string) ([]byte, error) {
	return c.machine.AttachInvocation(c, name, invocationID)
}

// GetInvocationOutput durably fetches another invocation's output.
func (c *Context) GetInvocationOutput(name, invocationID string) ([]byte, error) {
	return c.machine.GetInvocationOutput(c, name, invocationID)
}

// GetState returns the durable value for key, if any.
func (c *Context) GetState(key string) ([]byte, error) {
	return c.machine.GetState(c, key)
}

// SetState durably writes key.
func (c *Context) SetState(key string, value []byte) error {
	return c.machine.SetState(key, value)
}

// ClearState durably removes key.
func (c *Context) ClearState(key string) error {
	return c.machine.ClearState(key)
}

// ClearAllState durably removes every key.
func (c *Context) ClearAllState() error {
	return c.machine.ClearAllState()
}

// StateKeys returns every durable state key.
func (c *Context) StateKeys() ([]string, error) {
	return c.machine.StateKeys(c)
}

// Awakeable creates a durable, single-shot external signal and returns its
// id (to be handed to whatever external system will resolve it) and a
// Future for the eventual payload.
func (c *Context) Awakeable() (id string, fut *Future, err error) {
	id, a, err := c.machine.Awakeables.Create()
	if err != nil {
		return "", nil, err
	}
	return id, &Future{ctx: c, a: a}, nil
}

// ResolveAwakeable completes the awakeable identified by id with value.
// Never suspends.
func (c *Context) ResolveAwakeable(id string, value []byte) error {
	return c.machine.Awakeables.Resolve(id, value)
}

// RejectAwakeable fails the awakeable identified by id. Never suspends.
func (c *Context) RejectAwakeable(id string, code uint32, message string) error {
	return c.machine.Awakeables.Reject(id, code, message)
}

// Promise durably awaits the workflow-scoped promise named name, creating
// it if this is the first reference.
func (c *Context) Promise(name string) (*Future, error) {
	a, err := c.machine.Promises.Get(name)
	if err != nil {
		return nil, err
	}
	return &Future{ctx: c, a: a}, nil
}

// PeekPromise records a PeekPromise entry instead of a GetPromise one. The
// returned Future still resolves only when the supervisor's completion
// arrives; awaiting it blocks, and suspends the invocation if the stream
// ends first, exactly as for Promise.
func (c *Context) PeekPromise(name string) (*Future, error) {
	a, err := c.machine.Promises.Peek(name)
	if err != nil {
		return nil, err
	}
	return &Future{ctx: c, a: a}, nil
}

// ResolvePromise completes the promise named name with value. Never
// suspends.
func (c *Context) ResolvePromise(name string, value []byte) error {
	return c.machine.Promises.Resolve(name, value)
}

// RejectPromise fails the promise named name. Never suspends.
func (c *Context) RejectPromise(name string, code uint32, message string) error {
	return c.machine.Promises.Reject(name, code, message)
}

// Rand returns a float64 in [0, 1) drawn from the invocation's
// deterministic random stream.
func (c *Context) Rand() float64 {
	return c.machine.Rand()
}

// Run executes fn as a durable, at-most-once-recorded side effect named
// name, retrying locally per policy on a *durerr.RetryableFailure.
func Run[T any](c *Context, name string, policy sideeffect.RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	return sideeffect.Run(c, c.machine.Executor, name, policy, fn)
}
