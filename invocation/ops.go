package invocation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/flowcraft/durable/wire"
)

// Sleep durably parks the invocation for d, suspending if the supervisor
// has not yet delivered the wakeup when the stream runs dry.
func (m *Machine) Sleep(ctx context.Context, name string, d time.Duration) error {
	awaitable, err := m.awaitEntry(wire.EntrySleep, name, &wire.CommandPayload{DelayMs: uint64(d.Milliseconds())})
	if err != nil {
		return err
	}
	_, err = awaitable.Wait(ctx)
	return err
}

// CallRequest names the target of a durable service call.
type CallRequest struct {
	Service string
	Key     string
	Handler string
	Value   []byte
	Retry   *wire.RetryOverride

	// Delay only applies to Send: it asks the supervisor to dispatch the
	// one-way call after d has elapsed, per spec.md §4.h's
	// `send(service, key, handler, input, delay)`. Call has no delay.
	Delay time.Duration
}

// Call durably invokes another service handler and awaits its result.
func (m *Machine) Call(ctx context.Context, name string, req CallRequest) ([]byte, error) {
	var cmd = &wire.CommandPayload{
		Service: req.Service,
		Key:     req.Key,
		Handler: req.Handler,
		Value:   req.Value,
		Retry:   req.Retry,
	}
	awaitable, err := m.awaitEntry(wire.EntryCall, name, cmd)
	if err != nil {
		return nil, err
	}
	return awaitable.Wait(ctx)
}

// Send durably dispatches a one-way call: it never awaits a result and
// never suspends, matching spec.md §4.g's fire-and-forget operations.
func (m *Machine) Send(name string, req CallRequest) error {
	var cmd = &wire.CommandPayload{
		Service: req.Service,
		Key:     req.Key,
		Handler: req.Handler,
		Value:   req.Value,
		Retry:   req.Retry,
		DelayMs: uint64(req.Delay.Milliseconds()),
	}
	_, err := m.completeLocal(wire.EntryOneWayCall, name, nil, cmd)
	return err
}

// AttachInvocation durably awaits the result of an invocation identified by
// invocationID, which may belong to a different service entirely.
func (m *Machine) AttachInvocation(ctx context.Context, name, invocationID string) ([]byte, error) {
	var cmd = &wire.CommandPayload{Value: []byte(invocationID)}
	awaitable, err := m.awaitEntry(wire.EntryAttachInvocation, name, cmd)
	if err != nil {
		return nil, err
	}
	return awaitable.Wait(ctx)
}

// GetInvocationOutput durably fetches the (possibly already-produced)
// output of invocationID without attaching as a durable waiter first.
func (m *Machine) GetInvocationOutput(ctx context.Context, name, invocationID string) ([]byte, error) {
	var cmd = &wire.CommandPayload{Value: []byte(invocationID)}
	awaitable, err := m.awaitEntry(wire.EntryGetInvocationOutput, name, cmd)
	if err != nil {
		return nil, err
	}
	return awaitable.Wait(ctx)
}

// randState is the invocation-scoped deterministic random source: seeded
// once from the Start frame's random_seed, it never touches the wire or
// the journal, since re-running the same handler code in the same order
// during replay reproduces the same sequence of draws on its own.
type randState struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Rand returns a float64 in [0, 1) drawn from the invocation's
// deterministic random stream (spec.md §4.i).
func (m *Machine) Rand() float64 {
	m.randOnce.Do(func() {
		m.randState = &randState{rng: rand.New(rand.NewSource(int64(m.randomSeed)))}
	})
	m.randState.mu.Lock()
	defer m.randState.mu.Unlock()
	return m.randState.rng.Float64()
}
