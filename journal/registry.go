package journal

import (
	"fmt"
	"sync"
)

// result is an early-delivered completion, stored until the handler side
// registers an Awaitable to receive it.
type result struct {
	value   []byte
	failed  bool
	code    uint32
	message string
}

type slot struct {
	awaitable *Awaitable // non-nil once a waiter has registered
	early     *result    // non-nil if a completion arrived before registration
}

// Registry is the completion registry of spec.md §4.c: a concurrent map
// from entry index to a single-consumer completion slot. The handler task
// calls Register/GetOrRegister; the reader task calls TryComplete/TryFail
// concurrently — the registry's mutex is what makes that safe (spec.md §5).
type Registry struct {
	mu    sync.Mutex
	slots map[int]*slot
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[int]*slot)}
}

// Register installs a fresh Awaitable for index i. It fails if a live
// Awaitable is already registered for i (double-registration is a
// programmer error in the dispatch layer, not a wire condition).
// If an early result is already stored, Register returns a pre-resolved
// Awaitable and consumes the early result.
func (r *Registry) Register(i int) (*Awaitable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s = r.slots[i]
	if s == nil {
		var a = newAwaitable()
		r.slots[i] = &slot{awaitable: a}
		return a, nil
	}
	if s.early != nil {
		var a = resolvedAwaitable(*s.early)
		delete(r.slots, i)
		return a, nil
	}
	if s.awaitable != nil {
		return nil, fmt.Errorf("journal: entry %d already has a registered awaitable", i)
	}
	// Unreachable: a slot is always either early or awaitable.
	var a = newAwaitable()
	r.slots[i] = &slot{awaitable: a}
	return a, nil
}

// GetOrRegister is the idempotent variant of Register: repeated calls for
// the same index return the same Awaitable instance, which lets multiple
// combinators (all/race) observe one child operation without racing to
// register it twice.
func (r *Registry) GetOrRegister(i int) *Awaitable {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s = r.slots[i]
	if s == nil {
		var a = newAwaitable()
		r.slots[i] = &slot{awaitable: a}
		return a
	}
	if s.awaitable != nil {
		return s.awaitable
	}
	// s.early != nil: cache the resolved Awaitable in place, so a second
	// GetOrRegister call for the same index returns the identical
	// instance rather than constructing a new (equivalent) one.
	var a = resolvedAwaitable(*s.early)
	r.slots[i] = &slot{awaitable: a}
	return a
}

// TryComplete resolves a registered Awaitable with a success value, or, if
// none is registered yet, stores the result for later delivery.
func (r *Registry) TryComplete(i int, value []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(i, result{value: value})
}

// TryFail is the symmetric failure path to TryComplete.
func (r *Registry) TryFail(i int, code uint32, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(i, result{failed: true, code: code, message: message})
}

func (r *Registry) deliver(i int, res result) {
	var s = r.slots[i]
	if s != nil && s.awaitable != nil {
		if res.failed {
			s.awaitable.resolveFailure(res.code, res.message)
		} else {
			s.awaitable.resolveSuccess(res.value)
		}
		delete(r.slots, i)
		return
	}
	r.slots[i] = &slot{early: &res}
}

// PendingIndexes returns the entry indexes with a registered Awaitable that
// has not yet resolved. Used only to build a Suspension frame's index list
// when the wire closes with outstanding awaits (spec.md §4.g).
func (r *Registry) PendingIndexes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out = make([]int, 0, len(r.slots))
	for i, s := range r.slots {
		if s.awaitable != nil {
			if _, _, _, _, _, resolved := s.awaitable.Peek(); !resolved {
				out = append(out, i)
			}
		}
	}
	return out
}

// CancelAll resolves every live Awaitable with cancellation and clears the
// registry. Used when the supervisor signals invocation cancellation.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.slots {
		if s.awaitable != nil {
			s.awaitable.resolveCancel()
		}
		delete(r.slots, i)
	}
}
