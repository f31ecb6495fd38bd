package signal

import (
	"bytes"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/journal"
	"github.com/flowcraft/durable/wire"
)

// Emitter sends a journal command frame onto the wire. Deliberately the
// same narrow shape as sideeffect.Emitter rather than a shared import: each
// package that needs to emit defines the interface it needs at its own
// boundary.
type Emitter interface {
	EmitCommand(kind wire.EntryKind, payload *wire.CommandPayload) error
}

// Awakeables creates and resolves single-shot external-signal rendezvous
// points scoped to one invocation (spec.md §4.f).
type Awakeables struct {
	Journal      *journal.Journal
	Registry     *journal.Registry
	Emit         Emitter
	InvocationID []byte
}

func NewAwakeables(j *journal.Journal, reg *journal.Registry, emit Emitter, invocationID []byte) *Awakeables {
	return &Awakeables{Journal: j, Registry: reg, Emit: emit, InvocationID: invocationID}
}

// Create allocates the next signal index, builds its id, appends an
// Awakeable entry, and returns the id alongside the Awaitable the handler
// awaits for resolution.
func (a *Awakeables) Create() (string, *journal.Awaitable, error) {
	if a.Journal.IsReplaying() {
		entry, index, ok := a.Journal.Advance()
		if !ok {
			return "", nil, durerr.NewProtocolError("Awakeable: replay cursor exhausted known entries")
		}
		if entry.Kind != wire.EntryAwakeable {
			return "", nil, durerr.NewProtocolError("Awakeable: journaled entry kind mismatch")
		}
		if entry.Complete {
			return entry.Name, journal.NewResolvedAwaitable(entry.Result, entry.Failed, entry.Code, entry.Message), nil
		}
		aw, err := a.Registry.Register(index)
		if err != nil {
			return "", nil, err
		}
		return entry.Name, aw, nil
	}

	var index = a.Journal.Count()
	var id = EncodeAwakeableID(a.InvocationID, uint32(index))
	var appended = a.Journal.Append(journal.Pending(wire.EntryAwakeable, id))
	aw, err := a.Registry.Register(appended)
	if err != nil {
		return "", nil, err
	}
	if a.Emit != nil {
		if err := a.Emit.EmitCommand(wire.EntryAwakeable, &wire.CommandPayload{Name: id}); err != nil {
			return "", nil, durerr.WrapProtocolError(err, "Awakeable: emitting command frame")
		}
	}
	return id, aw, nil
}

// Resolve completes an awakeable by id with a success value. Per spec.md
// §5, resolving an awakeable never suspends: it is a fire-and-forget
// append-and-emit, regardless of whether id belongs to this invocation or
// another one.
func (a *Awakeables) Resolve(id string, value []byte) error {
	return a.complete(id, false, 0, "", value)
}

// Reject completes an awakeable by id with a failure reason.
func (a *Awakeables) Reject(id string, code uint32, message string) error {
	return a.complete(id, true, code, message, nil)
}

func (a *Awakeables) complete(id string, failed bool, code uint32, message string, value []byte) error {
	targetInvocation, _, err := DecodeAwakeableID(id)
	if err != nil {
		return err
	}

	var kind = wire.EntryCompleteAwakeable
	if !bytes.Equal(targetInvocation, a.InvocationID) {
		// The target is a different invocation: the supervisor routes this
		// as a signal rather than resolving a local completion slot.
		kind = wire.EntrySendSignal
	}

	if a.Journal.IsReplaying() {
		entry, _, ok := a.Journal.Advance()
		if !ok {
			return durerr.NewProtocolError("resolve_awakeable: replay cursor exhausted known entries")
		}
		if entry.Kind != kind || entry.Name != id {
			return durerr.NewProtocolError("resolve_awakeable: journaled entry kind/name mismatch")
		}
		return nil
	}

	if failed {
		a.Journal.Append(journal.FailedEntry(kind, id, code, message))
	} else {
		a.Journal.Append(journal.Completed(kind, id, value))
	}
	if a.Emit == nil {
		return nil
	}
	return a.Emit.EmitCommand(kind, &wire.CommandPayload{Name: id, Value: value, Failed: failed, Code: code, Message: message})
}
