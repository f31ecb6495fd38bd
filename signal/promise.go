package signal

import (
	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/journal"
	"github.com/flowcraft/durable/wire"
)

// Promises operates on workflow-scoped durable promises (spec.md §4.f):
// unlike an awakeable, a promise is named by string and its resolution is
// visible to every invocation of that workflow key, not just the one that
// created it.
type Promises struct {
	Journal  *journal.Journal
	Registry *journal.Registry
	Emit     Emitter
}

func NewPromises(j *journal.Journal, reg *journal.Registry, emit Emitter) *Promises {
	return &Promises{Journal: j, Registry: reg, Emit: emit}
}

// Get blocks until name is resolved (spec.md §4.f: "Promise(name) blocks
// until resolved"). It is a suspension point (wire.EntryGetPromise.IsSuspensionPoint()).
func (p *Promises) Get(name string) (*journal.Awaitable, error) {
	return p.await(wire.EntryGetPromise, name)
}

// Peek records a PeekPromise entry (a distinct kind from Get's, for which
// wire.EntryPeekPromise.IsSuspensionPoint() reports false) but is otherwise
// mechanically identical to Get: the returned Awaitable resolves only when
// the supervisor's completion arrives, and awaiting it blocks until then.
// If the stream ends first, its index is listed in the Suspension frame
// like any other pending entry.
func (p *Promises) Peek(name string) (*journal.Awaitable, error) {
	return p.await(wire.EntryPeekPromise, name)
}

func (p *Promises) await(kind wire.EntryKind, name string) (*journal.Awaitable, error) {
	if p.Journal.IsReplaying() {
		entry, index, ok := p.Journal.Advance()
		if !ok {
			return nil, durerr.NewProtocolError("promise: replay cursor exhausted known entries")
		}
		if entry.Kind != kind || entry.Name != name {
			return nil, durerr.NewProtocolError("promise: journaled entry kind/name mismatch for " + name)
		}
		if entry.Complete {
			return journal.NewResolvedAwaitable(entry.Result, entry.Failed, entry.Code, entry.Message), nil
		}
		return p.Registry.Register(index)
	}

	var index = p.Journal.Append(journal.Pending(kind, name))
	aw, err := p.Registry.Register(index)
	if err != nil {
		return nil, err
	}
	if p.Emit != nil {
		if err := p.Emit.EmitCommand(kind, &wire.CommandPayload{Name: name}); err != nil {
			return nil, durerr.WrapProtocolError(err, "promise: emitting command frame for "+name)
		}
	}
	return aw, nil
}

// Resolve writes a successful completion for name, visible to all current
// and future readers on that workflow key. Never suspends.
func (p *Promises) Resolve(name string, payload []byte) error {
	return p.complete(name, false, 0, "", payload)
}

// Reject is the symmetric failure path to Resolve.
func (p *Promises) Reject(name string, code uint32, message string) error {
	return p.complete(name, true, code, message, nil)
}

func (p *Promises) complete(name string, failed bool, code uint32, message string, payload []byte) error {
	if p.Journal.IsReplaying() {
		entry, _, ok := p.Journal.Advance()
		if !ok {
			return durerr.NewProtocolError("complete_promise: replay cursor exhausted known entries")
		}
		if entry.Kind != wire.EntryCompletePromise || entry.Name != name {
			return durerr.NewProtocolError("complete_promise: journaled entry kind/name mismatch for " + name)
		}
		return nil
	}

	if failed {
		p.Journal.Append(journal.FailedEntry(wire.EntryCompletePromise, name, code, message))
	} else {
		p.Journal.Append(journal.Completed(wire.EntryCompletePromise, name, payload))
	}
	if p.Emit == nil {
		return nil
	}
	return p.Emit.EmitCommand(wire.EntryCompletePromise, &wire.CommandPayload{Name: name, Value: payload, Failed: failed, Code: code, Message: message})
}
