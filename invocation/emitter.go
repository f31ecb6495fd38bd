package invocation

import "github.com/flowcraft/durable/wire"

// frameEmitter adapts a *wire.Writer to the narrow Emitter interface the
// sideeffect and signal packages each declare at their own boundary.
type frameEmitter struct {
	w *wire.Writer
}

func (e *frameEmitter) EmitCommand(kind wire.EntryKind, payload *wire.CommandPayload) error {
	return e.w.WriteFrame(wire.CommandTag(kind), payload.Marshal())
}
