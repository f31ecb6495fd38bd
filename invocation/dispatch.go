package invocation

import (
	"fmt"
	"time"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/journal"
	"github.com/flowcraft/durable/wire"
)

// awaitEntry is the generic replay/processing dispatch shared by every
// operation that appends one journal entry and may await its completion
// over the wire (spec.md §4.g "Processing" / "Replaying"). During replay it
// consumes the next journal entry and validates it against what the
// handler is asking for; during processing it appends a fresh Pending
// entry and emits the matching command frame.
func (m *Machine) awaitEntry(kind wire.EntryKind, name string, cmd *wire.CommandPayload) (*journal.Awaitable, error) {
	if m.Journal.IsReplaying() {
		entry, index, ok := m.Journal.Advance()
		if !ok {
			return nil, durerr.NewProtocolError("replay cursor exhausted while advancing")
		}
		if entry.Kind != kind || entry.Name != name {
			return nil, durerr.NewProtocolError(fmt.Sprintf(
				"replay mismatch at entry %d: journal has %s %q, handler requested %s %q",
				index, entry.Kind, entry.Name, kind, name))
		}
		if entry.Complete {
			return journal.NewResolvedAwaitable(entry.Result, entry.Failed, entry.Code, entry.Message), nil
		}
		return m.Registry.Register(index)
	}

	var index = m.Journal.Append(journal.Pending(kind, name))
	if m.Metrics != nil {
		m.Metrics.SetJournalEntries(m.Journal.Count())
	}
	cmd.Index = uint32(index)
	cmd.Name = name
	m.markCommandEmitted(index)
	if err := m.emit.EmitCommand(kind, cmd); err != nil {
		return nil, err
	}
	return m.Registry.Register(index)
}

// completeLocal is the dispatch shared by operations that never suspend:
// they record a journal entry (completed immediately, no registry
// round-trip) and, only during processing, emit a command frame.
func (m *Machine) completeLocal(kind wire.EntryKind, name string, result []byte, cmd *wire.CommandPayload) ([]byte, error) {
	if m.Journal.IsReplaying() {
		entry, index, ok := m.Journal.Advance()
		if !ok {
			return nil, durerr.NewProtocolError("replay cursor exhausted while advancing")
		}
		if entry.Kind != kind || entry.Name != name {
			return nil, durerr.NewProtocolError(fmt.Sprintf(
				"replay mismatch at entry %d: journal has %s %q, handler requested %s %q",
				index, entry.Kind, entry.Name, kind, name))
		}
		return entry.Result, nil
	}

	var index = m.Journal.Append(journal.Completed(kind, name, result))
	if m.Metrics != nil {
		m.Metrics.SetJournalEntries(m.Journal.Count())
	}
	cmd.Index = uint32(index)
	cmd.Name = name
	if err := m.emit.EmitCommand(kind, cmd); err != nil {
		return nil, err
	}
	return result, nil
}
