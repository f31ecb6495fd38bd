package journal

import "github.com/flowcraft/durable/wire"

// Entry is one immutable-once-completed record of the journal: a durable
// record of an externally-observable effect, per spec.md §3.
type Entry struct {
	Kind     wire.EntryKind
	Name     string // optional step/awakeable/promise name
	Result   []byte // recorded success result, if Completed
	Failed   bool   // true if the recorded outcome is a failure
	Code     uint32 // failure code, only meaningful if Failed
	Message  string // failure message, only meaningful if Failed
	Complete bool   // whether this entry has a recorded outcome yet
}

// Completed returns a successful, already-completed Entry.
func Completed(kind wire.EntryKind, name string, result []byte) Entry {
	return Entry{Kind: kind, Name: name, Result: result, Complete: true}
}

// FailedEntry returns a failed, already-completed Entry.
func FailedEntry(kind wire.EntryKind, name string, code uint32, message string) Entry {
	return Entry{Kind: kind, Name: name, Failed: true, Code: code, Message: message, Complete: true}
}

// Pending returns an Entry that has been appended (claims its index) but has
// no recorded outcome yet — used for operations whose completion arrives
// later over the wire (Call, Sleep, Awakeable, ...).
func Pending(kind wire.EntryKind, name string) Entry {
	return Entry{Kind: kind, Name: name}
}
