// Package journal implements the append-only, ordered sequence of
// durable entries an invocation has performed, and the completion registry
// that reconciles wire completions with in-flight awaitables.
//
// Grounded on the teacher's `go/consumer` and `broker` packages: an
// append-only, growable vector behind a mutex, indexed by position, the
// way a Gazette journal is indexed by byte offset — here, by entry index.
package journal

import (
	"sync"

	"github.com/flowcraft/durable/wire"
)

// Journal is the append-only vector of Entry, with a replay cursor.
// Not safe for concurrent use beyond what its own mutex guards: the
// invocation state machine is the sole external caller, but internally the
// mutex lets Append (handler task) and ApplyCompletion (reader task, for
// completion bookkeeping) interleave safely.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	cursor  int // number of entries consumed so far during replay
	known   int // known_entries from the Start frame
}

// New returns a Journal with an initial capacity hint, amortizing the
// first several Appends.
func New(capacityHint int) *Journal {
	if capacityHint < 8 {
		capacityHint = 8
	}
	return &Journal{entries: make([]Entry, 0, capacityHint)}
}

// Initialize seeds the journal with the entries known at Start time and
// sets the known-entries boundary used by IsReplaying.
func (j *Journal) Initialize(known []Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries[:0], known...)
	j.known = len(known)
	j.cursor = 0
}

// Append adds a new entry and returns its index. Growth is amortized
// doubling via the backing slice's own append semantics.
func (j *Journal) Append(e Entry) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	var index = len(j.entries)
	j.entries = append(j.entries, e)
	return index
}

// Count returns the current number of entries.
func (j *Journal) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Known returns the known_entries boundary from the Start frame.
func (j *Journal) Known() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.known
}

// IsReplaying reports whether the cursor has not yet caught up to the
// known-entries boundary.
func (j *Journal) IsReplaying() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor < j.known
}

// At returns the entry at index i. The second return is false if i is out
// of range.
func (j *Journal) At(i int) (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if i < 0 || i >= len(j.entries) {
		return Entry{}, false
	}
	return j.entries[i], true
}

// Cursor returns the current replay cursor position.
func (j *Journal) Cursor() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor
}

// Advance consumes the next journal entry during replay and returns it.
// The second return is false if the cursor has already reached the known
// boundary (the caller should switch to Processing instead).
func (j *Journal) Advance() (Entry, int, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cursor >= j.known {
		return Entry{}, 0, false
	}
	var index = j.cursor
	var e = j.entries[index]
	j.cursor++
	return e, index, true
}

// ApplyCompletion records a late-arriving completion against an existing
// (pending) journal entry, used when a Call/Sleep/Awakeable/Promise entry
// was appended during Processing and its result now arrives over the wire.
func (j *Journal) ApplyCompletion(index int, result []byte, failed bool, code uint32, message string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if index < 0 || index >= len(j.entries) {
		return false
	}
	var e = &j.entries[index]
	e.Complete = true
	e.Failed = failed
	e.Result = result
	e.Code = code
	e.Message = message
	return true
}

// EntriesSnapshot returns a defensive copy of all entries, for diagnostics
// and tests only.
func (j *Journal) EntriesSnapshot() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out = make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// KindName renders an entry kind for logging; thin indirection so callers
// don't need to import wire directly just to log.
func KindName(k wire.EntryKind) string { return k.String() }
