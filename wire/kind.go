package wire

// EntryKind enumerates the journal entry kinds carried over the wire, per
// the journal's tagged-record model. Values are stable across process
// versions: they are encoded directly onto the wire as frame tags, so
// reordering this block is a protocol break.
type EntryKind uint8

const (
	EntryInput EntryKind = iota
	EntryOutput
	EntryGetState
	EntrySetState
	EntryClearState
	EntryClearAllState
	EntryGetStateKeys
	EntrySleep
	EntryCall
	EntryOneWayCall
	EntryAwakeable
	EntryCompleteAwakeable
	EntryRun
	EntryGetPromise
	EntryPeekPromise
	EntryCompletePromise
	EntryAttachInvocation
	EntryGetInvocationOutput
	EntrySendSignal

	entryKindCount
)

func (k EntryKind) String() string {
	if int(k) < len(entryKindNames) {
		return entryKindNames[k]
	}
	return "Unknown"
}

var entryKindNames = [...]string{
	EntryInput:               "Input",
	EntryOutput:               "Output",
	EntryGetState:             "GetState",
	EntrySetState:             "SetState",
	EntryClearState:           "ClearState",
	EntryClearAllState:        "ClearAllState",
	EntryGetStateKeys:         "GetStateKeys",
	EntrySleep:                "Sleep",
	EntryCall:                 "Call",
	EntryOneWayCall:           "OneWayCall",
	EntryAwakeable:            "Awakeable",
	EntryCompleteAwakeable:    "CompleteAwakeable",
	EntryRun:                  "Run",
	EntryGetPromise:           "GetPromise",
	EntryPeekPromise:          "PeekPromise",
	EntryCompletePromise:      "CompletePromise",
	EntryAttachInvocation:     "AttachInvocation",
	EntryGetInvocationOutput:  "GetInvocationOutput",
	EntrySendSignal:           "SendSignal",
}

// IsSuspensionPoint reports whether an operation of this kind ever awaits a
// completion, per spec.md §5. Pure local operations never suspend.
func (k EntryKind) IsSuspensionPoint() bool {
	switch k {
	case EntryCall, EntrySleep, EntryAwakeable, EntryGetPromise,
		EntryGetState, EntryGetStateKeys, EntryAttachInvocation,
		EntryGetInvocationOutput:
		return true
	case EntryRun:
		// Run is a suspension point only when awaited asynchronously;
		// the executor itself decides this per-call.
		return true
	default:
		return false
	}
}
