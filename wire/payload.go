package wire

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Payloads are hand-encoded with protowire: field-tag + wire-type, the same
// structured binary encoding generated protobuf Go code builds on, per
// spec.md §4.a. Unknown fields are skipped via protowire.ConsumeFieldValue
// so additive wire evolution never breaks a peer on an older version.

// StateEntry is one key/value pair of a Start frame's eager-state snapshot.
type StateEntry struct {
	Key   []byte
	Value []byte
}

// StartPayload is the Start frame payload (spec.md §6).
type StartPayload struct {
	Id           []byte
	DebugId      string
	KnownEntries uint32
	Key          string
	RandomSeed   uint64
	State        []StateEntry
}

const (
	startFieldId           protowire.Number = 1
	startFieldDebugId      protowire.Number = 2
	startFieldKnownEntries protowire.Number = 3
	startFieldKey          protowire.Number = 4
	startFieldRandomSeed   protowire.Number = 5
	startFieldState        protowire.Number = 6

	stateEntryFieldKey   protowire.Number = 1
	stateEntryFieldValue protowire.Number = 2
)

func (p *StartPayload) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, startFieldId, protowire.BytesType)
	b = protowire.AppendBytes(b, p.Id)
	b = protowire.AppendTag(b, startFieldDebugId, protowire.BytesType)
	b = protowire.AppendString(b, p.DebugId)
	b = protowire.AppendTag(b, startFieldKnownEntries, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.KnownEntries))
	if p.Key != "" {
		b = protowire.AppendTag(b, startFieldKey, protowire.BytesType)
		b = protowire.AppendString(b, p.Key)
	}
	b = protowire.AppendTag(b, startFieldRandomSeed, protowire.VarintType)
	b = protowire.AppendVarint(b, p.RandomSeed)
	for _, e := range p.State {
		var entry []byte
		entry = protowire.AppendTag(entry, stateEntryFieldKey, protowire.BytesType)
		entry = protowire.AppendBytes(entry, e.Key)
		entry = protowire.AppendTag(entry, stateEntryFieldValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, e.Value)

		b = protowire.AppendTag(b, startFieldState, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func UnmarshalStart(b []byte) (*StartPayload, error) {
	var p StartPayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "consuming Start tag")
		}
		b = b[n:]

		switch num {
		case startFieldId:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Start.id")
			}
			p.Id = append([]byte(nil), v...)
			b = b[n:]
		case startFieldDebugId:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Start.debug_id")
			}
			p.DebugId = v
			b = b[n:]
		case startFieldKnownEntries:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Start.known_entries")
			}
			p.KnownEntries = uint32(v)
			b = b[n:]
		case startFieldKey:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Start.key")
			}
			p.Key = v
			b = b[n:]
		case startFieldRandomSeed:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Start.random_seed")
			}
			p.RandomSeed = v
			b = b[n:]
		case startFieldState:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Start.state_map")
			}
			entry, err := unmarshalStateEntry(v)
			if err != nil {
				return nil, err
			}
			p.State = append(p.State, entry)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "skipping unknown Start field")
			}
			b = b[n:]
		}
	}
	return &p, nil
}

func unmarshalStateEntry(b []byte) (StateEntry, error) {
	var e StateEntry
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, errors.Wrap(ErrMalformedFrame, "consuming StateEntry tag")
		}
		b = b[n:]
		switch num {
		case stateEntryFieldKey:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, errors.Wrap(ErrMalformedFrame, "consuming StateEntry.key")
			}
			e.Key = append([]byte(nil), v...)
			b = b[n:]
		case stateEntryFieldValue:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, errors.Wrap(ErrMalformedFrame, "consuming StateEntry.value")
			}
			e.Value = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, errors.Wrap(ErrMalformedFrame, "skipping unknown StateEntry field")
			}
			b = b[n:]
		}
	}
	return e, nil
}

// ValuePayload is the Input/Output frame payload: a typed value wrapper.
type ValuePayload struct {
	Content []byte
	Headers map[string]string
}

const (
	valueFieldContent protowire.Number = 1
	valueFieldHeaders protowire.Number = 2

	headerFieldKey   protowire.Number = 1
	headerFieldValue protowire.Number = 2
)

func (p *ValuePayload) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, valueFieldContent, protowire.BytesType)
	b = protowire.AppendBytes(b, p.Content)
	for k, v := range p.Headers {
		var entry []byte
		entry = protowire.AppendTag(entry, headerFieldKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, headerFieldValue, protowire.BytesType)
		entry = protowire.AppendString(entry, v)

		b = protowire.AppendTag(b, valueFieldHeaders, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func UnmarshalValue(b []byte) (*ValuePayload, error) {
	var p ValuePayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "consuming Value tag")
		}
		b = b[n:]
		switch num {
		case valueFieldContent:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Value.content")
			}
			p.Content = append([]byte(nil), v...)
			b = b[n:]
		case valueFieldHeaders:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Value.headers")
			}
			k, val, err := unmarshalHeader(v)
			if err != nil {
				return nil, err
			}
			if p.Headers == nil {
				p.Headers = make(map[string]string)
			}
			p.Headers[k] = val
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "skipping unknown Value field")
			}
			b = b[n:]
		}
	}
	return &p, nil
}

func unmarshalHeader(b []byte) (string, string, error) {
	var key, value string
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", "", errors.Wrap(ErrMalformedFrame, "consuming Header tag")
		}
		b = b[n:]
		switch num {
		case headerFieldKey:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", "", errors.Wrap(ErrMalformedFrame, "consuming Header.key")
			}
			key = v
			b = b[n:]
		case headerFieldValue:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", "", errors.Wrap(ErrMalformedFrame, "consuming Header.value")
			}
			value = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", "", errors.Wrap(ErrMalformedFrame, "skipping unknown Header field")
			}
			b = b[n:]
		}
	}
	return key, value, nil
}

// ErrorPayload is the Error frame payload (spec.md §6).
type ErrorPayload struct {
	Code       uint32
	Message    string
	Stacktrace string
}

const (
	errorFieldCode       protowire.Number = 1
	errorFieldMessage    protowire.Number = 2
	errorFieldStacktrace protowire.Number = 3
)

func (p *ErrorPayload) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, errorFieldCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Code))
	b = protowire.AppendTag(b, errorFieldMessage, protowire.BytesType)
	b = protowire.AppendString(b, p.Message)
	if p.Stacktrace != "" {
		b = protowire.AppendTag(b, errorFieldStacktrace, protowire.BytesType)
		b = protowire.AppendString(b, p.Stacktrace)
	}
	return b
}

func UnmarshalError(b []byte) (*ErrorPayload, error) {
	var p ErrorPayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "consuming Error tag")
		}
		b = b[n:]
		switch num {
		case errorFieldCode:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Error.code")
			}
			p.Code = uint32(v)
			b = b[n:]
		case errorFieldMessage:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Error.message")
			}
			p.Message = v
			b = b[n:]
		case errorFieldStacktrace:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Error.stacktrace")
			}
			p.Stacktrace = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "skipping unknown Error field")
			}
			b = b[n:]
		}
	}
	return &p, nil
}

// SuspensionPayload lists the entry indexes the invocation is parked awaiting.
type SuspensionPayload struct {
	Indexes []uint32
}

const suspensionFieldIndex protowire.Number = 1

func (p *SuspensionPayload) Marshal() []byte {
	var b []byte
	for _, idx := range p.Indexes {
		b = protowire.AppendTag(b, suspensionFieldIndex, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(idx))
	}
	return b
}

func UnmarshalSuspension(b []byte) (*SuspensionPayload, error) {
	var p SuspensionPayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "consuming Suspension tag")
		}
		b = b[n:]
		switch num {
		case suspensionFieldIndex:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Suspension.entry_index")
			}
			p.Indexes = append(p.Indexes, uint32(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "skipping unknown Suspension field")
			}
			b = b[n:]
		}
	}
	return &p, nil
}

// RetryOverride carries a per-Run retry policy override onto the wire.
type RetryOverride struct {
	MaxAttempts   uint32
	InitialDelay  uint64 // milliseconds
	BackoffFactor float64
	MaxDelay      uint64 // milliseconds
	MaxElapsed    uint64 // milliseconds
}

// CommandPayload is the generic journal-command frame payload: it carries
// whichever subset of fields a given EntryKind needs (spec.md §4.g).
type CommandPayload struct {
	Index   uint32
	Name    string
	Value   []byte
	Service string
	Key     string
	Handler string
	DelayMs uint64
	Retry   *RetryOverride
	Failed  bool
	Code    uint32
	Message string

	// Complete is only meaningful when this CommandPayload is replayed as
	// part of the known-entries bootstrap (spec.md §4.g "Replaying"): it
	// distinguishes a historical entry whose outcome is already recorded
	// (Value/Failed/Code/Message populated) from one that was still
	// awaiting a completion when the invocation last suspended.
	Complete bool
}

const (
	cmdFieldIndex    protowire.Number = 1
	cmdFieldName     protowire.Number = 2
	cmdFieldValue    protowire.Number = 3
	cmdFieldService  protowire.Number = 4
	cmdFieldKey      protowire.Number = 5
	cmdFieldHandler  protowire.Number = 6
	cmdFieldDelayMs  protowire.Number = 7
	cmdFieldRetry    protowire.Number = 8
	cmdFieldFailed   protowire.Number = 9
	cmdFieldCode     protowire.Number = 10
	cmdFieldMessage  protowire.Number = 11
	cmdFieldComplete protowire.Number = 12

	retryFieldMaxAttempts   protowire.Number = 1
	retryFieldInitialDelay  protowire.Number = 2
	retryFieldBackoffFactor protowire.Number = 3
	retryFieldMaxDelay      protowire.Number = 4
	retryFieldMaxElapsed    protowire.Number = 5
)

func (p *CommandPayload) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, cmdFieldIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Index))
	if p.Name != "" {
		b = protowire.AppendTag(b, cmdFieldName, protowire.BytesType)
		b = protowire.AppendString(b, p.Name)
	}
	if p.Value != nil {
		b = protowire.AppendTag(b, cmdFieldValue, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Value)
	}
	if p.Service != "" {
		b = protowire.AppendTag(b, cmdFieldService, protowire.BytesType)
		b = protowire.AppendString(b, p.Service)
	}
	if p.Key != "" {
		b = protowire.AppendTag(b, cmdFieldKey, protowire.BytesType)
		b = protowire.AppendString(b, p.Key)
	}
	if p.Handler != "" {
		b = protowire.AppendTag(b, cmdFieldHandler, protowire.BytesType)
		b = protowire.AppendString(b, p.Handler)
	}
	if p.DelayMs != 0 {
		b = protowire.AppendTag(b, cmdFieldDelayMs, protowire.VarintType)
		b = protowire.AppendVarint(b, p.DelayMs)
	}
	if p.Retry != nil {
		var r []byte
		r = protowire.AppendTag(r, retryFieldMaxAttempts, protowire.VarintType)
		r = protowire.AppendVarint(r, uint64(p.Retry.MaxAttempts))
		r = protowire.AppendTag(r, retryFieldInitialDelay, protowire.VarintType)
		r = protowire.AppendVarint(r, p.Retry.InitialDelay)
		r = protowire.AppendTag(r, retryFieldBackoffFactor, protowire.Fixed64Type)
		r = protowire.AppendFixed64(r, math.Float64bits(p.Retry.BackoffFactor))
		r = protowire.AppendTag(r, retryFieldMaxDelay, protowire.VarintType)
		r = protowire.AppendVarint(r, p.Retry.MaxDelay)
		r = protowire.AppendTag(r, retryFieldMaxElapsed, protowire.VarintType)
		r = protowire.AppendVarint(r, p.Retry.MaxElapsed)

		b = protowire.AppendTag(b, cmdFieldRetry, protowire.BytesType)
		b = protowire.AppendBytes(b, r)
	}
	if p.Failed {
		b = protowire.AppendTag(b, cmdFieldFailed, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
		b = protowire.AppendTag(b, cmdFieldCode, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Code))
		if p.Message != "" {
			b = protowire.AppendTag(b, cmdFieldMessage, protowire.BytesType)
			b = protowire.AppendString(b, p.Message)
		}
	}
	if p.Complete {
		b = protowire.AppendTag(b, cmdFieldComplete, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

func UnmarshalCommand(b []byte) (*CommandPayload, error) {
	var p CommandPayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "consuming Command tag")
		}
		b = b[n:]
		switch num {
		case cmdFieldIndex:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.index")
			}
			p.Index = uint32(v)
			b = b[n:]
		case cmdFieldName:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.name")
			}
			p.Name = v
			b = b[n:]
		case cmdFieldValue:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.value")
			}
			p.Value = append([]byte(nil), v...)
			b = b[n:]
		case cmdFieldService:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.service")
			}
			p.Service = v
			b = b[n:]
		case cmdFieldKey:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.key")
			}
			p.Key = v
			b = b[n:]
		case cmdFieldHandler:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.handler")
			}
			p.Handler = v
			b = b[n:]
		case cmdFieldDelayMs:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.delay_ms")
			}
			p.DelayMs = v
			b = b[n:]
		case cmdFieldRetry:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.retry")
			}
			retry, err := unmarshalRetry(v)
			if err != nil {
				return nil, err
			}
			p.Retry = retry
			b = b[n:]
		case cmdFieldFailed:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.failed")
			}
			p.Failed = v != 0
			b = b[n:]
		case cmdFieldCode:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.code")
			}
			p.Code = uint32(v)
			b = b[n:]
		case cmdFieldMessage:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.message")
			}
			p.Message = v
			b = b[n:]
		case cmdFieldComplete:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Command.complete")
			}
			p.Complete = v != 0
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "skipping unknown Command field")
			}
			b = b[n:]
		}
	}
	return &p, nil
}

func unmarshalRetry(b []byte) (*RetryOverride, error) {
	var r RetryOverride
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "consuming Retry tag")
		}
		b = b[n:]
		switch num {
		case retryFieldMaxAttempts:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Retry.max_attempts")
			}
			r.MaxAttempts = uint32(v)
			b = b[n:]
		case retryFieldInitialDelay:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Retry.initial_delay")
			}
			r.InitialDelay = v
			b = b[n:]
		case retryFieldBackoffFactor:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Retry.backoff_factor")
			}
			r.BackoffFactor = math.Float64frombits(v)
			b = b[n:]
		case retryFieldMaxDelay:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Retry.max_delay")
			}
			r.MaxDelay = v
			b = b[n:]
		case retryFieldMaxElapsed:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Retry.max_elapsed")
			}
			r.MaxElapsed = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "skipping unknown Retry field")
			}
			b = b[n:]
		}
	}
	return &r, nil
}

// CompletionPayload resolves (or fails) a previously-issued command entry.
type CompletionPayload struct {
	Index   uint32
	Success bool
	Value   []byte
	Code    uint32
	Message string
}

const (
	compFieldIndex   protowire.Number = 1
	compFieldSuccess protowire.Number = 2
	compFieldValue   protowire.Number = 3
	compFieldCode    protowire.Number = 4
	compFieldMessage protowire.Number = 5
)

func (p *CompletionPayload) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, compFieldIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Index))
	b = protowire.AppendTag(b, compFieldSuccess, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(p.Success))
	if p.Success {
		b = protowire.AppendTag(b, compFieldValue, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Value)
	} else {
		b = protowire.AppendTag(b, compFieldCode, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Code))
		b = protowire.AppendTag(b, compFieldMessage, protowire.BytesType)
		b = protowire.AppendString(b, p.Message)
	}
	return b
}

func UnmarshalCompletion(b []byte) (*CompletionPayload, error) {
	var p CompletionPayload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedFrame, "consuming Completion tag")
		}
		b = b[n:]
		switch num {
		case compFieldIndex:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Completion.index")
			}
			p.Index = uint32(v)
			b = b[n:]
		case compFieldSuccess:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Completion.success")
			}
			p.Success = v != 0
			b = b[n:]
		case compFieldValue:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Completion.value")
			}
			p.Value = append([]byte(nil), v...)
			b = b[n:]
		case compFieldCode:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Completion.code")
			}
			p.Code = uint32(v)
			b = b[n:]
		case compFieldMessage:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "consuming Completion.message")
			}
			p.Message = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedFrame, "skipping unknown Completion field")
			}
			b = b[n:]
		}
	}
	return &p, nil
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
