// Package invocation implements the InvocationStateMachine (spec.md §4.g):
// the component that owns one invocation's journal, completion registry,
// eager-state cache, side-effect executor, and awakeable/promise layer, and
// drives a handler through WaitingStart → Replaying → Processing → Closed.
package invocation

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/internal/metrics"
	"github.com/flowcraft/durable/internal/ops"
	"github.com/flowcraft/durable/journal"
	"github.com/flowcraft/durable/sideeffect"
	"github.com/flowcraft/durable/signal"
	"github.com/flowcraft/durable/state"
	"github.com/flowcraft/durable/wire"
)

// HandlerInput is the value handler code receives: the invocation's Input
// frame content, plus the identity fields from the Start frame.
type HandlerInput struct {
	Content      []byte
	Headers      map[string]string
	InvocationID []byte
	DebugID      string
	Key          string
	RandomSeed   uint64
}

// HandlerFunc is the shape of user code driven by a Machine. It returns the
// raw output bytes on success; the facade package wraps this with typed
// marshal/unmarshal.
type HandlerFunc func(ctx context.Context, m *Machine, in HandlerInput) ([]byte, error)

// Machine is the per-invocation InvocationStateMachine. One instance is
// born on stream open, drives exactly one handler to completion, and is
// never reused (spec.md §3 "Lifecycle").
type Machine struct {
	reader *wire.Reader
	writer *wire.Writer
	emit   *frameEmitter

	Journal  *journal.Journal
	Registry *journal.Registry
	Cache    *state.Cache

	Executor   *sideeffect.Executor
	Awakeables *signal.Awakeables
	Promises   *signal.Promises

	Metrics *metrics.Metrics
	Log     ops.Publisher

	invocationID []byte
	debugID      string
	key          string
	randomSeed   uint64

	randOnce  sync.Once
	randState *randState

	pendingMu    sync.Mutex
	pendingSince map[int]time.Time

	mu               sync.Mutex
	closed           bool
	outputSent       bool
	suspendedIndexes []uint32
}

// New constructs a Machine over a raw bidirectional byte stream. Call Start
// to perform the handshake, then Run to drive a handler to completion.
func New(r io.Reader, w io.Writer, m *metrics.Metrics, log ops.Publisher) *Machine {
	var writer = wire.NewWriter(w)

	var machine = &Machine{
		reader:       wire.NewReader(r),
		writer:       writer,
		emit:         &frameEmitter{w: writer},
		Journal:      journal.New(8),
		Registry:     journal.NewRegistry(),
		Metrics:      m,
		Log:          log,
		pendingSince: make(map[int]time.Time),
	}
	machine.Executor = sideeffect.New(machine.Journal, machine.emit, m, log)
	return machine
}

// Start performs the handshake: reads the Start frame, seeds the eager
// state cache and identity fields, reads the dedicated Input frame, and
// bootstraps any known historical journal entries (spec.md §3, §6). It
// never invokes handler code and never suspends — replay bootstrap is pure
// local bookkeeping ahead of the handler task.
func (m *Machine) Start(ctx context.Context) (HandlerInput, error) {
	startTag, startPayload, err := m.reader.ReadFrame()
	if err != nil {
		return HandlerInput{}, durerr.WrapProtocolError(err, "reading Start frame")
	}
	if startTag != wire.TagStart {
		return HandlerInput{}, durerr.NewProtocolError("expected Start frame")
	}
	start, err := wire.UnmarshalStart(startPayload)
	if err != nil {
		return HandlerInput{}, durerr.WrapProtocolError(err, "decoding Start frame")
	}

	m.invocationID = start.Id
	m.debugID = start.DebugId
	m.key = start.Key
	m.randomSeed = start.RandomSeed

	var seed = make(map[string][]byte, len(start.State))
	for _, e := range start.State {
		seed[string(e.Key)] = e.Value
	}
	m.Cache = state.New(seed)
	m.Awakeables = signal.NewAwakeables(m.Journal, m.Registry, m.emit, m.invocationID)
	m.Promises = signal.NewPromises(m.Journal, m.Registry, m.emit)

	inputTag, inputPayload, err := m.reader.ReadFrame()
	if err != nil {
		return HandlerInput{}, durerr.WrapProtocolError(err, "reading Input frame")
	}
	if inputTag != wire.TagInput {
		return HandlerInput{}, durerr.NewProtocolError("expected Input frame")
	}
	input, err := wire.UnmarshalValue(inputPayload)
	if err != nil {
		return HandlerInput{}, durerr.WrapProtocolError(err, "decoding Input frame")
	}

	var entries = make([]journal.Entry, 0, start.KnownEntries)
	entries = append(entries, journal.Completed(wire.EntryInput, "", input.Content))

	for i := uint32(1); i < start.KnownEntries; i++ {
		entry, err := m.readBootstrapEntry()
		if err != nil {
			return HandlerInput{}, err
		}
		entries = append(entries, entry)
	}

	m.Journal.Initialize(entries)
	// The Input entry is handed directly to the handler below rather than
	// retrieved through a dispatch call, so its replay slot is consumed
	// immediately: this is what lets known_entries == 1 (Input only) land
	// the machine straight in Processing, matching spec.md §8's "Noop"
	// scenario.
	m.Journal.Advance()

	if m.Log != nil {
		ops.Log(m.Log, ops.LevelInfo, "invocation started", "debug_id", m.debugID, "known_entries", start.KnownEntries)
	}

	return HandlerInput{
		Content:      input.Content,
		Headers:      input.Headers,
		InvocationID: m.invocationID,
		DebugID:      m.debugID,
		Key:          m.key,
		RandomSeed:   m.randomSeed,
	}, nil
}

// markCommandEmitted records when a suspension-point command was emitted,
// so the matching completion's round-trip latency can be observed once it
// arrives (spec.md §4.y's completion-latency histogram).
func (m *Machine) markCommandEmitted(index int) {
	if m.Metrics == nil {
		return
	}
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	m.pendingSince[index] = time.Now()
}

// observeCompletionLatency reports the elapsed time since index's command
// was emitted, if this Machine is tracking one for it.
func (m *Machine) observeCompletionLatency(index int) {
	if m.Metrics == nil {
		return
	}
	m.pendingMu.Lock()
	started, ok := m.pendingSince[index]
	if ok {
		delete(m.pendingSince, index)
	}
	m.pendingMu.Unlock()
	if !ok {
		return
	}
	m.Metrics.ObserveCompletionLatencySeconds(time.Since(started).Seconds())
}

func (m *Machine) readBootstrapEntry() (journal.Entry, error) {
	tag, payload, err := m.reader.ReadFrame()
	if err != nil {
		return journal.Entry{}, durerr.WrapProtocolError(err, "reading bootstrap entry frame")
	}
	kind, ok := wire.KindOfCommandTag(tag)
	if !ok {
		return journal.Entry{}, durerr.NewProtocolError("expected a journal command tag during known-entries bootstrap")
	}
	cmd, err := wire.UnmarshalCommand(payload)
	if err != nil {
		return journal.Entry{}, durerr.WrapProtocolError(err, "decoding bootstrap command payload")
	}
	if !cmd.Complete {
		return journal.Pending(kind, cmd.Name), nil
	}
	if cmd.Failed {
		return journal.FailedEntry(kind, cmd.Name, cmd.Code, cmd.Message), nil
	}
	return journal.Completed(kind, cmd.Name, cmd.Value), nil
}

// Run drives handler to completion: it pairs the handler task against a
// reader task (spec.md §5) using an errgroup, exactly the pattern the
// teacher uses to pair a task's producer and consumer goroutines.
func (m *Machine) Run(ctx context.Context, handler HandlerFunc, in HandlerInput) error {
	var runCtx, cancel = context.WithCancel(ctx)
	defer cancel()
	var g, gctx = errgroup.WithContext(runCtx)

	g.Go(func() error {
		// Cancelling here unblocks a handler parked in Awaitable.Wait once
		// the reader loop has decided the stream is done (clean EOF, with
		// or without a Suspension already sent, or a read error).
		defer cancel()
		return m.readLoop(gctx)
	})

	g.Go(func() error {
		defer cancel() // stop the reader loop once the handler is done
		out, err := handler(gctx, m, in)
		if err != nil {
			return m.finishWithError(err)
		}
		return m.finishWithOutput(out)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	m.mu.Lock()
	var suspended = m.suspendedIndexes
	m.mu.Unlock()
	if suspended != nil {
		return &durerr.Suspended{AwaitingIndexes: suspended}
	}
	return nil
}

// readLoop is the reader task: it drains completion frames and applies
// them to the journal and registry until the handler task is done (ctx
// cancelled) or the stream ends. On a clean stream end with outstanding
// awaits, it builds and sends a Suspension frame.
func (m *Machine) readLoop(ctx context.Context) error {
	for {
		tag, payload, err := m.reader.ReadFrame()
		if err != nil {
			if err == io.EOF {
				return m.finishWithSuspensionIfPending()
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return durerr.WrapProtocolError(err, "reading frame")
		}

		switch tag {
		case wire.TagCompletionSuccess, wire.TagCompletionFailure:
			completion, err := wire.UnmarshalCompletion(payload)
			if err != nil {
				return durerr.WrapProtocolError(err, "decoding completion payload")
			}
			var index = int(completion.Index)
			if completion.Success {
				m.Journal.ApplyCompletion(index, completion.Value, false, 0, "")
				m.Registry.TryComplete(index, completion.Value)
			} else {
				m.Journal.ApplyCompletion(index, nil, true, completion.Code, completion.Message)
				m.Registry.TryFail(index, completion.Code, completion.Message)
			}
			m.observeCompletionLatency(index)
		default:
			if m.Log != nil {
				ops.Log(m.Log, ops.LevelWarn, "skipping unrecognized frame tag", "tag", tag.String())
			}
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (m *Machine) finishWithSuspensionIfPending() error {
	var pending = m.Registry.PendingIndexes()
	if len(pending) == 0 {
		return nil
	}
	return m.emitSuspension(pending)
}

func (m *Machine) emitSuspension(indexes []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.outputSent {
		return nil
	}
	m.closed = true
	if m.Metrics != nil {
		m.Metrics.IncSuspensions()
	}

	var wireIndexes = make([]uint32, len(indexes))
	for i, idx := range indexes {
		wireIndexes[i] = uint32(idx)
	}
	m.suspendedIndexes = wireIndexes

	var payload = &wire.SuspensionPayload{Indexes: wireIndexes}
	return m.writer.WriteFrame(wire.TagSuspension, payload.Marshal())
}

// finishWithOutput emits Output then End, enforcing the at-most-one-output
// invariant (spec.md §8 invariant 7).
func (m *Machine) finishWithOutput(value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.outputSent = true

	var payload = &wire.ValuePayload{Content: value}
	if err := m.writer.WriteFrame(wire.TagOutput, payload.Marshal()); err != nil {
		return err
	}
	return m.writer.WriteFrame(wire.TagEnd, nil)
}

// finishWithError emits Error then End. A *durerr.TerminalFailure carries
// its own code; any other error is reported as a generic internal failure.
func (m *Machine) finishWithError(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.outputSent = true

	var code uint32 = 500
	var message = err.Error()
	var terminal *durerr.TerminalFailure
	if ok := asTerminalFailure(err, &terminal); ok {
		code = terminal.Code
		message = terminal.Message
	}

	var payload = &wire.ErrorPayload{Code: code, Message: message}
	if writeErr := m.writer.WriteFrame(wire.TagError, payload.Marshal()); writeErr != nil {
		return writeErr
	}
	return m.writer.WriteFrame(wire.TagEnd, nil)
}

// asTerminalFailure reports whether err is (or wraps) a *durerr.TerminalFailure,
// writing it to *out on success.
func asTerminalFailure(err error, out **durerr.TerminalFailure) bool {
	return errors.As(err, out)
}
