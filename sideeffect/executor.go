// Package sideeffect implements the durable Run step (spec.md §4.e): a
// closure executed at most once durably, with an independent, purely local
// retry loop around transient failures that never themselves touch the
// journal. Only the closure's final outcome — success or exhausted-retry
// terminal failure — is ever recorded.
package sideeffect

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/internal/metrics"
	"github.com/flowcraft/durable/internal/ops"
	"github.com/flowcraft/durable/journal"
	"github.com/flowcraft/durable/wire"
)

// Emitter sends a journal command frame onto the wire. The invocation state
// machine supplies the concrete implementation (a *wire.Writer wrapper); the
// executor itself never touches a wire.Writer directly so it stays testable
// without a live connection.
type Emitter interface {
	EmitCommand(kind wire.EntryKind, payload *wire.CommandPayload) error
}

// Executor runs Run steps against one invocation's journal. recordMu
// serializes the append-then-emit pair across concurrent RunAsync
// completions (each resolves from its own goroutine) so that wire emission
// order always matches journal order, per spec.md §5's ordering guarantee;
// the synchronous Run path only ever runs on the single handler goroutine,
// but takes the same lock for uniformity.
type Executor struct {
	Journal *journal.Journal
	Emit    Emitter
	Metrics *metrics.Metrics
	Log     ops.Publisher

	recordMu sync.Mutex
}

// New returns an Executor. log may be nil, in which case Run logs nothing.
func New(j *journal.Journal, emit Emitter, m *metrics.Metrics, log ops.Publisher) *Executor {
	return &Executor{Journal: j, Emit: emit, Metrics: m, Log: log}
}

// recordOutcome appends entry to the journal and emits its matching command
// frame as one atomic unit, so concurrent callers (plain Run on the handler
// goroutine, RunAsync completions on background goroutines) never interleave
// an append from one with an emit from another.
func (e *Executor) recordOutcome(entry journal.Entry, cmd *wire.CommandPayload) error {
	e.recordMu.Lock()
	defer e.recordMu.Unlock()

	e.Journal.Append(entry)
	if e.Emit == nil {
		return nil
	}
	return e.Emit.EmitCommand(entry.Kind, cmd)
}

// Run executes fn durably under the given name (spec.md §4.e). During
// replay it returns the journaled outcome without invoking fn at all; during
// processing it runs fn, retrying RetryableFailure per policy, then journals
// and emits exactly one command frame recording the final outcome. If ctx is
// cancelled and fn or the backoff sleep returns ctx's error, that error is
// returned as is and nothing is journaled.
//
// fn's result is marshalled with encoding/json to become the journaled
// value, so T must be JSON-serializable.
func Run[T any](ctx context.Context, e *Executor, name string, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if e.Journal.IsReplaying() {
		entry, _, ok := e.Journal.Advance()
		if !ok {
			return zero, durerr.NewProtocolError("Run: replay cursor exhausted known entries")
		}
		if entry.Kind != wire.EntryRun || entry.Name != name {
			return zero, durerr.WrapProtocolError(nil, "Run: journaled entry kind/name mismatch for step "+name)
		}
		if entry.Failed {
			return zero, durerr.NewTerminalFailure(entry.Code, entry.Message)
		}
		var v T
		if len(entry.Result) > 0 {
			if err := json.Unmarshal(entry.Result, &v); err != nil {
				return zero, durerr.WrapProtocolError(err, "Run: decoding replayed result for step "+name)
			}
		}
		return v, nil
	}

	v, runErr := runWithRetry(ctx, e, policy, name, fn)
	if runErr != nil {
		if ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
			// Cancellation is not a terminal outcome: nothing is journaled
			// and the context error is returned unchanged.
			return zero, runErr
		}
		var terminal *durerr.TerminalFailure
		if !errors.As(runErr, &terminal) {
			terminal = durerr.NewTerminalFailure(1, runErr.Error())
		}

		_ = e.recordOutcome(journal.FailedEntry(wire.EntryRun, name, terminal.Code, terminal.Message), &wire.CommandPayload{
			Name:    name,
			Failed:  true,
			Code:    terminal.Code,
			Message: terminal.Message,
		})
		if e.Log != nil {
			ops.Log(e.Log, ops.LevelWarn, "run step failed terminally", "step", name, "code", terminal.Code)
		}
		return zero, terminal
	}

	result, err := json.Marshal(v)
	if err != nil {
		return zero, durerr.WrapProtocolError(err, "Run: encoding result for step "+name)
	}

	if err := e.recordOutcome(journal.Completed(wire.EntryRun, name, result), &wire.CommandPayload{Name: name, Value: result}); err != nil {
		return zero, durerr.WrapProtocolError(err, "Run: emitting command frame for step "+name)
	}
	return v, nil
}

// RunAsync is the non-blocking sibling of Run (spec.md §4.h's
// `run_async(name, closure) → awaitable`): it returns an Awaitable
// immediately instead of blocking the caller on fn's outcome.
//
// During replay, the step is always already complete — RunAsync never
// round-trips over the wire to resolve, so a journaled entry for it is
// always a finished outcome — and the resolved Awaitable is returned
// without spawning anything. During processing, fn runs on its own
// goroutine (with the same local retry loop Run uses); when it finishes,
// its outcome is journaled and emitted exactly once, and the returned
// Awaitable is resolved directly (no registry round trip, since this
// invocation is both the producer and the only possible consumer of its
// own RunAsync result).
func RunAsync[T any](ctx context.Context, e *Executor, name string, policy RetryPolicy, fn func(context.Context) (T, error)) (*journal.Awaitable, error) {
	if e.Journal.IsReplaying() {
		entry, _, ok := e.Journal.Advance()
		if !ok {
			return nil, durerr.NewProtocolError("RunAsync: replay cursor exhausted known entries")
		}
		if entry.Kind != wire.EntryRun || entry.Name != name {
			return nil, durerr.WrapProtocolError(nil, "RunAsync: journaled entry kind/name mismatch for step "+name)
		}
		return journal.NewResolvedAwaitable(entry.Result, entry.Failed, entry.Code, entry.Message), nil
	}

	var a = journal.NewPendingAwaitable()
	go func() {
		v, runErr := runWithRetry(ctx, e, policy, name, fn)
		if runErr != nil {
			var terminal *durerr.TerminalFailure
			if !errors.As(runErr, &terminal) {
				terminal = durerr.NewTerminalFailure(1, runErr.Error())
			}
			_ = e.recordOutcome(journal.FailedEntry(wire.EntryRun, name, terminal.Code, terminal.Message), &wire.CommandPayload{
				Name:    name,
				Failed:  true,
				Code:    terminal.Code,
				Message: terminal.Message,
			})
			if e.Log != nil {
				ops.Log(e.Log, ops.LevelWarn, "async run step failed terminally", "step", name, "code", terminal.Code)
			}
			a.ResolveFailure(terminal.Code, terminal.Message)
			return
		}

		result, err := json.Marshal(v)
		if err != nil {
			var terminal = durerr.NewTerminalFailure(1, err.Error())
			a.ResolveFailure(terminal.Code, terminal.Message)
			return
		}
		_ = e.recordOutcome(journal.Completed(wire.EntryRun, name, result), &wire.CommandPayload{Name: name, Value: result})
		a.ResolveSuccess(result)
	}()
	return a, nil
}

// runWithRetry is the purely local retry loop: it never touches the
// journal, so a process crash mid-retry simply replays from the start of
// the step with no partial state to reconcile.
func runWithRetry[T any](ctx context.Context, e *Executor, policy RetryPolicy, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var attempt int
	var started = time.Now()

	for {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		var retryable *durerr.RetryableFailure
		if !errors.As(err, &retryable) {
			return zero, err
		}

		attempt++
		if policy.exhausted(attempt, time.Since(started)) {
			return zero, retryable.Cause
		}

		if e.Metrics != nil {
			e.Metrics.IncRunRetries()
		}
		if e.Log != nil {
			ops.Log(e.Log, ops.LevelDebug, "run step retrying", "step", name, "attempt", attempt, "cause", retryable.Cause)
		}

		var timer = time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
