package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/internal/ops"
	"github.com/flowcraft/durable/invocation"
	"github.com/flowcraft/durable/sideeffect"
	"github.com/flowcraft/durable/wire"
)

type nopPublisher struct{}

func (nopPublisher) PublishLog(ops.Level, string, map[string]interface{}) {}
func (nopPublisher) MinLevel() ops.Level                                  { return ops.LevelError }

func newBootstrapStream(t *testing.T, known uint32, input []byte) *bytes.Buffer {
	t.Helper()
	var buf = new(bytes.Buffer)
	var w = wire.NewWriter(buf)
	var start = wire.StartPayload{Id: []byte{9}, DebugId: "d", KnownEntries: known, RandomSeed: 7}
	require.NoError(t, w.WriteFrame(wire.TagStart, start.Marshal()))
	var value = wire.ValuePayload{Content: input}
	require.NoError(t, w.WriteFrame(wire.TagInput, value.Marshal()))
	return buf
}

func TestContextRunExecutesSideEffectAndProducesOutput(t *testing.T) {
	var in = newBootstrapStream(t, 1, []byte("x"))
	var out = new(bytes.Buffer)

	var m = invocation.New(in, out, nil, nopPublisher{})
	handlerInput, err := m.Start(context.Background())
	require.NoError(t, err)

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = m.Run(ctx, func(gctx context.Context, mm *invocation.Machine, hin invocation.HandlerInput) ([]byte, error) {
		var c = New(gctx, mm)
		result, err := Run(c, "step1", sideeffect.DefaultRetryPolicy, func(context.Context) (string, error) {
			return "computed", nil
		})
		if err != nil {
			return nil, err
		}
		return []byte(result), nil
	}, handlerInput)
	require.NoError(t, err)

	var r = wire.NewReader(out)
	tag, payload, err := r.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, wire.CommandTag(wire.EntryRun), tag)
	cmd, err := wire.UnmarshalCommand(payload)
	require.NoError(t, err)
	var decoded string
	require.NoError(t, json.Unmarshal(cmd.Value, &decoded))
	require.Equal(t, "computed", decoded)

	tag, _, err = r.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, wire.TagOutput, tag)
}

// Resolving an awakeable is itself a fire-and-forget durable command: it
// never locally resolves the original waiter's Future, since the
// supervisor is the one that routes the actual completion back over the
// wire (spec.md §4.f, §5). A handler that creates and immediately resolves
// its own awakeable without a completion ever arriving therefore suspends.
func TestContextAwakeableResolveIsFireAndForgetAndHandlerSuspends(t *testing.T) {
	var in = newBootstrapStream(t, 1, nil)
	var out = new(bytes.Buffer)

	var m = invocation.New(in, out, nil, nopPublisher{})
	handlerInput, err := m.Start(context.Background())
	require.NoError(t, err)

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var awakeableID string
	err = m.Run(ctx, func(gctx context.Context, mm *invocation.Machine, _ invocation.HandlerInput) ([]byte, error) {
		var c = New(gctx, mm)
		id, fut, err := c.Awakeable()
		if err != nil {
			return nil, err
		}
		awakeableID = id
		require.NoError(t, c.ResolveAwakeable(id, []byte("signalled")))
		return fut.Await()
	}, handlerInput)
	var suspended *durerr.Suspended
	require.ErrorAs(t, err, &suspended)
	require.NotEmpty(t, awakeableID)

	var r = wire.NewReader(out)
	var tags []wire.Tag
	for {
		tag, _, err := r.ReadFrame()
		if err != nil {
			break
		}
		tags = append(tags, tag)
	}
	require.Contains(t, tags, wire.CommandTag(wire.EntryAwakeable))
	require.Contains(t, tags, wire.CommandTag(wire.EntryCompleteAwakeable))
	require.Contains(t, tags, wire.TagSuspension)
	require.NotContains(t, tags, wire.TagOutput)
}

// Two RunAsync steps started concurrently, joined with All, must both be
// journaled (and so both emit a Run command frame) before Output is ever
// sent — regardless of which one's background goroutine happens to finish
// first.
func TestContextRunAsyncAndAllWaitForBothStepsBeforeOutput(t *testing.T) {
	var in = newBootstrapStream(t, 1, nil)
	var out = new(bytes.Buffer)

	var m = invocation.New(in, out, nil, nopPublisher{})
	handlerInput, err := m.Start(context.Background())
	require.NoError(t, err)

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = m.Run(ctx, func(gctx context.Context, mm *invocation.Machine, _ invocation.HandlerInput) ([]byte, error) {
		var c = New(gctx, mm)

		slow, err := RunAsync(c, "slow-step", sideeffect.DefaultRetryPolicy, func(context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "slow", nil
		})
		if err != nil {
			return nil, err
		}
		fast, err := RunAsync(c, "fast-step", sideeffect.DefaultRetryPolicy, func(context.Context) (string, error) {
			return "fast", nil
		})
		if err != nil {
			return nil, err
		}

		if err := All([]*Future{slow.Future(), fast.Future()}); err != nil {
			return nil, err
		}

		slowVal, err := slow.Await()
		if err != nil {
			return nil, err
		}
		fastVal, err := fast.Await()
		if err != nil {
			return nil, err
		}
		return []byte(slowVal + "-" + fastVal), nil
	}, handlerInput)
	require.NoError(t, err)

	var r = wire.NewReader(out)
	var tags []wire.Tag
	for {
		tag, _, err := r.ReadFrame()
		if err != nil {
			break
		}
		tags = append(tags, tag)
	}
	require.Contains(t, tags, wire.CommandTag(wire.EntryRun))
	var runCount int
	for _, tag := range tags {
		if tag == wire.CommandTag(wire.EntryRun) {
			runCount++
		}
	}
	require.Equal(t, 2, runCount)
	require.GreaterOrEqual(t, len(tags), 2)
	require.Equal(t, wire.TagEnd, tags[len(tags)-1])
	require.Equal(t, wire.TagOutput, tags[len(tags)-2])
}
