package invocation

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/internal/metrics"
	"github.com/flowcraft/durable/internal/ops"
	"github.com/flowcraft/durable/wire"
)

type nopPublisher struct{}

func (nopPublisher) PublishLog(ops.Level, string, map[string]interface{}) {}
func (nopPublisher) MinLevel() ops.Level                                  { return ops.LevelError }

func writeFrame(t *testing.T, buf *bytes.Buffer, tag wire.Tag, payload []byte) {
	t.Helper()
	var w = wire.NewWriter(buf)
	require.NoError(t, w.WriteFrame(tag, payload))
}

func readFrames(t *testing.T, buf *bytes.Buffer) []wire.Tag {
	t.Helper()
	var r = wire.NewReader(buf)
	var tags []wire.Tag
	for {
		tag, _, err := r.ReadFrame()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return tags
		}
		tags = append(tags, tag)
	}
}

func newBootstrapStream(t *testing.T, known uint32, input []byte) *bytes.Buffer {
	t.Helper()
	var buf = new(bytes.Buffer)
	var start = wire.StartPayload{
		Id:           []byte{1, 2, 3, 4},
		DebugId:      "inv-test",
		KnownEntries: known,
		Key:          "k",
		RandomSeed:   42,
	}
	writeFrame(t, buf, wire.TagStart, start.Marshal())
	var value = wire.ValuePayload{Content: input}
	writeFrame(t, buf, wire.TagInput, value.Marshal())
	return buf
}

func TestNoopHandlerEmitsOutputAndEnd(t *testing.T) {
	var in = newBootstrapStream(t, 1, []byte("hello"))
	var out = new(bytes.Buffer)

	var m = New(in, out, nil, nopPublisher{})
	handlerInput, err := m.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), handlerInput.Content)

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = m.Run(ctx, func(_ context.Context, _ *Machine, in HandlerInput) ([]byte, error) {
		return in.Content, nil
	}, handlerInput)
	require.NoError(t, err)

	var tags = readFrames(t, out)
	require.Equal(t, []wire.Tag{wire.TagOutput, wire.TagEnd}, tags)
}

func TestHandlerSuspendsWhenCompletionNeverArrives(t *testing.T) {
	var in = newBootstrapStream(t, 1, []byte("hi"))
	var out = new(bytes.Buffer)

	var m = New(in, out, nil, nopPublisher{})
	handlerInput, err := m.Start(context.Background())
	require.NoError(t, err)

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = m.Run(ctx, func(ctx context.Context, m *Machine, _ HandlerInput) ([]byte, error) {
		return m.Call(ctx, "call-1", CallRequest{Service: "svc", Handler: "do"})
	}, handlerInput)
	var suspended *durerr.Suspended
	require.ErrorAs(t, err, &suspended)
	require.Equal(t, []uint32{1}, suspended.AwaitingIndexes)

	var tags = readFrames(t, out)
	require.Contains(t, tags, wire.CommandTag(wire.EntryCall))
	require.Contains(t, tags, wire.TagSuspension)
	require.NotContains(t, tags, wire.TagOutput)
	require.NotContains(t, tags, wire.TagEnd)
}

func TestSetStateCachesLocallyAndGetStateHitsCache(t *testing.T) {
	var in = newBootstrapStream(t, 1, []byte("hi"))
	var out = new(bytes.Buffer)

	var m = New(in, out, nil, nopPublisher{})
	handlerInput, err := m.Start(context.Background())
	require.NoError(t, err)

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var sawSet bool
	err = m.Run(ctx, func(_ context.Context, m *Machine, _ HandlerInput) ([]byte, error) {
		sawSet = true
		require.NoError(t, m.SetState("k", []byte("v")))
		got, err := m.GetState(ctx, "k")
		require.NoError(t, err)
		return got, nil
	}, handlerInput)
	require.NoError(t, err)
	require.True(t, sawSet)

	var tags = readFrames(t, out)
	require.Equal(t, []wire.Tag{wire.CommandTag(wire.EntrySetState), wire.TagOutput, wire.TagEnd}, tags)
}

func TestCallCompletionObservesCompletionLatency(t *testing.T) {
	var in = newBootstrapStream(t, 1, []byte("hi"))
	// The Call below is the first entry appended after Input (index 0), so
	// its completion targets index 1. Pre-loading it lets the reader task
	// observe it without a second connection.
	var completion = wire.CompletionPayload{Index: 1, Success: true, Value: []byte("call result")}
	writeFrame(t, in, wire.TagCompletionSuccess, completion.Marshal())

	var out = new(bytes.Buffer)
	var m = metrics.New(nil)
	var mach = New(in, out, m, nopPublisher{})
	handlerInput, err := mach.Start(context.Background())
	require.NoError(t, err)

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = mach.Run(ctx, func(ctx context.Context, mm *Machine, _ HandlerInput) ([]byte, error) {
		return mm.Call(ctx, "call-1", CallRequest{Service: "svc", Handler: "do"})
	}, handlerInput)
	require.NoError(t, err)

	var tags = readFrames(t, out)
	require.Contains(t, tags, wire.TagOutput)
	require.Equal(t, uint64(1), testutil.CollectAndCount(m.CompletionLatency))
}
