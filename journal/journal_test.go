package journal

import (
	"testing"

	"github.com/flowcraft/durable/wire"
	"github.com/stretchr/testify/require"
)

func TestAppendYieldsCurrentCountAsIndex(t *testing.T) {
	var j = New(0)
	var i0 = j.Append(Completed(wire.EntryRun, "s0", []byte("r0")))
	var i1 = j.Append(Completed(wire.EntryRun, "s1", []byte("r1")))
	require.Equal(t, 0, i0)
	require.Equal(t, 1, i1)
	require.Equal(t, 2, j.Count())
}

func TestEntryMonotonicity(t *testing.T) {
	var j = New(0)
	var prev = j.Count()
	for i := 0; i < 10; i++ {
		j.Append(Pending(wire.EntryCall, ""))
		require.Greater(t, j.Count(), prev)
		prev = j.Count()
	}
}

func TestIsReplayingUntilCursorCatchesUp(t *testing.T) {
	var j = New(0)
	j.Initialize([]Entry{
		Completed(wire.EntryInput, "", nil),
		Completed(wire.EntryRun, "s0", []byte("r0")),
	})
	require.True(t, j.IsReplaying())

	_, _, ok := j.Advance()
	require.True(t, ok)
	require.True(t, j.IsReplaying())

	_, _, ok = j.Advance()
	require.True(t, ok)
	require.False(t, j.IsReplaying())

	_, _, ok = j.Advance()
	require.False(t, ok)
}

func TestApplyCompletionUpdatesPendingEntry(t *testing.T) {
	var j = New(0)
	var idx = j.Append(Pending(wire.EntryCall, ""))

	ok := j.ApplyCompletion(idx, []byte("r"), false, 0, "")
	require.True(t, ok)

	e, found := j.At(idx)
	require.True(t, found)
	require.True(t, e.Complete)
	require.False(t, e.Failed)
	require.Equal(t, []byte("r"), e.Result)
}
