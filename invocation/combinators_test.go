package invocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcraft/durable/journal"
)

func TestAllWaitsForEveryFutureEvenAfterAnEarlyFailure(t *testing.T) {
	var reg = journal.NewRegistry()
	var fast, err1 = reg.Register(0) // will fail almost immediately
	require.NoError(t, err1)
	var slow, err2 = reg.Register(1) // resolves only after a delay
	require.NoError(t, err2)

	var slowResolved = make(chan struct{})
	go func() {
		reg.TryFail(0, 9, "boom")
	}()
	go func() {
		time.Sleep(20 * time.Millisecond)
		reg.TryComplete(1, []byte("done"))
		close(slowResolved)
	}()

	var err = All(context.Background(), []*journal.Awaitable{fast, slow})
	require.Error(t, err)

	// All must not have returned before the slow future actually resolved.
	select {
	case <-slowResolved:
	default:
		t.Fatal("All returned before the still-pending future resolved")
	}
	_, failed, code, _, _, ok := slow.Peek()
	require.True(t, ok)
	require.False(t, failed)
	require.Equal(t, uint32(0), code)
}

func TestAllPropagatesTheFirstFailureInInputOrder(t *testing.T) {
	var reg = journal.NewRegistry()
	var first, _ = reg.Register(0)
	var second, _ = reg.Register(1)

	reg.TryFail(0, 1, "first failure")
	reg.TryFail(1, 2, "second failure")

	var err = All(context.Background(), []*journal.Awaitable{first, second})
	require.Error(t, err)
	require.Contains(t, err.Error(), "first failure")
}

func TestAllSucceedsWhenEveryFutureResolvesSuccessfully(t *testing.T) {
	var reg = journal.NewRegistry()
	var a, _ = reg.Register(0)
	var b, _ = reg.Register(1)

	reg.TryComplete(0, []byte("a"))
	reg.TryComplete(1, []byte("b"))

	require.NoError(t, All(context.Background(), []*journal.Awaitable{a, b}))
}

func TestRaceReturnsTheIndexOfTheFirstToResolve(t *testing.T) {
	var reg = journal.NewRegistry()
	var a, _ = reg.Register(0)
	var b, _ = reg.Register(1)

	reg.TryComplete(1, []byte("second wins"))

	idx, err := Race(context.Background(), []*journal.Awaitable{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestRaceReturnsAnAlreadyResolvedFutureImmediately(t *testing.T) {
	var a = journal.NewResolvedAwaitable([]byte("already done"), false, 0, "")
	var b = journal.NewPendingAwaitable()

	var ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	idx, err := Race(ctx, []*journal.Awaitable{a, b})
	require.NoError(t, err)
	require.Equal(t, 0, idx)
}
