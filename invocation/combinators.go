package invocation

import (
	"context"
	"reflect"

	"github.com/flowcraft/durable/journal"
)

// All blocks until every Awaitable in futures has resolved, or ctx is
// cancelled, returning the first failure encountered in futures' order
// (spec.md §4.h: "resolves only when every input resolves, propagating the
// first failure"). Every future is waited on regardless of earlier
// failures, so a fast-failing future never strands a still-pending sibling
// unobserved.
func All(ctx context.Context, futures []*journal.Awaitable) error {
	var results = make([]error, len(futures))
	for i, f := range futures {
		_, results[i] = f.Wait(ctx)
	}
	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}

// Race blocks until the first Awaitable in futures resolves, or ctx is
// cancelled, and returns its index (spec.md §4.h). Already-resolved
// futures win immediately without allocating a goroutine per child.
func Race(ctx context.Context, futures []*journal.Awaitable) (int, error) {
	if len(futures) == 0 {
		<-ctx.Done()
		return -1, ctx.Err()
	}
	for i, f := range futures {
		if _, _, _, _, _, ok := f.Peek(); ok {
			return i, nil
		}
	}

	var cases = make([]reflect.SelectCase, 0, len(futures)+1)
	for _, f := range futures {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(f.Done())})
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	chosen, _, _ := reflect.Select(cases)
	if chosen == len(futures) {
		return -1, ctx.Err()
	}
	return chosen, nil
}
