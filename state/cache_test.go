package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetThenGetObservesValue(t *testing.T) {
	var c = New(nil)
	c.Set("count", []byte("43"))
	var got = c.Get("count")
	require.True(t, got.Hit)
	require.Equal(t, []byte("43"), got.Value)
}

func TestClearWithoutInterveningSetReturnsDefault(t *testing.T) {
	var c = New(map[string][]byte{"count": []byte("42")})
	c.Clear("count")
	var got = c.Get("count")
	require.True(t, got.Hit)
	require.Nil(t, got.Value)
}

func TestClearThenSetIsObservedByLaterGet(t *testing.T) {
	var c = New(map[string][]byte{"count": []byte("42")})
	c.Clear("count")
	c.Set("count", []byte("7"))
	var got = c.Get("count")
	require.True(t, got.Hit)
	require.Equal(t, []byte("7"), got.Value)
}

func TestClearAllWithoutInterveningSetReturnsDefault(t *testing.T) {
	var c = New(map[string][]byte{"count": []byte("42"), "name": []byte("bob")})
	c.ClearAll()

	require.True(t, c.Get("count").Hit)
	require.Nil(t, c.Get("count").Value)
	require.True(t, c.Get("name").Hit)
	require.Nil(t, c.Get("name").Value)
}

func TestClearAllThenSetIsObservedByLaterGet(t *testing.T) {
	var c = New(map[string][]byte{"count": []byte("42")})
	c.ClearAll()
	c.Set("count", []byte("1"))

	var got = c.Get("count")
	require.True(t, got.Hit)
	require.Equal(t, []byte("1"), got.Value)
}

func TestSeededStateIsServedWithoutWireRoundTrip(t *testing.T) {
	var c = New(map[string][]byte{"count": []byte("42")})
	var got = c.Get("count")
	require.True(t, got.Hit, "seeded keys must be answerable from the eager cache")
	require.Equal(t, []byte("42"), got.Value)
}

func TestUnknownKeyIsACacheMiss(t *testing.T) {
	var c = New(map[string][]byte{"count": []byte("42")})
	var got = c.Get("other")
	require.False(t, got.Hit)
}

func TestObserveCachesWireResultForSubsequentGets(t *testing.T) {
	var c = New(nil)
	require.False(t, c.Get("k").Hit)

	c.Observe("k", []byte("v"))

	var got = c.Get("k")
	require.True(t, got.Hit)
	require.Equal(t, []byte("v"), got.Value)
}

func TestKeysRequireAWireRoundTripBeforeFirstAnsweredLocally(t *testing.T) {
	var c = New(map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	_, hit := c.Keys()
	require.False(t, hit, "an eager snapshot may be partial, so StateKeys needs at least one wire round-trip")

	c.ObserveKeys([]string{"a", "b"}, map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	keys, hit := c.Keys()
	require.True(t, hit)
	require.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestClearAllEstablishesKeysAreKnownToBeEmpty(t *testing.T) {
	var c = New(map[string][]byte{"a": []byte("1")})
	c.ClearAll()
	keys, hit := c.Keys()
	require.True(t, hit)
	require.Empty(t, keys)

	c.Set("b", []byte("2"))
	keys, hit = c.Keys()
	require.True(t, hit)
	require.ElementsMatch(t, []string{"b"}, keys)
}
