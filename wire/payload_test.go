package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartPayloadRoundTrip(t *testing.T) {
	var want = StartPayload{
		Id:           []byte{0xde, 0xad, 0xbe, 0xef},
		DebugId:      "inv-1",
		KnownEntries: 6,
		Key:          "object-key",
		RandomSeed:   123456789,
		State: []StateEntry{
			{Key: []byte("count"), Value: []byte("42")},
			{Key: []byte("name"), Value: nil},
		},
	}

	got, err := UnmarshalStart(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Id, got.Id)
	require.Equal(t, want.DebugId, got.DebugId)
	require.Equal(t, want.KnownEntries, got.KnownEntries)
	require.Equal(t, want.Key, got.Key)
	require.Equal(t, want.RandomSeed, got.RandomSeed)
	require.Len(t, got.State, 2)
	require.Equal(t, want.State[0].Key, got.State[0].Key)
	require.Equal(t, want.State[0].Value, got.State[0].Value)
}

func TestValuePayloadRoundTrip(t *testing.T) {
	var want = ValuePayload{
		Content: []byte(`{"hello":"world"}`),
		Headers: map[string]string{"content-type": "application/json"},
	}
	got, err := UnmarshalValue(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Content, got.Content)
	require.Equal(t, want.Headers, got.Headers)
}

func TestErrorPayloadRoundTrip(t *testing.T) {
	var want = ErrorPayload{Code: 409, Message: "conflict", Stacktrace: "at foo()"}
	got, err := UnmarshalError(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want, *got)
}

func TestSuspensionPayloadRoundTrip(t *testing.T) {
	var want = SuspensionPayload{Indexes: []uint32{2, 5, 9}}
	got, err := UnmarshalSuspension(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Indexes, got.Indexes)
}

func TestCommandPayloadRoundTripWithRetry(t *testing.T) {
	var want = CommandPayload{
		Index:   3,
		Name:    "step1",
		Value:   []byte("result"),
		Service: "com.example.Svc",
		Key:     "k1",
		Handler: "DoThing",
		DelayMs: 1500,
		Retry: &RetryOverride{
			MaxAttempts:   5,
			InitialDelay:  100,
			BackoffFactor: 2.5,
			MaxDelay:      10_000,
			MaxElapsed:    60_000,
		},
	}
	got, err := UnmarshalCommand(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Index, got.Index)
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.Value, got.Value)
	require.Equal(t, want.Service, got.Service)
	require.Equal(t, want.Key, got.Key)
	require.Equal(t, want.Handler, got.Handler)
	require.Equal(t, want.DelayMs, got.DelayMs)
	require.Equal(t, *want.Retry, *got.Retry)
}

func TestCommandPayloadRoundTripMinimal(t *testing.T) {
	var want = CommandPayload{Index: 0, Name: "step1", Value: []byte("result")}
	got, err := UnmarshalCommand(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Index, got.Index)
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.Value, got.Value)
	require.Nil(t, got.Retry)
}

func TestCommandPayloadRoundTripFailed(t *testing.T) {
	var want = CommandPayload{
		Index:   7,
		Name:    "step1",
		Failed:  true,
		Code:    500,
		Message: "closure exhausted its retry budget",
	}
	got, err := UnmarshalCommand(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Index, got.Index)
	require.Equal(t, want.Name, got.Name)
	require.True(t, got.Failed)
	require.Equal(t, want.Code, got.Code)
	require.Equal(t, want.Message, got.Message)
}

func TestCommandPayloadRoundTripCompleteFlag(t *testing.T) {
	var want = CommandPayload{Index: 2, Name: "call-x", Complete: true, Value: []byte("r")}
	got, err := UnmarshalCommand(want.Marshal())
	require.NoError(t, err)
	require.True(t, got.Complete)

	var pending = CommandPayload{Index: 3, Name: "call-y"}
	got, err = UnmarshalCommand(pending.Marshal())
	require.NoError(t, err)
	require.False(t, got.Complete)
}

func TestCompletionPayloadRoundTrip(t *testing.T) {
	var success = CompletionPayload{Index: 1, Success: true, Value: []byte("42")}
	got, err := UnmarshalCompletion(success.Marshal())
	require.NoError(t, err)
	require.Equal(t, success, *got)

	var failure = CompletionPayload{Index: 2, Success: false, Code: 409, Message: "conflict"}
	got, err = UnmarshalCompletion(failure.Marshal())
	require.NoError(t, err)
	require.Equal(t, failure, *got)
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	// A well-formed varint field with a number this codec doesn't define
	// must be silently skipped, not cause a decode error.
	var want = ErrorPayload{Code: 1, Message: "m"}
	var b = want.Marshal()

	// Append an unknown field (number 10, varint type, value 7). Field
	// numbers above 15 need a multi-byte tag varint, so keep this small
	// enough to stay a single byte.
	b = append(b, 10<<3|0, 7)

	got, err := UnmarshalError(b)
	require.NoError(t, err)
	require.Equal(t, want, *got)
}
