package invocation

import (
	"context"
	"encoding/json"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/wire"
)

// GetState returns the value for key, consulting the eager-state cache
// first (spec.md §4.d) and only falling back to a wire round-trip on a
// genuine cache miss.
func (m *Machine) GetState(ctx context.Context, key string) ([]byte, error) {
	if hit := m.Cache.Get(key); hit.Hit {
		return hit.Value, nil
	}

	var awaitable, err = m.awaitEntry(wire.EntryGetState, key, &wire.CommandPayload{})
	if err != nil {
		return nil, err
	}
	value, err := awaitable.Wait(ctx)
	if err != nil {
		return nil, err
	}
	m.Cache.Observe(key, value)
	return value, nil
}

// SetState writes key locally and durably. Sets never suspend: the
// supervisor is told fire-and-forget, matching spec.md §4.d.
func (m *Machine) SetState(key string, value []byte) error {
	m.Cache.Set(key, value)
	_, err := m.completeLocal(wire.EntrySetState, key, value, &wire.CommandPayload{Value: value})
	return err
}

// ClearState removes key locally and durably.
func (m *Machine) ClearState(key string) error {
	m.Cache.Clear(key)
	_, err := m.completeLocal(wire.EntryClearState, key, nil, &wire.CommandPayload{})
	return err
}

// ClearAllState removes every key locally and durably.
func (m *Machine) ClearAllState() error {
	m.Cache.ClearAll()
	_, err := m.completeLocal(wire.EntryClearAllState, "", nil, &wire.CommandPayload{})
	return err
}

// stateKeysPayload is the wire encoding of a GetStateKeys completion's
// value: a JSON object whose "keys" field is an array of key names
// ({"keys": [...]}). The eager-state cache's invariants
// (spec.md §4.d) never need anything richer than that.
type stateKeysPayload struct {
	Keys []string `json:"keys"`
}

// StateKeys returns every known state key, consulting the cache first.
func (m *Machine) StateKeys(ctx context.Context) ([]string, error) {
	if keys, hit := m.Cache.Keys(); hit {
		return keys, nil
	}

	var awaitable, err = m.awaitEntry(wire.EntryGetStateKeys, "", &wire.CommandPayload{})
	if err != nil {
		return nil, err
	}
	raw, err := awaitable.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var decoded stateKeysPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, durerr.WrapProtocolError(err, "decoding GetStateKeys completion")
	}
	m.Cache.ObserveKeys(decoded.Keys, nil)
	return decoded.Keys, nil
}
