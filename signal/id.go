// Package signal implements the awakeable and durable-promise primitives
// of spec.md §4.f: single-shot external-signal rendezvous scoped to one
// invocation, and workflow-scoped durable promises that outlive any single
// invocation.
package signal

import (
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/flowcraft/durable/durerr"
)

// AwakeablePrefix is the literal token every awakeable id starts with
// (spec.md §3, §6): "sign_1" ∥ base64url(raw_invocation_id ∥ big_endian_u32(signal_index)).
const AwakeablePrefix = "sign_1"

// EncodeAwakeableID builds the wire-visible awakeable id for the given
// invocation and signal index.
func EncodeAwakeableID(invocationID []byte, index uint32) string {
	var buf = make([]byte, len(invocationID)+4)
	copy(buf, invocationID)
	binary.BigEndian.PutUint32(buf[len(invocationID):], index)
	return AwakeablePrefix + base64.RawURLEncoding.EncodeToString(buf)
}

// DecodeAwakeableID recovers the (invocation raw id, signal index) pair
// from an awakeable id, per spec.md §8 invariant 6 ("decoding an emitted id
// yields exactly the original pair").
func DecodeAwakeableID(id string) (invocationID []byte, index uint32, err error) {
	var rest, ok = strings.CutPrefix(id, AwakeablePrefix)
	if !ok {
		return nil, 0, durerr.NewProtocolError("awakeable id missing \"" + AwakeablePrefix + "\" prefix")
	}
	buf, decodeErr := base64.RawURLEncoding.DecodeString(rest)
	if decodeErr != nil {
		return nil, 0, durerr.WrapProtocolError(decodeErr, "decoding awakeable id")
	}
	if len(buf) < 4 {
		return nil, 0, durerr.NewProtocolError("awakeable id too short to carry a signal index")
	}
	var split = len(buf) - 4
	return buf[:split], binary.BigEndian.Uint32(buf[split:]), nil
}
