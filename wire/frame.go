package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// maxFrameLength bounds a single frame's payload, guarding against a
// corrupt length prefix turning a malformed frame into an unbounded
// allocation.
const maxFrameLength = 64 << 20 // 64MiB

// ErrMalformedFrame is wrapped by every frame-level decode failure; it is
// always a ProtocolError-class condition for the caller.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// Reader reads length-prefixed, tagged frames from an underlying stream.
// It is not safe for concurrent use: the invocation state machine's reader
// task is the sole owner of a Reader.
type Reader struct {
	r   io.Reader
	buf []byte // reused scratch buffer for frame headers and payloads
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: make([]byte, 0, 4096)}
}

// ReadFrame reads the next frame's tag and payload. The returned payload
// slice aliases the Reader's internal buffer and is only valid until the
// next call to ReadFrame: callers that need to retain it must copy.
//
// io.EOF is returned verbatim when the stream ends cleanly between frames;
// any other error is wrapped and should be treated as a fatal ProtocolError
// by the caller.
func (r *Reader) ReadFrame() (Tag, []byte, error) {
	var header [6]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Wrap(ErrMalformedFrame, err.Error())
	}

	var tag = Tag(binary.BigEndian.Uint16(header[0:2]))
	var length = binary.BigEndian.Uint32(header[2:6])
	if length > maxFrameLength {
		return 0, nil, errors.Wrapf(ErrMalformedFrame, "frame length %d exceeds maximum %d", length, maxFrameLength)
	}

	if cap(r.buf) < int(length) {
		r.buf = make([]byte, length)
	} else {
		r.buf = r.buf[:length]
	}
	if length > 0 {
		if _, err := io.ReadFull(r.r, r.buf); err != nil {
			return 0, nil, errors.Wrap(ErrMalformedFrame, err.Error())
		}
	}
	return tag, r.buf, nil
}

// Writer writes length-prefixed, tagged frames to an underlying stream.
// Writer is safe for concurrent use: an internal mutex makes each
// WriteFrame call atomic, which is what lets the handler task's command
// and Output/Error/End emission and the reader task's Suspension frame
// share one Writer without interleaving partial frames (spec.md §5).
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes one frame. Held lock time is one frame.
func (w *Writer) WriteFrame(tag Tag, payload []byte) error {
	if len(payload) > maxFrameLength {
		return fmt.Errorf("wire: payload length %d exceeds maximum %d", len(payload), maxFrameLength)
	}

	var header [6]byte
	binary.BigEndian.PutUint16(header[0:2], uint16(tag))
	binary.BigEndian.PutUint32(header[2:6], uint32(len(payload)))

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(header[:]); err != nil {
		return errors.Wrap(err, "writing frame header")
	}
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return errors.Wrap(err, "writing frame payload")
		}
	}
	return nil
}
