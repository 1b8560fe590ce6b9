package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize bounds the length field of a frame. Anything larger is
// treated as a corrupted stream, not a big message.
const MaxFrameSize = 1 << 20

// headerSize is the frame prefix: 4-byte big-endian length plus 1 type byte.
// The length counts the type byte and the payload.
const headerSize = 5

// ProtocolError marks a malformed frame. The stream is unrecoverable after
// one; the connection must be closed.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// WriteMessage frames and writes a single message. The frame is assembled
// in one buffer so concurrent writers never interleave partial frames.
func WriteMessage(w io.Writer, msg Message) error {
	payload, err := msgpack.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	if len(payload)+1 > MaxFrameSize {
		return fmt.Errorf("encode %s: payload of %d bytes exceeds frame limit", msg.Type(), len(payload))
	}

	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)+1))
	frame[4] = byte(msg.Type())
	copy(frame[headerSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type(), err)
	}
	return nil
}

// ReadMessage reads one full frame and decodes it into its message variant.
// It blocks until a frame is available. A clean close at a frame boundary
// returns io.EOF; a close mid-frame or a malformed frame returns a
// ProtocolError.
func ReadMessage(r io.Reader) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ProtocolError{Reason: "stream ended inside frame header"}
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, &ProtocolError{Reason: "zero-length frame"}
	}
	if length > MaxFrameSize {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame length %d exceeds limit %d", length, MaxFrameSize)}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, &ProtocolError{Reason: "truncated frame payload"}
		}
		return nil, err
	}

	msg, err := newMessage(Type(body[0]))
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal(body[1:], msg); err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("bad %s payload: %v", msg.Type(), err)}
	}
	return msg, nil
}

// newMessage allocates the variant for a type tag. Exhaustive over the
// closed message set.
func newMessage(t Type) (Message, error) {
	switch t {
	case TypeHandshake:
		return &Handshake{}, nil
	case TypePeerListRequest:
		return &PeerListRequest{}, nil
	case TypePeerListResponse:
		return &PeerListResponse{}, nil
	case TypeClipboardUpdate:
		return &ClipboardUpdate{}, nil
	case TypePing:
		return &Ping{}, nil
	case TypePong:
		return &Pong{}, nil
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown message type 0x%02x", byte(t))}
	}
}
