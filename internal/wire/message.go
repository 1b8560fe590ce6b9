package wire

import (
	"pasteanywhere/internal/clock"
)

// Type tags a wire message. The set is closed; decoding rejects anything
// outside it.
type Type byte

const (
	TypeHandshake Type = iota + 1
	TypePeerListRequest
	TypePeerListResponse
	TypeClipboardUpdate
	TypePing
	TypePong
)

// String returns the string representation of a message type.
func (t Type) String() string {
	switch t {
	case TypeHandshake:
		return "HANDSHAKE"
	case TypePeerListRequest:
		return "PEER_LIST_REQUEST"
	case TypePeerListResponse:
		return "PEER_LIST_RESPONSE"
	case TypeClipboardUpdate:
		return "CLIPBOARD_UPDATE"
	case TypePing:
		return "PING"
	case TypePong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// Message is implemented by every wire message variant.
type Message interface {
	Type() Type
}

// Handshake is the first message on every connection, in both directions.
// ListenAddr is the sender's externally reachable listen address; it doubles
// as the sender's peer ID.
type Handshake struct {
	PeerID     string `msgpack:"peer_id"`
	ListenAddr string `msgpack:"listen_addr"`
}

func (*Handshake) Type() Type { return TypeHandshake }

// PeerListRequest asks a neighbor for the peers it currently knows.
type PeerListRequest struct{}

func (*PeerListRequest) Type() Type { return TypePeerListRequest }

// PeerInfo is one entry of a PeerListResponse.
type PeerInfo struct {
	ID   string `msgpack:"id"`
	Addr string `msgpack:"addr"`
}

// PeerListResponse carries the known peers of a neighbor.
type PeerListResponse struct {
	Peers []PeerInfo `msgpack:"peers"`
}

func (*PeerListResponse) Type() Type { return TypePeerListResponse }

// ClipboardUpdate is a flooded snapshot of clipboard content, stamped with
// the causal state of its origin at creation time. It is never mutated
// after creation; forwarding decrements Hops on a copy.
type ClipboardUpdate struct {
	MsgID   string            `msgpack:"msg_id"`
	Origin  string            `msgpack:"origin"`
	Clock   clock.VectorClock `msgpack:"clock"`
	Content []byte            `msgpack:"content"`
	Hops    uint8             `msgpack:"hops"`
}

func (*ClipboardUpdate) Type() Type { return TypeClipboardUpdate }

// Counter returns the origin's own counter inside the update's clock. The
// (Origin, Counter) pair identifies the update for deduplication.
func (u *ClipboardUpdate) Counter() uint64 {
	return u.Clock.Get(u.Origin)
}

// Ping probes a neighbor for liveness.
type Ping struct{}

func (*Ping) Type() Type { return TypePing }

// Pong answers a Ping.
type Pong struct{}

func (*Pong) Type() Type { return TypePong }
