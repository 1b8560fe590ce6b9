// Package wire defines the peer-to-peer message set and its framing. Every
// message travels as a 4-byte big-endian length, a 1-byte type tag and a
// msgpack-encoded payload. The message set is closed; a frame with an
// unknown tag, an insane length or a truncated payload is a protocol error
// and the connection carrying it is torn down.
package wire
