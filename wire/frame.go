// Package wire implements the length-framed binary message format carried
// over each peer connection (spec.md §4.1). It is deliberately the lowest
// layer: it knows about the fixed header and raw payload bytes, nothing
// about what a Mouse or Keyboard payload looks like (that lives in
// package proto).
//
// The byte-offset packing style — writing directly into a caller-supplied
// buffer rather than allocating per call — is grounded on
// _examples/S7evinK-pinecone/types (Frame.MarshalBinary(buf []byte) (int,
// error)); the error-as-package-sentinel style is badu-term's
// (core/engine.go's ErrNoScreen/ErrNoCharset).
package wire

import (
	"encoding/binary"

	"github.com/badu/kvm"
)

const (
	// HeaderSize is the fixed frame header length in bytes (spec.md §4.1).
	HeaderSize = 16

	magicHi = 0x4D // 'M'
	magicLo = 0x53 // 'S'

	// Version is the only wire version this codec understands.
	Version uint8 = 0x01

	// MaxPayloadSize is the largest payload this codec will accept
	// (spec.md §4.1: "payloadLength (int32, >= 0, <= 16 MiB)").
	MaxPayloadSize = 16 * 1024 * 1024
)

// MessageType identifies the payload layout that follows the frame header
// (spec.md §4.1).
type MessageType uint8

const (
	TypeHandshake        MessageType = 0x01
	TypeHandshakeAck      MessageType = 0x02
	TypeMouse             MessageType = 0x10
	TypeKeyboard          MessageType = 0x11
	TypeCursorEnter       MessageType = 0x20
	TypeCursorLeave       MessageType = 0x21
	TypeClipboard         MessageType = 0x30
	TypeClipboardRequest  MessageType = 0x31
	TypePing              MessageType = 0x40
	TypePong              MessageType = 0x41
	TypeDisconnect        MessageType = 0xF0
	TypeError             MessageType = 0xFF
)

// knownTypes keeps MessageType validation a simple lookup (and makes the
// full list grep-able in one place, the way badu-term/key builds its code
// tables).
var knownTypes = map[MessageType]bool{
	TypeHandshake: true, TypeHandshakeAck: true,
	TypeMouse: true, TypeKeyboard: true,
	TypeCursorEnter: true, TypeCursorLeave: true,
	TypeClipboard: true, TypeClipboardRequest: true,
	TypePing: true, TypePong: true,
	TypeDisconnect: true, TypeError: true,
}

// Valid reports whether t is a message type this codec recognizes.
func (t MessageType) Valid() bool {
	return knownTypes[t]
}

// String implements fmt.Stringer for logging.
func (t MessageType) String() string {
	switch t {
	case TypeHandshake:
		return "Handshake"
	case TypeHandshakeAck:
		return "HandshakeAck"
	case TypeMouse:
		return "Mouse"
	case TypeKeyboard:
		return "Keyboard"
	case TypeCursorEnter:
		return "CursorEnter"
	case TypeCursorLeave:
		return "CursorLeave"
	case TypeClipboard:
		return "Clipboard"
	case TypeClipboardRequest:
		return "ClipboardRequest"
	case TypePing:
		return "Ping"
	case TypePong:
		return "Pong"
	case TypeDisconnect:
		return "Disconnect"
	case TypeError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Header is the decoded, fixed-size frame preamble.
type Header struct {
	Type          MessageType
	PayloadLength int32
	Timestamp     int64 // Unix epoch millis at sender
}

// PeekHeader parses just the fixed header from buf, which must be at least
// HeaderSize bytes long. It validates the magic bytes, version and payload
// bound, but not the message Type (callers that only need to know how many
// more bytes to read off a stream — spec.md §4.1's "decoder contract" —
// should not have to also agree on every known type). Full semantic
// validation happens in Decode.
func PeekHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	if buf[0] != magicHi || buf[1] != magicLo {
		return Header{}, kvm.ErrInvalidMagic
	}
	if buf[2] != Version {
		return Header{}, kvm.ErrUnsupportedVersion
	}
	payloadLen := int32(binary.LittleEndian.Uint32(buf[4:8]))
	if payloadLen < 0 || payloadLen > MaxPayloadSize {
		return Header{}, kvm.ErrPayloadTooLarge
	}
	return Header{
		Type:          MessageType(buf[3]),
		PayloadLength: payloadLen,
		Timestamp:     int64(binary.LittleEndian.Uint64(buf[8:16])),
	}, nil
}

// TotalLength returns HeaderSize plus the header's declared payload length
// — the number of bytes a caller must read from the stream before it can
// call Decode (spec.md §4.1: "A caller reads that many bytes, then
// decodes").
func (h Header) TotalLength() int {
	return HeaderSize + int(h.PayloadLength)
}

// Frame is a decoded message: header plus the raw payload bytes. Package
// proto builds typed messages on top of this.
type Frame struct {
	Type      MessageType
	Timestamp int64
	Payload   []byte
}

// Encode writes the framed message (header + payload) into dst, which must
// be at least HeaderSize+len(payload) bytes long, and returns the number of
// bytes written. Timestamp is the sender's Unix millis.
func Encode(dst []byte, msgType MessageType, timestamp int64, payload []byte) (int, error) {
	if len(payload) > MaxPayloadSize {
		return 0, kvm.ErrPayloadTooLarge
	}
	total := HeaderSize + len(payload)
	if len(dst) < total {
		return 0, ErrBufferTooSmall
	}
	dst[0] = magicHi
	dst[1] = magicLo
	dst[2] = Version
	dst[3] = byte(msgType)
	binary.LittleEndian.PutUint32(dst[4:8], uint32(len(payload)))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(timestamp))
	copy(dst[HeaderSize:total], payload)
	return total, nil
}

// AppendEncode is the allocating counterpart of Encode, for call sites that
// do not maintain their own scratch buffer.
func AppendEncode(msgType MessageType, timestamp int64, payload []byte) ([]byte, error) {
	buf := make([]byte, HeaderSize+len(payload))
	n, err := Encode(buf, msgType, timestamp, payload)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Decode parses a complete frame (header and payload both present in buf)
// and validates the message type. It returns the frame and the number of
// bytes consumed.
func Decode(buf []byte) (Frame, int, error) {
	h, err := PeekHeader(buf)
	if err != nil {
		return Frame{}, 0, err
	}
	if !h.Type.Valid() {
		return Frame{}, 0, kvm.ErrUnknownType
	}
	total := h.TotalLength()
	if len(buf) < total {
		return Frame{}, 0, kvm.ErrTruncatedPayload
	}
	payload := make([]byte, h.PayloadLength)
	copy(payload, buf[HeaderSize:total])
	return Frame{Type: h.Type, Timestamp: h.Timestamp, Payload: payload}, total, nil
}
