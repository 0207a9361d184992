// Package proto builds the typed, per-message payloads spec.md §4.1 defines
// on top of the generic frame codec in package wire. Field order within
// each payload is binding, per spec.md: "order of fields is binding".
package proto

import (
	"github.com/badu/kvm/wire"
)

// MouseEventType enumerates the mouse event kinds spec.md §4.1 names.
type MouseEventType uint8

const (
	MouseMove MouseEventType = iota
	MouseLeftDown
	MouseLeftUp
	MouseRightDown
	MouseRightUp
	MouseMiddleDown
	MouseMiddleUp
	MouseWheel
	MouseHWheel
	MouseXButton1Down
	MouseXButton1Up
	MouseXButton2Down
	MouseXButton2Up
)

// KeyEventType enumerates keyboard event kinds.
type KeyEventType uint8

const (
	KeyDown KeyEventType = iota
	KeyUp
)

// ContentType enumerates clipboard content kinds.
type ContentType uint8

const (
	ContentText ContentType = iota
	ContentHTML
	ContentImage
)

// Handshake is the initiator's opening message (spec.md §4.1).
type Handshake struct {
	MachineID         string
	MachineName       string
	ScreenWidth       int32
	ScreenHeight      int32
	SupportsClipboard bool
}

// HandshakeAck is the acceptor's reply.
type HandshakeAck struct {
	Accepted     bool
	MachineID    string
	MachineName  string
	ScreenWidth  int32
	ScreenHeight int32
	RejectReason string // empty when Accepted
}

// Mouse carries a single mouse event, in the receiver's own pixel space
// (spec.md §4.7.5: "the sender scales"). Velocity is optional; decoders
// accept both the 13-byte base form and the 21-byte extended form, treating
// missing velocity fields as zero (spec.md §4.1).
type Mouse struct {
	X           int32
	Y           int32
	EventType   MouseEventType
	WheelDelta  int32
	HasVelocity bool
	VelocityX   float32
	VelocityY   float32
}

// Keyboard carries a single keyboard event.
type Keyboard struct {
	KeyCode    int32
	ScanCode   uint32
	EventType  KeyEventType
	IsExtended bool
}

// CursorEnter/CursorLeave carry a normalized position and the edge the
// cursor is entering/leaving, expressed in the receiver's own frame
// (spec.md §4.1).
type CursorEnter struct {
	X    float32
	Y    float32
	Edge uint8
}

type CursorLeave struct {
	X    float32
	Y    float32
	Edge uint8
}

// Clipboard carries a clipboard payload for fan-out (spec.md §4.7.6).
type Clipboard struct {
	ContentType ContentType
	FormatHint  string
	Data        []byte
}

// ClipboardRequest, Ping, Pong and Disconnect all carry empty payloads
// (spec.md §4.1); they exist as named types purely so callers of Decode get
// a consistent value to switch on.
type ClipboardRequest struct{}
type Ping struct{}
type Pong struct{}
type Disconnect struct{}

// Error carries a local protocol-error report (spec.md §4.1).
type Error struct {
	Code        int32
	Description string
}

// Message is the decoded union returned by Decode: exactly one of the
// typed fields is meaningful, selected by Type.
type Message struct {
	Type      wire.MessageType
	Timestamp int64

	Handshake        Handshake
	HandshakeAck     HandshakeAck
	Mouse            Mouse
	Keyboard         Keyboard
	CursorEnter      CursorEnter
	CursorLeave      CursorLeave
	Clipboard        Clipboard
	ClipboardRequest ClipboardRequest
	Ping             Ping
	Pong             Pong
	Disconnect       Disconnect
	Error            Error
}
