// Package platform defines the narrow capability interfaces the control
// core consumes (spec.md §6): input hook, input synthesis, screen
// metrics, clipboard and network-interface enumeration. Per spec.md §1's
// explicit exclusion of "the OS-specific primitives that install global
// input hooks, synthesize input, query screen geometry, hide the system
// cursor, or read/write the clipboard", this package carries contracts
// only — no OS-specific implementation lives here.
//
// The interface-as-consumed-capability shape mirrors badu-term's root
// package (term.MouseDispatcher, term.KeyListener, term.Engine): callers
// are handed an interface built elsewhere, never a concrete OS type.
package platform

import (
	"time"

	"github.com/badu/kvm"
	"github.com/badu/kvm/proto"
)

// MouseObserved is one local mouse event delivered by a GlobalInputHook.
// SetHandled, when non-nil, must be called synchronously by the receiver
// to mark the event handled so the OS does not deliver it to any other
// application (spec.md §6, §4.7.1).
type MouseObserved struct {
	X, Y       int
	EventType  proto.MouseEventType
	WheelDelta int32
	Timestamp  time.Time
	SetHandled func(bool)
}

// KeyboardObserved is one local keyboard event delivered by a
// GlobalInputHook.
type KeyboardObserved struct {
	VKey       int32
	ScanCode   uint32
	EventType  proto.KeyEventType
	Extended   bool
	SetHandled func(bool)
}

// GlobalInputHook installs process-wide mouse/keyboard hooks and
// delivers observed events to the supplied callbacks. Implementations
// must call back promptly (spec.md §5: "The hook callback must return
// promptly... must never block on network I/O").
type GlobalInputHook interface {
	Install(onMouse func(MouseObserved), onKeyboard func(KeyboardObserved)) error
	Uninstall()
}

// InputSynthesis synthesizes mouse/keyboard input and manages the system
// cursor's visibility and confinement (spec.md §6).
type InputSynthesis interface {
	MoveAbsolute(x, y int)
	SynthesizeMouse(eventType proto.MouseEventType, wheelDelta int32)
	SynthesizeKey(vkey int32, scanCode uint32, eventType proto.KeyEventType, extended bool)
	HideSystemCursor()
	RestoreSystemCursor()
	ClipCursor(rect kvm.Rect)
	ReleaseClip()
}

// ScreenMetrics reports the local display geometry (spec.md §6,
// reused directly by package screen's pure edge-classification helpers).
type ScreenMetrics interface {
	PrimaryBounds() kvm.Rect
	VirtualBounds() kvm.Rect
}

// ClipboardContent is one clipboard payload, mirroring proto.Clipboard's
// fields without coupling the capability interface to the wire package.
type ClipboardContent struct {
	Type       proto.ContentType
	Data       []byte
	FormatHint string
}

// Clipboard reads, writes and subscribes to changes of the local system
// clipboard (spec.md §6). Content inspection itself is out of scope
// (spec.md §1); the core only forwards whatever bytes this capability
// hands it.
type Clipboard interface {
	SubscribeChange(fn func())
	ReadContent() (ClipboardContent, bool)
	WriteContent(content ClipboardContent)
}

// NetworkInterfaces enumerates IPv4 unicast addresses with masks, for
// broadcast-address computation (spec.md §6). Package discovery does not
// consume this interface: discovery.Service always computes broadcast
// addresses with its own standard-library implementation
// (net.Interfaces()).
type NetworkInterfaces interface {
	BroadcastAddresses(port int) []string
}
