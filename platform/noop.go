package platform

import (
	"github.com/badu/kvm"
	"github.com/badu/kvm/proto"
)

// StaticScreenMetrics is a fixed-geometry ScreenMetrics, useful until a real
// per-OS adapter queries the live display configuration.
type StaticScreenMetrics struct {
	Primary kvm.Rect
	Virtual kvm.Rect
}

func (s StaticScreenMetrics) PrimaryBounds() kvm.Rect { return s.Primary }
func (s StaticScreenMetrics) VirtualBounds() kvm.Rect { return s.Virtual }

// NoopHook never calls back, for hosts with no installed input backend yet
// (spec.md §1's OS-specific hook installation is out of scope for this
// module; cmd/kvmd wires this placeholder so the control core still
// constructs and runs against network peers even where no real hook
// exists).
type NoopHook struct{}

func (NoopHook) Install(func(MouseObserved), func(KeyboardObserved)) error { return nil }
func (NoopHook) Uninstall()                                                {}

// NoopSynthesis discards every synthesis call, for the same reason as
// NoopHook.
type NoopSynthesis struct{}

func (NoopSynthesis) MoveAbsolute(x, y int)                                                  {}
func (NoopSynthesis) SynthesizeMouse(eventType proto.MouseEventType, wheelDelta int32)       {}
func (NoopSynthesis) SynthesizeKey(vkey int32, scanCode uint32, eventType proto.KeyEventType, extended bool) {
}
func (NoopSynthesis) HideSystemCursor()    {}
func (NoopSynthesis) RestoreSystemCursor() {}
func (NoopSynthesis) ClipCursor(kvm.Rect)  {}
func (NoopSynthesis) ReleaseClip()         {}

// NoopClipboard never observes local clipboard changes and reports no
// content, for hosts with no clipboard backend wired in yet.
type NoopClipboard struct{}

func (NoopClipboard) SubscribeChange(func())                     {}
func (NoopClipboard) ReadContent() (ClipboardContent, bool)       { return ClipboardContent{}, false }
func (NoopClipboard) WriteContent(ClipboardContent)               {}
