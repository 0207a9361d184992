package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/badu/kvm"
	"github.com/badu/kvm/logging"
	"github.com/badu/kvm/platform"
	"github.com/badu/kvm/proto"
)

type fakeHook struct {
	onMouse    func(platform.MouseObserved)
	onKeyboard func(platform.KeyboardObserved)
	installed  bool
}

func (f *fakeHook) Install(onMouse func(platform.MouseObserved), onKeyboard func(platform.KeyboardObserved)) error {
	f.onMouse, f.onKeyboard = onMouse, onKeyboard
	f.installed = true
	return nil
}
func (f *fakeHook) Uninstall() { f.installed = false }

type fakeSynth struct {
	moves    []kvm.Point
	hidden   bool
	restored bool
}

func (f *fakeSynth) MoveAbsolute(x, y int)                                 { f.moves = append(f.moves, kvm.NewPoint(x, y)) }
func (f *fakeSynth) SynthesizeMouse(proto.MouseEventType, int32)           {}
func (f *fakeSynth) SynthesizeKey(int32, uint32, proto.KeyEventType, bool) {}
func (f *fakeSynth) HideSystemCursor()                                    { f.hidden = true }
func (f *fakeSynth) RestoreSystemCursor()                                 { f.restored = true }
func (f *fakeSynth) ClipCursor(kvm.Rect)                                  {}
func (f *fakeSynth) ReleaseClip()                                         {}

type fakeMetrics struct{ bounds kvm.Rect }

func (f fakeMetrics) PrimaryBounds() kvm.Rect { return f.bounds }
func (f fakeMetrics) VirtualBounds() kvm.Rect { return f.bounds }

type fakeClipboard struct {
	onChange func()
	content  platform.ClipboardContent
	has      bool
	written  []platform.ClipboardContent
}

func (f *fakeClipboard) SubscribeChange(fn func())                     { f.onChange = fn }
func (f *fakeClipboard) ReadContent() (platform.ClipboardContent, bool) { return f.content, f.has }
func (f *fakeClipboard) WriteContent(c platform.ClipboardContent)       { f.written = append(f.written, c) }

func newTestCore(t *testing.T, cfg kvm.Config) (*Core, *fakeHook, *fakeSynth, *fakeClipboard) {
	t.Helper()
	hook := &fakeHook{}
	synth := &fakeSynth{}
	metrics := fakeMetrics{bounds: kvm.NewRect(0, 0, 1920, 1080)}
	clip := &fakeClipboard{}
	c := New(cfg, logging.Nop(), hook, synth, metrics, clip)
	c.Start(context.Background())
	t.Cleanup(c.Shutdown)
	return c, hook, synth, clip
}

// TestSetEnabledFalseFromIdleDoesNotRestoreCursor checks that disabling the
// core while Idle must not touch the system cursor: setEnabled only ends
// remote control when the core is Controlling.
func TestSetEnabledFalseFromIdleDoesNotRestoreCursor(t *testing.T) {
	c, _, synth, _ := newTestCore(t, kvm.Config{Enabled: true})
	c.SetEnabled(false)
	assert.Eventually(t, func() bool { return true }, 50*time.Millisecond, 5*time.Millisecond)
	assert.False(t, synth.restored)
}

// TestStatsEmptyWithNoConnections covers the supplemented Stats() surface
// before any peer has connected.
func TestStatsEmptyWithNoConnections(t *testing.T) {
	c, _, _, _ := newTestCore(t, kvm.Config{})
	assert.Empty(t, c.Stats())
}
