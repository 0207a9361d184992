// Package capture implements the platform-independent half of the
// warp-back discipline (spec.md §4.6): bookkeeping for the anchor the
// physical pointer is pinned at while Controlling, and the warp-echo
// guard that tells a genuine user motion apart from the cursor's own
// synthetic return-to-anchor move.
//
// Grounded on _examples/other_examples's bnema-waymon
// internal/input/wayland_barrier.go (locked/lockX/lockY bookkeeping
// around a pointer-constraint session) and aluo96078-vkvm's
// trap_windows.go (Windows cursor-trap equivalent); this package keeps
// only the OS-independent half those two files show — the actual
// ClipCursor/pointer-constraint syscalls are the platform.InputSynthesis
// capability's job, consumed as an interface by package control.
package capture

import "github.com/badu/kvm"

// WarpGuardPixels is the small guard subtracted from half the screen
// dimension before comparing a delta's magnitude (spec.md §4.6 tactic
// (b): "half the screen dimension minus a small guard (10 px)").
const WarpGuardPixels = 10

// Capture tracks the anchor a physical pointer is pinned to while
// Controlling, and the last observed physical position, so that
// successive hook events can be turned into deltas (spec.md §4.6
// "warp-only" strategy: "the next observed move event yields a delta
// relative to the anchor").
type Capture struct {
	Anchor   kvm.Point
	LastSeen kvm.Point
}

// Begin starts a new capture episode pinned at anchor.
func Begin(anchor kvm.Point) *Capture {
	return &Capture{Anchor: anchor, LastSeen: anchor}
}

// Observe computes the delta between the newly observed physical position
// (x, y) and the last observed one, updates LastSeen, and reports whether
// the delta should be discarded as a warp echo rather than genuine user
// motion (spec.md §4.6, §8 "Warp guard").
func (c *Capture) Observe(x, y, localScreenWidth, localScreenHeight int) (dx, dy int, isWarpEcho bool) {
	dx = x - c.LastSeen.X
	dy = y - c.LastSeen.Y
	c.LastSeen = kvm.NewPoint(x, y)
	return dx, dy, IsWarpEcho(dx, dy, localScreenWidth, localScreenHeight)
}

// IsWarpEcho reports whether a delta's magnitude along either axis is
// large enough that only the capture's own anchor-warp could have
// produced it (spec.md §4.6 tactic (b), §8 "Warp guard": "for all
// |delta_x| + 10 > halfWidth or |delta_y| + 10 > halfHeight, the delta
// is discarded").
func IsWarpEcho(dx, dy, screenWidth, screenHeight int) bool {
	if kvm.Abs(dx)+WarpGuardPixels > screenWidth/2 {
		return true
	}
	if kvm.Abs(dy)+WarpGuardPixels > screenHeight/2 {
		return true
	}
	return false
}
