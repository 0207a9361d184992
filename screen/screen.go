// Package screen provides the primary-display rectangle and edge
// classification the control core needs to decide when a physical pointer
// has reached the boundary of the local screen (spec.md §4.5). The
// rectangle math is grounded on badu-term/geom's Rectangle
// (Empty/Union/Intersect-style corner bookkeeping), generalized from
// terminal cell coordinates to raw pixels via kvm.Rect.
package screen

import "github.com/badu/kvm"

// Metrics is the narrow capability the control core consumes for screen
// geometry (spec.md §6 ScreenMetrics: "primaryBounds() -> Rect"). The OS
// implementation of this interface is out of scope; only the contract and
// the pure geometry built on top of it live here.
type Metrics interface {
	PrimaryBounds() kvm.Rect
}

// StaticMetrics is a fixed-bounds Metrics, useful for tests and for hosts
// whose display never changes size without a restart.
type StaticMetrics struct {
	Bounds kvm.Rect
}

// PrimaryBounds implements Metrics.
func (s StaticMetrics) PrimaryBounds() kvm.Rect {
	return s.Bounds
}

// EdgeAt classifies the point (x, y) against bounds, returning the edge hit
// (if any) within threshold pixels of a side. threshold 0 means the point
// must land exactly on the edge pixel. Pure function per spec.md §4.5.
func EdgeAt(bounds kvm.Rect, x, y, threshold int) (kvm.EdgeHit, bool) {
	if threshold < 0 {
		threshold = 0
	}

	left := bounds.Min.X
	right := bounds.Max.X - 1
	top := bounds.Min.Y
	bottom := bounds.Max.Y - 1
	height := bounds.Height()
	width := bounds.Width()

	// Left/Right take priority over Top/Bottom at a shared corner, matching
	// the natural reading order of spec.md §4.5's definition list.
	if x-left <= threshold && x >= left {
		return kvm.EdgeHit{Edge: kvm.EdgeLeft, NormalizedPos: verticalFraction(y, top, height)}, true
	}
	if right-x <= threshold && x <= right {
		return kvm.EdgeHit{Edge: kvm.EdgeRight, NormalizedPos: verticalFraction(y, top, height)}, true
	}
	if y-top <= threshold && y >= top {
		return kvm.EdgeHit{Edge: kvm.EdgeTop, NormalizedPos: horizontalFraction(x, left, width)}, true
	}
	if bottom-y <= threshold && y <= bottom {
		return kvm.EdgeHit{Edge: kvm.EdgeBottom, NormalizedPos: horizontalFraction(x, left, width)}, true
	}
	return kvm.EdgeHit{}, false
}

func verticalFraction(y, top, height int) float32 {
	if height <= 0 {
		return 0
	}
	return kvm.Clampf(float32(y-top) / float32(height))
}

func horizontalFraction(x, left, width int) float32 {
	if width <= 0 {
		return 0
	}
	return kvm.Clampf(float32(x-left) / float32(width))
}

// PointOnEdge maps a normalized position back to an absolute point on the
// given edge of bounds — the inverse of EdgeAt, used to place the physical
// cursor when control returns to the local screen (spec.md §4.6 "Release").
func PointOnEdge(bounds kvm.Rect, edge kvm.Edge, normalizedPos float32) kvm.Point {
	normalizedPos = kvm.Clampf(normalizedPos)
	switch edge {
	case kvm.EdgeLeft:
		return kvm.Point{X: bounds.Min.X, Y: bounds.Min.Y + int(normalizedPos*float32(bounds.Height()))}
	case kvm.EdgeRight:
		return kvm.Point{X: bounds.Max.X - 1, Y: bounds.Min.Y + int(normalizedPos*float32(bounds.Height()))}
	case kvm.EdgeTop:
		return kvm.Point{X: bounds.Min.X + int(normalizedPos*float32(bounds.Width())), Y: bounds.Min.Y}
	case kvm.EdgeBottom:
		return kvm.Point{X: bounds.Min.X + int(normalizedPos*float32(bounds.Width())), Y: bounds.Max.Y - 1}
	default:
		return bounds.Center()
	}
}
