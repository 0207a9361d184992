package kvm

// Package-level geometry primitives shared by screen classification, the
// virtual cursor tracker and the wire protocol. Modeled after badu-term's
// root `Size`/`Position` types, generalized from terminal cells to raw
// screen pixels.

// Point is a pixel coordinate pair.
type Point struct {
	X int
	Y int
}

// NewPoint returns a Point at the given coordinates.
func NewPoint(x, y int) Point {
	return Point{X: x, Y: y}
}

// Add returns the point shifted by the given deltas.
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns the delta between p and q (p - q).
func (p Point) Sub(q Point) (dx, dy int) {
	return p.X - q.X, p.Y - q.Y
}

// Size describes the dimensions of a rectangle in pixels.
type Size struct {
	Width  int
	Height int
}

// NewSize returns a newly allocated Size of the specified dimensions.
func NewSize(width, height int) Size {
	return Size{Width: width, Height: height}
}

// IsZero returns whether the Size has zero width and zero height.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// Rect is an axis-aligned pixel rectangle, with Max exclusive (same
// convention badu-term's geom.Rectangle uses for topCorner/bottomCorner).
type Rect struct {
	Min Point
	Max Point
}

// NewRect returns the rectangle with the given corners, normalized so that
// Min is top-left and Max is bottom-right.
func NewRect(x0, y0, x1, y1 int) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{Min: Point{x0, y0}, Max: Point{x1, y1}}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int {
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int {
	return r.Max.Y - r.Min.Y
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width(), Height: r.Height()}
}

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool {
	return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y
}

// Center returns the rectangle's midpoint, rounded toward Min.
func (r Rect) Center() Point {
	return Point{
		X: r.Min.X + r.Width()/2,
		Y: r.Min.Y + r.Height()/2,
	}
}

// Contains reports whether p lies within the rectangle (Max exclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Clamp returns p moved into the rectangle's inclusive pixel range
// [Min, Max-1], the convention spec.md uses for clamping a remote cursor
// to `[0, W_r-1] x [0, H_r-1]`.
func (r Rect) Clamp(p Point) Point {
	x, y := p.X, p.Y
	if x < r.Min.X {
		x = r.Min.X
	}
	if x > r.Max.X-1 {
		x = r.Max.X - 1
	}
	if y < r.Min.Y {
		y = r.Min.Y
	}
	if y > r.Max.Y-1 {
		y = r.Max.Y - 1
	}
	return Point{X: x, Y: y}
}

// Min returns the smaller of the passed values.
func Min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

// Max returns the larger of the passed values.
func Max(x, y int) int {
	if x > y {
		return x
	}
	return y
}

// Abs returns the absolute value of a.
func Abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// Clampf clamps f to [0, 1], the normalized-position range used throughout
// the protocol (spec.md §4.1, §4.5).
func Clampf(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
