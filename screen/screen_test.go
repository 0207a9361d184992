package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/badu/kvm"
)

func TestEdgeAtInsideIsNone(t *testing.T) {
	bounds := kvm.NewRect(0, 0, 1920, 1080)
	for _, p := range []kvm.Point{{X: 1, Y: 1}, {X: 960, Y: 540}, {X: 1918, Y: 1078}} {
		_, ok := EdgeAt(bounds, p.X, p.Y, 0)
		assert.Falsef(t, ok, "point %+v should not classify as an edge with threshold 0", p)
	}
}

func TestEdgeAtLeft(t *testing.T) {
	bounds := kvm.NewRect(0, 0, 1920, 1080)
	hit, ok := EdgeAt(bounds, 0, 540, 0)
	assert.True(t, ok)
	assert.Equal(t, kvm.EdgeLeft, hit.Edge)
	assert.InDelta(t, 0.5, float64(hit.NormalizedPos), 0.001)
}

func TestEdgeAtRightThreshold(t *testing.T) {
	bounds := kvm.NewRect(0, 0, 1920, 1080)
	hit, ok := EdgeAt(bounds, 1919, 0, 2)
	assert.True(t, ok)
	assert.Equal(t, kvm.EdgeRight, hit.Edge)
	assert.Equal(t, float32(0), hit.NormalizedPos)
}

func TestEdgeAtTopBottom(t *testing.T) {
	bounds := kvm.NewRect(0, 0, 1920, 1080)

	hit, ok := EdgeAt(bounds, 960, 0, 0)
	assert.True(t, ok)
	assert.Equal(t, kvm.EdgeTop, hit.Edge)
	assert.InDelta(t, 0.5, float64(hit.NormalizedPos), 0.001)

	hit, ok = EdgeAt(bounds, 960, 1079, 0)
	assert.True(t, ok)
	assert.Equal(t, kvm.EdgeBottom, hit.Edge)
}

func TestPointOnEdgeRoundTrip(t *testing.T) {
	bounds := kvm.NewRect(0, 0, 1920, 1080)
	p := PointOnEdge(bounds, kvm.EdgeLeft, 0.5)
	assert.Equal(t, 0, p.X)
	assert.Equal(t, 540, p.Y)
}

func TestEdgeAtClampsNormalizedPos(t *testing.T) {
	bounds := kvm.NewRect(0, 0, 100, 0)
	hit, ok := EdgeAt(bounds, 0, 50, 0)
	assert.True(t, ok)
	assert.Equal(t, float32(0), hit.NormalizedPos)
}
