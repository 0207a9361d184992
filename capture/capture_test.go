package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/badu/kvm"
)

func TestObserveAccumulatesDeltaFromAnchor(t *testing.T) {
	c := Begin(kvm.NewPoint(960, 540))

	dx, dy, warp := c.Observe(965, 538, 1920, 1080)
	assert.Equal(t, 5, dx)
	assert.Equal(t, -2, dy)
	assert.False(t, warp)
}

func TestIsWarpEchoMatchesGuardFormula(t *testing.T) {
	// half width is 960; a 955px delta plus the 10px guard exceeds it.
	assert.True(t, IsWarpEcho(955, 0, 1920, 1080))
	assert.False(t, IsWarpEcho(949, 0, 1920, 1080))

	// half height is 540; a 535px delta plus the guard exceeds it.
	assert.True(t, IsWarpEcho(0, 535, 1920, 1080))
	assert.False(t, IsWarpEcho(0, 529, 1920, 1080))
}

func TestObserveZeroDeltaIsNotAWarpEcho(t *testing.T) {
	c := Begin(kvm.NewPoint(960, 540))
	dx, dy, warp := c.Observe(960, 540, 1920, 1080)
	assert.Equal(t, 0, dx)
	assert.Equal(t, 0, dy)
	assert.False(t, warp)
}
