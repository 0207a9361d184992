package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVelocityTrackerFirstSampleSeedsOnly(t *testing.T) {
	var v velocityTracker
	t0 := time.Unix(0, 0)
	v.update(10, 0, t0)
	assert.Zero(t, v.vx)
	assert.Zero(t, v.vy)
}

func TestVelocityTrackerSmoothsTowardsSample(t *testing.T) {
	var v velocityTracker
	t0 := time.Unix(0, 0)
	v.update(0, 0, t0)
	// 10px over 10ms == 1000 px/s along X.
	v.update(10, 0, t0.Add(10*time.Millisecond))
	assert.InDelta(t, 300, v.vx, 1)
}

func TestVelocityTrackerShouldSendFirstAlwaysTrue(t *testing.T) {
	var v velocityTracker
	assert.True(t, v.shouldSend(time.Unix(0, 0)))
}

func TestVelocityTrackerShouldSendThrottlesSmallUnchangedDeltas(t *testing.T) {
	var v velocityTracker
	t0 := time.Unix(0, 0)
	v.shouldSend(t0)
	assert.False(t, v.shouldSend(t0.Add(10*time.Millisecond)))
	assert.True(t, v.shouldSend(t0.Add(200*time.Millisecond)))
}
