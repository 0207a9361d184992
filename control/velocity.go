package control

import "time"

// VelocitySmoothingPrev/VelocitySmoothingSample are the EMA weights applied
// to the running velocity estimate and the newest sample respectively
// (spec.md §4.7.2 step 4: "exponential moving average, weight 0.7 on the
// previous estimate and 0.3 on the new sample").
const (
	VelocitySmoothingPrev   = 0.7
	VelocitySmoothingSample = 0.3
)

// VelocityMinDelta and VelocityMinInterval gate when a smoothed velocity is
// actually attached to an outgoing Mouse message (spec.md §4.7.2 step 9:
// "only when it has changed by at least 50 px/s ... or at least 100 ms have
// elapsed since the last inclusion").
const (
	VelocityMinDelta    = 50.0
	VelocityMinInterval = 100 * time.Millisecond
)

// velocityTracker smooths per-sample pixel deltas into a px/s estimate and
// throttles how often that estimate is attached to an outgoing message.
type velocityTracker struct {
	vx, vy     float32
	lastSample time.Time
	lastSentVX float32
	lastSentVY float32
	lastSentAt time.Time
	sent       bool
}

// update folds one observed (dx, dy) sample, measured since the previous
// sample at now, into the smoothed estimate.
func (v *velocityTracker) update(dx, dy int, now time.Time) {
	if v.lastSample.IsZero() {
		v.lastSample = now
		return
	}
	dt := now.Sub(v.lastSample).Seconds()
	v.lastSample = now
	if dt <= 0 {
		return
	}
	sampleVX := float32(float64(dx) / dt)
	sampleVY := float32(float64(dy) / dt)
	v.vx = VelocitySmoothingPrev*v.vx + VelocitySmoothingSample*sampleVX
	v.vy = VelocitySmoothingPrev*v.vy + VelocitySmoothingSample*sampleVY
}

// shouldSend reports whether the current smoothed estimate should be
// attached to the Mouse message being built for now, and records that it
// was sent if so.
func (v *velocityTracker) shouldSend(now time.Time) bool {
	if !v.sent {
		v.sent = true
		v.lastSentVX, v.lastSentVY, v.lastSentAt = v.vx, v.vy, now
		return true
	}
	changed := absf(v.vx-v.lastSentVX) >= VelocityMinDelta || absf(v.vy-v.lastSentVY) >= VelocityMinDelta
	elapsed := now.Sub(v.lastSentAt) >= VelocityMinInterval
	if !changed && !elapsed {
		return false
	}
	v.lastSentVX, v.lastSentVY, v.lastSentAt = v.vx, v.vy, now
	return true
}

func absf(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
