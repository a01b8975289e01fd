package dofdemo

import "time"

// Clock supplies the animation time in seconds.
type Clock interface {
	Elapsed() float32
}

// SystemClock measures wall time since it was created.
type SystemClock struct {
	start time.Time
}

// NewSystemClock starts a clock at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Elapsed returns the seconds since the clock started.
func (c *SystemClock) Elapsed() float32 {
	return float32(time.Since(c.start).Seconds())
}

// FixedStepClock advances by a fixed step per frame, for headless runs and
// tests where the output must be reproducible.
type FixedStepClock struct {
	step  float32
	steps int
}

// NewFixedStepClock returns a clock advancing by 1/fps seconds per Advance.
func NewFixedStepClock(fps float32) *FixedStepClock {
	if fps <= 0 {
		fps = 60
	}
	return &FixedStepClock{step: 1 / fps}
}

// Advance moves the clock forward one frame.
func (c *FixedStepClock) Advance() { c.steps++ }

// Elapsed returns steps·step. Computed from the step count, not
// accumulated, so frame n always yields the same time.
func (c *FixedStepClock) Elapsed() float32 {
	return float32(c.steps) * c.step
}
