package session

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig paces repeated attempts. A Multiplier of 1 gives a
// constant step.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Delay returns the step for attempt n (1-based). Jitter scales the step
// by [0.5, 1.5) and the result never exceeds MaxDelay when one is set.
func (b BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 {
		return 0
	}
	mult := math.Max(b.Multiplier, 1)
	step := float64(b.InitialDelay)
	if n > 1 {
		step *= math.Pow(mult, float64(n-1))
	}
	if b.Jitter {
		scale := 0.5
		if rng != nil {
			scale += rng.Float64()
		}
		step *= scale
	}
	if b.MaxDelay > 0 {
		step = math.Min(step, float64(b.MaxDelay))
	}
	return time.Duration(step)
}
