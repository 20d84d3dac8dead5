package failover

import (
	"math"
	"math/rand"
	"time"
)

// backoffDelay returns the delay before retry attempt N (1-based).
//
// The delay starts at initial and grows by factor per attempt, capped at maxDelay when
// maxDelay is positive. With jitter the delay is scaled by a random factor in [0.5, 1.5).
func backoffDelay(initial, maxDelay time.Duration, factor float64, attempt int, jitter bool, rng *rand.Rand) time.Duration {
	if initial <= 0 {
		return 0
	}
	if factor < 1.0 {
		factor = 1.0
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(initial) * math.Pow(factor, float64(attempt-1))
	if maxDelay > 0 && delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	if jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		delay *= f
	}

	return time.Duration(delay)
}
