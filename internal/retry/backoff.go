package retry

import "time"

// ExponentialBackoff returns base * 2^attempt, capped at ceiling when ceiling > 0.
// It paces queue redelivery and enqueue attempts; generation-service calls
// are never retried.
func ExponentialBackoff(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base * (1 << attempt)
	if ceiling > 0 && (d > ceiling || d <= 0) {
		return ceiling
	}
	return d
}
