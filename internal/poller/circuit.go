package poller

import "time"

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker pauses polling after Threshold consecutive getUpdates
// failures, then lets a single trial request through once Cooldown has passed.
type CircuitBreaker struct {
	Threshold int
	Cooldown  time.Duration

	state    CircuitState
	failures int
	openedAt time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		Threshold: threshold,
		Cooldown:  cooldown,
		state:     CircuitClosed,
	}
}

func (c *CircuitBreaker) State() CircuitState {
	return c.state
}

// Allow returns whether a poll may be attempted at this instant.
func (c *CircuitBreaker) Allow(now time.Time) bool {
	if c.state != CircuitOpen {
		return true
	}
	if now.Sub(c.openedAt) >= c.Cooldown {
		c.state = CircuitHalfOpen
		return true
	}
	return false
}

// RecordSuccess closes the breaker and resets the failure count.
func (c *CircuitBreaker) RecordSuccess() {
	c.state = CircuitClosed
	c.failures = 0
}

// RecordFailure counts a failure; a failed half-open trial reopens at once.
func (c *CircuitBreaker) RecordFailure(now time.Time) {
	if c.state == CircuitHalfOpen {
		c.state = CircuitOpen
		c.openedAt = now
		return
	}
	c.failures++
	if c.failures >= c.Threshold {
		c.state = CircuitOpen
		c.openedAt = now
	}
}
