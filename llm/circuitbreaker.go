package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// circuitState mirrors the teacher's resilience.CircuitState three-state
// machine (closed/open/half-open), trimmed to what a Backend wrapper needs.
type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned when CircuitBreaking.Chat is called while the
// breaker is open, or half-open with its trial request still in flight.
type ErrCircuitOpen struct{ Name string }

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// CircuitBreaking wraps a Backend so that a provider in meltdown (repeated
// timeouts, 5xxs) stops receiving new requests for a cooldown window instead
// of every task/verification call piling up against it.
type CircuitBreaking struct {
	name             string
	inner            Backend
	failureThreshold int
	recoveryTimeout  time.Duration

	mu              sync.Mutex
	state           circuitState
	consecutiveFail int
	openedAt        time.Time
}

// NewCircuitBreaking wraps inner. After failureThreshold consecutive
// failures the breaker opens; after recoveryTimeout it allows one trial
// request (half-open) to decide whether to close again.
func NewCircuitBreaking(name string, inner Backend, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaking {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaking{
		name:             name,
		inner:            inner,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

func (c *CircuitBreaking) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.allow() {
		return "", &ErrCircuitOpen{Name: c.name}
	}
	resp, err := c.inner.Chat(ctx, systemPrompt, userPrompt)
	c.record(err)
	return resp, err
}

func (c *CircuitBreaking) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateOpen {
		if time.Since(c.openedAt) > c.recoveryTimeout {
			c.state = stateHalfOpen
			return true
		}
		return false
	}
	if c.state == stateHalfOpen {
		// The trial request is in flight; its result decides the next state.
		return false
	}
	return true
}

func (c *CircuitBreaking) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.consecutiveFail = 0
		c.state = stateClosed
		return
	}
	c.consecutiveFail++
	if c.state == stateHalfOpen || c.consecutiveFail >= c.failureThreshold {
		c.state = stateOpen
		c.openedAt = time.Now()
	}
}
