package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker guards calls to an unreliable upstream. After maxFailures
// consecutive failures the breaker opens and rejects calls immediately until
// the cooldown elapses, then lets a few probe calls through before closing.
type Breaker struct {
	name        string
	maxFailures uint32
	cooldown    time.Duration
	probeCalls  uint32

	mu              sync.Mutex
	state           State
	failures        uint32
	probeSuccesses  uint32
	lastFailureTime time.Time

	logger *logrus.Logger
}

func New(name string, maxFailures uint32, cooldown time.Duration) *Breaker {
	return NewWithLogger(name, maxFailures, cooldown, nil)
}

func NewWithLogger(name string, maxFailures uint32, cooldown time.Duration, logger *logrus.Logger) *Breaker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		probeCalls:  3,
		state:       StateClosed,
		logger:      logger,
	}
}

// OpenError is returned when a call is rejected without being attempted.
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

// IsOpen reports whether err means the breaker rejected the call.
func IsOpen(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}

// Execute runs fn unless the breaker is open. Every error counts as a
// failure.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.ExecuteWith(ctx, fn, nil)
}

// ExecuteWith runs fn unless the breaker is open. countsAsFailure decides
// which errors count against the failure threshold; errors it rejects are
// returned to the caller without affecting the breaker. A nil classifier
// counts every error.
func (b *Breaker) ExecuteWith(ctx context.Context, fn func(ctx context.Context) error, countsAsFailure func(error) bool) error {
	if !b.allow() {
		return &OpenError{Name: b.name}
	}

	err := fn(ctx)
	if err != nil {
		if countsAsFailure == nil || countsAsFailure(err) {
			b.onFailure()
		}
		return err
	}

	b.onSuccess()
	return nil
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	default:
		return false
	}
}

// maybeHalfOpen transitions open→half-open once the cooldown has elapsed.
// Callers must hold the mutex.
func (b *Breaker) maybeHalfOpen() {
	if b.state == StateOpen && time.Since(b.lastFailureTime) >= b.cooldown {
		b.state = StateHalfOpen
		b.probeSuccesses = 0
		b.logger.WithField("circuit_breaker", b.name).Info("Circuit breaker transitioned to half-open")
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.probeSuccesses++
		if b.probeSuccesses >= b.probeCalls {
			b.state = StateClosed
			b.failures = 0
			b.logger.WithField("circuit_breaker", b.name).Info("Circuit breaker closed after recovery")
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		if b.state != StateOpen {
			b.logger.WithFields(logrus.Fields{
				"circuit_breaker": b.name,
				"failures":        b.failures,
			}).Warn("Circuit breaker opened due to failures")
		}
		b.state = StateOpen
	}
}
