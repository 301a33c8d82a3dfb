package util

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"    // 정상 작동
	CircuitStateOpen     CircuitState = "OPEN"      // 요청 즉시 실패
	CircuitStateHalfOpen CircuitState = "HALF_OPEN" // 다음 요청으로 복구 확인
)

func (s CircuitState) String() string {
	return string(s)
}

// CircuitBreaker fails calls fast after consecutive upstream failures. It
// never retries on its own; once the reset timeout passes the next call is
// let through and decides whether the circuit closes again.
type CircuitBreaker struct {
	name             string
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	openUntil        time.Time
	now              func() time.Time
	logger           *zap.Logger
	mu               sync.Mutex
}

func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		state:            CircuitStateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		logger:           logger,
	}
}

// WithClock replaces the time source. Used by tests.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	return cb
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Allow reports whether a call may go upstream.
func (cb *CircuitBreaker) Allow() bool {
	return cb.State() != CircuitStateOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case CircuitStateHalfOpen:
		cb.logger.Info("Circuit Breaker: Upstream recovered", zap.String("name", cb.name))
		cb.failureCount = 0
		cb.transitionTo(CircuitStateClosed)
	case CircuitStateClosed:
		if cb.failureCount > 0 {
			cb.logger.Debug("Circuit Breaker: Resetting failure count",
				zap.String("name", cb.name),
				zap.Int("was", cb.failureCount),
			)
			cb.failureCount = 0
		}
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.currentState()
	cb.failureCount++

	cb.logger.Warn("Circuit Breaker: Failure recorded",
		zap.String("name", cb.name),
		zap.Int("count", cb.failureCount),
		zap.Int("threshold", cb.failureThreshold),
	)

	// HALF_OPEN 상태의 실패는 즉시 OPEN
	if state == CircuitStateHalfOpen || cb.failureCount >= cb.failureThreshold {
		cb.openUntil = cb.now().Add(cb.resetTimeout)
		cb.transitionTo(CircuitStateOpen)
	}
}

// currentState must be called with the lock held.
func (cb *CircuitBreaker) currentState() CircuitState {
	if cb.state == CircuitStateOpen && !cb.now().Before(cb.openUntil) {
		cb.transitionTo(CircuitStateHalfOpen)
	}
	return cb.state
}

// transitionTo must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	oldState := cb.state
	cb.state = newState

	nextRetry := "n/a"
	if newState == CircuitStateOpen {
		nextRetry = cb.openUntil.Format(time.RFC3339)
	}

	cb.logger.Info("Circuit Breaker: State transition",
		zap.String("name", cb.name),
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("failure_count", cb.failureCount),
		zap.String("next_retry", nextRetry),
	)
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.logger.Info("Circuit Breaker: Manual reset", zap.String("name", cb.name))
	cb.state = CircuitStateClosed
	cb.failureCount = 0
	cb.openUntil = time.Time{}
}

func (cb *CircuitBreaker) Status() CircuitBreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := CircuitBreakerStatus{
		Name:         cb.name,
		State:        cb.currentState(),
		FailureCount: cb.failureCount,
	}
	if status.State == CircuitStateOpen {
		retryAt := cb.openUntil
		status.RetryAt = &retryAt
	}
	return status
}

type CircuitBreakerStatus struct {
	Name         string       `json:"name"`
	State        CircuitState `json:"state"`
	FailureCount int          `json:"failureCount"`
	RetryAt      *time.Time   `json:"retryAt,omitempty"`
}
