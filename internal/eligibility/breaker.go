package eligibility

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BreakerState represents the state of the store circuit breaker.
type BreakerState int

const (
	// BreakerClosed allows store calls through.
	BreakerClosed BreakerState = iota

	// BreakerOpen skips store calls immediately.
	BreakerOpen

	// BreakerHalfOpen allows a few probe calls to check for recovery.
	BreakerHalfOpen
)

// String returns the string representation of the breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for the store circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening.
	MaxFailures int

	// ResetTimeout is how long to wait before probing again (half-open).
	ResetTimeout time.Duration

	// HalfOpenMaxCalls is the number of probe calls allowed in half-open.
	HalfOpenMaxCalls int
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// Breaker keeps a flapping store from slowing every read down: after
// MaxFailures consecutive errors the store layer is skipped until the reset
// timeout passes, and readers serve from the remaining layers meanwhile.
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failureCount int
	successCount int
	lastFailure  time.Time
	config       BreakerConfig
	logger       zerolog.Logger
}

// NewBreaker creates a circuit breaker with the given configuration.
func NewBreaker(config BreakerConfig, logger zerolog.Logger) *Breaker {
	if config.MaxFailures <= 0 {
		config = DefaultBreakerConfig()
	}
	return &Breaker{
		state:  BreakerClosed,
		config: config,
		logger: logger.With().Str("component", "store-breaker").Logger(),
	}
}

// Allow reports whether a store call should be attempted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true

	case BreakerOpen:
		if time.Since(b.lastFailure) >= b.config.ResetTimeout {
			b.state = BreakerHalfOpen
			b.successCount = 0
			b.logger.Info().Msg("Store breaker transitioning to half-open")
			return true
		}
		return false

	case BreakerHalfOpen:
		return b.successCount < b.config.HalfOpenMaxCalls

	default:
		return false
	}
}

// RecordSuccess records a successful store call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failureCount = 0

	case BreakerHalfOpen:
		b.successCount++
		if b.successCount >= b.config.HalfOpenMaxCalls {
			b.state = BreakerClosed
			b.failureCount = 0
			b.successCount = 0
			b.logger.Info().Msg("Store breaker closing after recovery")
		}
	}
}

// RecordFailure records a failed store call.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = time.Now()

	switch b.state {
	case BreakerClosed:
		if b.failureCount >= b.config.MaxFailures {
			b.state = BreakerOpen
			b.logger.Warn().
				Err(err).
				Int("failure_count", b.failureCount).
				Dur("reset_timeout", b.config.ResetTimeout).
				Msg("Store breaker opening after consecutive failures")
		}

	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.successCount = 0
		b.logger.Warn().
			Err(err).
			Msg("Store breaker re-opening after failure in half-open state")
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
