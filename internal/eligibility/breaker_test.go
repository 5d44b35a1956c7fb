package eligibility

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testBreaker(resetTimeout time.Duration) *Breaker {
	return NewBreaker(BreakerConfig{
		MaxFailures:      3,
		ResetTimeout:     resetTimeout,
		HalfOpenMaxCalls: 2,
	}, zerolog.Nop())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := testBreaker(time.Minute)
	errBoom := errors.New("boom")

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow())
		b.RecordFailure(errBoom)
	}

	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow(), "open breaker rejects calls")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := testBreaker(time.Minute)
	errBoom := errors.New("boom")

	b.RecordFailure(errBoom)
	b.RecordFailure(errBoom)
	b.RecordSuccess()
	b.RecordFailure(errBoom)
	b.RecordFailure(errBoom)

	assert.Equal(t, BreakerClosed, b.State(), "non-consecutive failures do not open the breaker")
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := testBreaker(10 * time.Millisecond)
	errBoom := errors.New("boom")

	for i := 0; i < 3; i++ {
		b.RecordFailure(errBoom)
	}
	assert.Equal(t, BreakerOpen, b.State())

	time.Sleep(20 * time.Millisecond)

	assert.True(t, b.Allow(), "reset timeout elapsed, probe allowed")
	assert.Equal(t, BreakerHalfOpen, b.State())

	b.RecordSuccess()
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State(), "enough probe successes close the breaker")
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := testBreaker(10 * time.Millisecond)
	errBoom := errors.New("boom")

	for i := 0; i < 3; i++ {
		b.RecordFailure(errBoom)
	}
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	b.RecordFailure(errBoom)
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
}
