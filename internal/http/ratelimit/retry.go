package ratelimit

import (
	"math"
	"math/rand"
	"strconv"
	"time"
)

// RequestError is returned when all retry attempts are exhausted.
type RequestError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *RequestError) Error() string {
	msg := "request to " + e.URL + " failed after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.LastStatus != 0 {
		msg += " (HTTP " + strconv.Itoa(e.LastStatus) + ")"
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() error {
	return e.LastError
}

// IsRetryableStatus reports whether an HTTP status code is worth retrying.
// Retryable: 429 and 5xx.
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// Backoff computes the exponential backoff delay for a given attempt, with
// 0-25% jitter to avoid synchronized retries.
func Backoff(attempt int, config Config) time.Duration {
	delay := float64(config.InitialBackoff) * math.Pow(2.0, float64(attempt))
	capped := math.Min(delay, float64(config.MaxBackoff))
	jitter := rand.Float64() * 0.25 * capped
	return time.Duration(capped + jitter)
}

// RateLimitBackoff computes the delay after an HTTP 429. A server-provided
// Retry-After wins; otherwise a steeper exponential curve (3x) is used.
func RateLimitBackoff(attempt int, config Config, retryAfter string) time.Duration {
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			jitter := time.Duration(rand.Int63n(int64(time.Second)))
			return time.Duration(seconds)*time.Second + jitter
		}
	}

	delay := float64(config.InitialBackoff) * math.Pow(3.0, float64(attempt))
	capped := math.Min(delay, float64(config.MaxBackoff))
	jitter := rand.Float64() * 0.25 * capped
	return time.Duration(capped + jitter)
}
