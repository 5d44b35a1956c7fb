// Package ratelimit holds the pacing and retry policy for outbound service
// calls. The user service and the assignment sink are shared infrastructure;
// this keeps one misbehaving evaluation burst from hammering either.
package ratelimit

import "time"

// Config holds outbound rate limiting and retry configuration.
type Config struct {
	RequestsPerSecond int           `json:"requestsPerSecond"`
	Burst             int           `json:"burst"`
	MaxRetries        int           `json:"maxRetries"`
	InitialBackoff    time.Duration `json:"initialBackoff"`
	MaxBackoff        time.Duration `json:"maxBackoff"`
}

// DefaultConfig returns the default outbound call policy.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 50,
		Burst:             100,
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
	}
}
