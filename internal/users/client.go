// Package users fetches the candidate pool from the external user service.
// The pool is read once per evaluation and treated as an immutable snapshot;
// later writes to it do not retroactively affect a finished evaluation.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	httpclient "github.com/taskdesk/eligibility-service/internal/http"
	"github.com/taskdesk/eligibility-service/internal/rules"
)

// Client reads candidates from the user service.
type Client struct {
	baseURL string
	http    *httpclient.Client
	logger  zerolog.Logger
}

// NewClient creates a candidate pool client for the given user service base
// URL.
func NewClient(baseURL string, http *httpclient.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		logger:  logger.With().Str("component", "users").Logger(),
	}
}

// Candidates returns the full candidate pool. A fetch failure aborts the
// calling evaluation; there is no cached or partial pool to fall back to.
func (c *Client) Candidates(ctx context.Context) ([]rules.Candidate, error) {
	url := c.baseURL + "/users"

	var pool []rules.Candidate
	if err := c.http.GetJSON(ctx, url, &pool); err != nil {
		return nil, fmt.Errorf("error fetching candidate pool: %w", err)
	}

	c.logger.Debug().Int("count", len(pool)).Msg("Fetched candidate pool")
	return pool, nil
}
