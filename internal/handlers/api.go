// Package handlers exposes the evaluation engine and the eligibility reads
// over HTTP. Handlers are thin adapters: decode, delegate, encode — every
// semantic lives in the engine and the repository.
package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/taskdesk/eligibility-service/internal/eligibility"
	"github.com/taskdesk/eligibility-service/internal/engine"
	"github.com/taskdesk/eligibility-service/internal/queue"
)

// API bundles the handler dependencies. Everything is injected so handlers
// can be tested against fakes without a running backend.
type API struct {
	engine    *engine.Engine
	repo      *eligibility.Repository
	queue     *queue.Queue
	startedAt time.Time
	logger    zerolog.Logger
}

// NewAPI creates the handler set.
func NewAPI(eng *engine.Engine, repo *eligibility.Repository, q *queue.Queue, logger zerolog.Logger) *API {
	return &API{
		engine:    eng,
		repo:      repo,
		queue:     q,
		startedAt: time.Now(),
		logger:    logger.With().Str("component", "handlers").Logger(),
	}
}
