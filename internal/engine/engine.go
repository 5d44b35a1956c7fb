// Package engine composes the evaluation pipeline: lock, fetch, filter and
// rank, persist, publish. Every trigger — the synchronous API, the lenient
// recompute adapter and the queue consumer — funnels into the single
// Evaluate function so the semantics cannot drift between entry points.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskdesk/eligibility-service/internal/eligibility"
	"github.com/taskdesk/eligibility-service/internal/lock"
	"github.com/taskdesk/eligibility-service/internal/rules"
)

// ErrTaskLocked is returned when another evaluation holds the task lock.
// Contention is an expected outcome, not a failure; callers that need
// guaranteed execution re-enqueue instead of retrying here.
var ErrTaskLocked = errors.New("task is locked by a concurrent evaluation")

// CandidateSource supplies the candidate pool, read once per evaluation.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]rules.Candidate, error)
}

// ResultSink persists ranked results. Save degrades internally and never
// fails the evaluation.
type ResultSink interface {
	Save(ctx context.Context, taskID int, ranked []eligibility.RankedUser)
}

// AssignmentPublisher turns the top-ranked entry into a durable assignment.
// It reports the selected user even when the sink is unreachable.
type AssignmentPublisher interface {
	PublishTop(ctx context.Context, taskID int, ranked []eligibility.RankedUser) *int
}

// Summary is the outcome of one evaluation.
type Summary struct {
	TaskID         int  `json:"task_id"`
	EligibleCount  int  `json:"eligible_count"`
	AssignedUserID *int `json:"assigned_user_id"`
}

// Engine is the evaluation entry point.
type Engine struct {
	locks     lock.Manager
	source    CandidateSource
	results   ResultSink
	publisher AssignmentPublisher
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// New creates an engine over the given collaborators.
func New(locks lock.Manager, source CandidateSource, results ResultSink, publisher AssignmentPublisher, logger zerolog.Logger) *Engine {
	return &Engine{
		locks:     locks,
		source:    source,
		results:   results,
		publisher: publisher,
		tracer:    otel.Tracer("eligibility-engine"),
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// Evaluate runs one full evaluation for the task: acquire the lock, snapshot
// the candidate pool, filter and rank, persist, publish the top candidate,
// release the lock. On contention it returns ErrTaskLocked without doing any
// work. A candidate fetch failure aborts with nothing saved; every later
// step degrades instead of failing.
func (e *Engine) Evaluate(ctx context.Context, taskID int, rawRules map[string]any) (Summary, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Evaluate",
		trace.WithAttributes(attribute.Int("task.id", taskID)))
	defer span.End()

	start := time.Now()

	if !e.locks.TryAcquire(ctx, taskID) {
		evaluations.WithLabelValues("locked").Inc()
		span.SetAttributes(attribute.String("evaluation.outcome", "locked"))
		e.logger.Info().Int("task_id", taskID).Msg("Evaluation rejected, task is locked")
		return Summary{}, ErrTaskLocked
	}
	defer e.locks.Release(ctx, taskID)

	candidates, err := e.source.Candidates(ctx)
	if err != nil {
		evaluations.WithLabelValues("fetch_failed").Inc()
		span.SetAttributes(attribute.String("evaluation.outcome", "fetch_failed"))
		e.logger.Error().
			Err(err).
			Int("task_id", taskID).
			Msg("Candidate pool unavailable, evaluation aborted with nothing saved")
		return Summary{}, err
	}

	ruleSet := rules.Decode(rawRules)
	ranked := rules.Evaluate(candidates, ruleSet)

	result := make([]eligibility.RankedUser, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, eligibility.RankedUser{UserID: r.Candidate.ID, Score: r.Score})
	}

	e.results.Save(ctx, taskID, result)
	assigned := e.publisher.PublishTop(ctx, taskID, result)

	evaluations.WithLabelValues("completed").Inc()
	evaluationDuration.Observe(time.Since(start).Seconds())
	eligibleCount.Observe(float64(len(result)))
	span.SetAttributes(
		attribute.String("evaluation.outcome", "completed"),
		attribute.Int("evaluation.eligible_count", len(result)),
	)

	evt := e.logger.Info().
		Int("task_id", taskID).
		Int("pool_size", len(candidates)).
		Int("eligible_count", len(result)).
		Dur("duration", time.Since(start))
	if assigned != nil {
		evt = evt.Int("assigned_user_id", *assigned)
	}
	evt.Msg("Evaluation completed")

	return Summary{TaskID: taskID, EligibleCount: len(result), AssignedUserID: assigned}, nil
}
