// Package assignments converts the top-ranked candidate of an evaluation
// into a durable assignment record at the task service. Publication is
// best-effort: a failed upsert is logged and swallowed, never rolled back
// into the eligibility computation.
package assignments

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/taskdesk/eligibility-service/internal/eligibility"
	httpclient "github.com/taskdesk/eligibility-service/internal/http"
)

// StatusAssigned is the status written for every engine-published assignment.
// Other statuses exist but are set externally and never by this service.
const StatusAssigned = "ASSIGNED"

var publishes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eligibility_assignment_publishes_total",
	Help: "Assignment publications by outcome",
}, []string{"outcome"}) // outcome: published, failed, skipped

// upsert is the assignment sink wire format. The sink keys on task_id, so
// posting the same task twice overwrites the prior assignment.
type upsert struct {
	TaskID int    `json:"task_id"`
	UserID int    `json:"user_id"`
	Status string `json:"status"`
}

// Publisher posts assignments to the task service.
type Publisher struct {
	baseURL string
	http    *httpclient.Client
	logger  zerolog.Logger
}

// NewPublisher creates a publisher for the given task service base URL.
func NewPublisher(baseURL string, http *httpclient.Client, logger zerolog.Logger) *Publisher {
	return &Publisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		logger:  logger.With().Str("component", "assignments").Logger(),
	}
}

// PublishTop upserts an assignment for the highest-ranked entry and returns
// the selected user ID, or nil when the ranked set is empty (the task simply
// stays unassigned). The selection is reported even when the sink is down so
// evaluation summaries stay accurate; eligibility results and the assignment
// record may diverge transiently.
func (p *Publisher) PublishTop(ctx context.Context, taskID int, ranked []eligibility.RankedUser) *int {
	if len(ranked) == 0 {
		publishes.WithLabelValues("skipped").Inc()
		return nil
	}

	top := ranked[0].UserID
	body := upsert{TaskID: taskID, UserID: top, Status: StatusAssigned}

	if err := p.http.PostJSON(ctx, p.baseURL+"/assignments", body); err != nil {
		publishes.WithLabelValues("failed").Inc()
		p.logger.Warn().
			Err(err).
			Int("task_id", taskID).
			Int("user_id", top).
			Msg("Assignment publication failed, eligibility results kept")
		return &top
	}

	publishes.WithLabelValues("published").Inc()
	p.logger.Info().
		Int("task_id", taskID).
		Int("user_id", top).
		Msg("Published assignment")
	return &top
}
