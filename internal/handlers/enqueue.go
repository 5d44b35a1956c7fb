package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskdesk/eligibility-service/internal/queue"
)

// Enqueue queues an asynchronous recompute job. When the queue backend is
// down the request degrades to a synchronous evaluation, mirroring the
// producer-side fallback of the task service: a rule change must never be
// lost just because Redis is.
//
//	@Summary		Enqueue a recompute job
//	@Description	Queues an asynchronous evaluation. Falls back to a synchronous evaluation when the queue backend is unavailable.
//	@Tags			evaluation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		EvaluateRequest	true	"Task and rule set"
//	@Success		202		{object}	EnqueueAcceptedResponse
//	@Success		200		{object}	EvaluationSummary	"Synchronous fallback result"
//	@Failure		400		{object}	ErrorResponse
//	@Router			/enqueue [post]
func (a *API) Enqueue(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: task_id is required"})
		return
	}

	rules := req.Rules
	if rules == nil {
		rules = map[string]any{}
	}

	job, err := a.queue.Enqueue(c.Request.Context(), queue.Job{TaskID: *req.TaskID, Rules: rules})
	if err != nil {
		a.logger.Warn().
			Err(err).
			Int("task_id", *req.TaskID).
			Msg("Queue unavailable, falling back to synchronous evaluation")
		a.runEvaluation(c, *req.TaskID, rules)
		return
	}

	c.JSON(http.StatusAccepted, EnqueueAcceptedResponse{
		Queued: true,
		JobID:  job.JobID,
		TaskID: job.TaskID,
	})
}
