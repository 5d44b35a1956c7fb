package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taskdesk/eligibility-service/internal/engine"
)

// Evaluate runs a synchronous evaluation.
//
//	@Summary		Evaluate task eligibility
//	@Description	Runs the full evaluation pipeline for a task and returns the summary, or a locked status when a concurrent evaluation holds the task.
//	@Tags			evaluation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		EvaluateRequest	true	"Task and rule set"
//	@Success		200		{object}	EvaluationSummary
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/evaluate [post]
func (a *API) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: task_id is required"})
		return
	}

	a.runEvaluation(c, *req.TaskID, req.Rules)
}

// Recompute is the lenient adapter over the same evaluation: task_id may
// arrive as a number or a numeric string, and rules are optional. Kept as a
// separate route because upstream producers already speak this shape.
//
//	@Summary		Recompute task eligibility
//	@Description	Lenient variant of /evaluate: accepts task_id as number or numeric string, rules optional.
//	@Tags			evaluation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object	true	"Task and optional rule set"
//	@Success		200		{object}	EvaluationSummary
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/recompute [post]
func (a *API) Recompute(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	taskID, ok := looseTaskID(body["task_id"])
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "task_id must be an integer"})
		return
	}

	rules, _ := body["rules"].(map[string]any)
	if rules == nil {
		rules = map[string]any{}
	}

	a.runEvaluation(c, taskID, rules)
}

// runEvaluation delegates to the engine and maps its outcomes onto the wire.
func (a *API) runEvaluation(c *gin.Context, taskID int, rules map[string]any) {
	summary, err := a.engine.Evaluate(c.Request.Context(), taskID, rules)
	if errors.Is(err, engine.ErrTaskLocked) {
		c.JSON(http.StatusOK, LockedResponse{TaskID: taskID, Status: "locked"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, EvaluationSummary{
		TaskID:         summary.TaskID,
		EligibleCount:  summary.EligibleCount,
		AssignedUserID: summary.AssignedUserID,
	})
}

// looseTaskID extracts a task ID from a decoded JSON value. JSON numbers
// arrive as float64; numeric strings are accepted for producers that quote
// their IDs.
func looseTaskID(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n == float64(int(n)) && n > 0 {
			return int(n), true
		}
	case int:
		if n > 0 {
			return n, true
		}
	case string:
		if id, err := strconv.Atoi(n); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}
