package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// EligibleUsers returns a task's ranked eligibility result. Unknown tasks
// yield an empty list, not a 404: "nobody is eligible" and "never evaluated"
// are indistinguishable to readers by design.
//
//	@Summary		Eligible users for a task
//	@Produce		json
//	@Tags			eligibility
//	@Param			taskID	path		int	true	"Task ID"
//	@Success		200		{object}	EligibleUsersResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/tasks/{taskID}/eligible-users [get]
func (a *API) EligibleUsers(c *gin.Context) {
	taskID, err := strconv.Atoi(c.Param("taskID"))
	if err != nil || taskID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "taskID must be a positive integer"})
		return
	}

	ranked := a.repo.LoadByTask(c.Request.Context(), taskID)

	users := make([]EligibleUser, 0, len(ranked))
	for _, r := range ranked {
		users = append(users, EligibleUser{UserID: r.UserID, Score: r.Score})
	}

	c.JSON(http.StatusOK, EligibleUsersResponse{TaskID: taskID, Users: users})
}

// MyEligibleTasks returns the tasks a user is currently eligible for.
//
//	@Summary		Tasks a user is eligible for
//	@Produce		json
//	@Tags			eligibility
//	@Param			user_id	query		int	true	"User ID"
//	@Success		200		{object}	MyEligibleTasksResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/my-eligible-tasks [get]
func (a *API) MyEligibleTasks(c *gin.Context) {
	userID, err := strconv.Atoi(c.Query("user_id"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id must be a positive integer"})
		return
	}

	tasks := a.repo.TasksForUser(c.Request.Context(), userID)
	if tasks == nil {
		tasks = []int{}
	}

	c.JSON(http.StatusOK, MyEligibleTasksResponse{UserID: userID, Tasks: tasks})
}
