package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-board/internal/controllers"
	"github.com/yukikurage/task-board/internal/dto"
	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/middleware"
	"github.com/yukikurage/task-board/internal/models"
)

// TaskHandler exposes the task intents. Successful intents answer 202: the
// change itself arrives through the board snapshot.
type TaskHandler struct{}

func NewTaskHandler() *TaskHandler {
	return &TaskHandler{}
}

// CreateTask adds a pending task to the current user's board
func (h *TaskHandler) CreateTask(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	priority, valid := models.ParsePriority(req.Priority)
	if !valid {
		apierrors.Respond(c, controllers.ErrInvalidPriority)
		return
	}

	err := ws.Tasks.Add(c.Request.Context(), controllers.AddTaskInput{
		Title:    req.Title,
		Subject:  req.Subject,
		DueDate:  req.DueDate,
		Priority: priority,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	ws, task, ok := workspaceAndTask(c)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	patch := controllers.TaskPatch{
		Title:   req.Title,
		Subject: req.Subject,
		DueDate: req.DueDate,
	}
	if req.Priority != nil {
		priority, valid := models.ParsePriority(*req.Priority)
		if !valid {
			apierrors.Respond(c, controllers.ErrInvalidPriority)
			return
		}
		patch.Priority = &priority
	}
	if req.Status != nil {
		status, valid := models.ParseStatus(*req.Status)
		if !valid {
			apierrors.Respond(c, controllers.ErrInvalidStatus)
			return
		}
		patch.Status = &status
	}

	if err := ws.Tasks.Edit(c.Request.Context(), task, patch); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// MoveTask changes only a task's column
func (h *TaskHandler) MoveTask(c *gin.Context) {
	ws, task, ok := workspaceAndTask(c)
	if !ok {
		return
	}

	var req dto.MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	status, valid := models.ParseStatus(req.Status)
	if !valid {
		apierrors.Respond(c, controllers.ErrInvalidStatus)
		return
	}

	if err := ws.Tasks.Move(c.Request.Context(), task, status); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	ws, task, ok := workspaceAndTask(c)
	if !ok {
		return
	}

	if err := ws.Tasks.Delete(c.Request.Context(), task); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}
