package handlers

import (
	"io"
	"net/http"

	"gioui.org/f32"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-board/internal/board"
	"github.com/yukikurage/task-board/internal/controllers"
	"github.com/yukikurage/task-board/internal/drag"
	"github.com/yukikurage/task-board/internal/dto"
	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/middleware"
	"github.com/yukikurage/task-board/internal/models"
	"github.com/yukikurage/task-board/internal/workspace"
)

// BoardHandler serves the board snapshot and the drag-and-drop gestures.
type BoardHandler struct{}

func NewBoardHandler() *BoardHandler {
	return &BoardHandler{}
}

// GetBoard returns the current partitioned board
func (h *BoardHandler) GetBoard(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardDTO(ws.Board.Snapshot()))
}

// StreamBoard pushes a "board" server-sent event after every change
func (h *BoardHandler) StreamBoard(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	updates, cancel := ws.Board.Watch()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("board", dto.ToBoardDTO(snap))
			return true
		}
	})
}

// GetDialog returns which dialog the board shows
func (h *BoardHandler) GetDialog(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToDialogDTO(ws.Dialog.Current()))
}

// SetDialog opens a dialog or returns to browsing. Editing needs a task
// from the current board.
func (h *BoardHandler) SetDialog(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.DialogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	mode, valid := board.ParseMode(req.Mode)
	if !valid {
		apierrors.RespondWithError(c, http.StatusBadRequest,
			apierrors.Validation("mode", "mode must be browsing, creating, editing or settings"))
		return
	}

	switch mode {
	case board.ModeCreating:
		ws.Dialog.OpenCreate()
	case board.ModeEditing:
		task, found := ws.Board.Snapshot().Find(req.TaskID)
		if !found {
			apierrors.NotFound(c, "Task not found")
			return
		}
		ws.Dialog.OpenEdit(task)
	case board.ModeSettings:
		ws.Dialog.OpenSettings()
	default:
		ws.Dialog.Dismiss()
	}

	c.JSON(http.StatusOK, dto.ToDialogDTO(ws.Dialog.Current()))
}

// SetColumnLayout records where a column is drawn on screen
func (h *BoardHandler) SetColumnLayout(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	status, valid := models.ParseStatus(c.Param("status"))
	if !valid {
		apierrors.Respond(c, controllers.ErrInvalidStatus)
		return
	}

	var req dto.ColumnLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ws.Drag.OnColumnLayout(status, drag.R(req.Left, req.Top, req.Right, req.Bottom))
	c.Status(http.StatusNoContent)
}

// DragStart begins dragging a task from its on-screen position
func (h *BoardHandler) DragStart(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.DragStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, found := ws.Board.Snapshot().Find(req.TaskID)
	if !found {
		apierrors.NotFound(c, "Task not found")
		return
	}

	ws.Drag.OnDragStart(task, f32.Pt(req.X, req.Y))
	c.JSON(http.StatusOK, dragState(ws))
}

// DragDelta moves the dragged task
func (h *BoardHandler) DragDelta(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.DragDeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ws.Drag.OnDragDelta(f32.Pt(req.DX, req.DY))
	c.JSON(http.StatusOK, dragState(ws))
}

// DragEnd drops the dragged task. A move, if any, is written in the background.
func (h *BoardHandler) DragEnd(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	intent, moved := ws.Drag.OnDragEnd()
	result := dto.DropResultDTO{Moved: moved}
	if moved {
		result.TaskID = intent.Task.ID
		result.Target = intent.Target
	}
	c.JSON(http.StatusOK, result)
}

func dragState(ws *workspace.Workspace) dto.DragStateDTO {
	task, pos := ws.Drag.Active()
	state := dto.DragStateDTO{X: pos.X, Y: pos.Y}
	if task != nil {
		state.Active = true
		state.TaskID = task.ID
	}
	return state
}

// workspaceAndTask fetches what RequireTaskAccess stored, answering the
// request itself when either is missing.
func workspaceAndTask(c *gin.Context) (*workspace.Workspace, models.Task, bool) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, models.Task{}, false
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return nil, models.Task{}, false
	}
	return ws, task, true
}
