package dto

import (
	"time"

	"github.com/yukikurage/task-board/internal/board"
	"github.com/yukikurage/task-board/internal/controllers"
	"github.com/yukikurage/task-board/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// SessionDTO represents the session state in API responses
type SessionDTO struct {
	Phase string   `json:"phase"`
	User  *UserDTO `json:"user,omitempty"`
	Error string   `json:"error,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID        uint64              `json:"id"`
	Title     string              `json:"title"`
	Subject   string              `json:"subject"`
	DueDate   string              `json:"due_date,omitempty"`
	Status    models.TaskStatus   `json:"status"`
	Priority  models.TaskPriority `json:"priority"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// BoardDTO represents the partitioned board with its progress
type BoardDTO struct {
	Pending    []TaskDTO `json:"pending"`
	InProgress []TaskDTO `json:"in_progress"`
	Completed  []TaskDTO `json:"completed"`
	Total      int       `json:"total"`
	Progress   float64   `json:"progress"`
}

// DragStateDTO describes the drag session after a gesture event
type DragStateDTO struct {
	Active bool    `json:"active"`
	TaskID uint64  `json:"task_id,omitempty"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

// DropResultDTO is the outcome of ending a drag
type DropResultDTO struct {
	Moved  bool              `json:"moved"`
	TaskID uint64            `json:"task_id,omitempty"`
	Target models.TaskStatus `json:"target,omitempty"`
}

// DialogDTO is the board's dialog mode and, while editing, the task
type DialogDTO struct {
	Mode   string `json:"mode"`
	TaskID uint64 `json:"task_id,omitempty"`
}

// Request bodies

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateTaskRequest struct {
	Title    string `json:"title"`
	Subject  string `json:"subject"`
	DueDate  string `json:"due_date"`
	Priority string `json:"priority"`
}

type UpdateTaskRequest struct {
	Title    *string `json:"title"`
	Subject  *string `json:"subject"`
	DueDate  *string `json:"due_date"`
	Priority *string `json:"priority"`
	Status   *string `json:"status"`
}

type MoveTaskRequest struct {
	Status string `json:"status" binding:"required"`
}

type ColumnLayoutRequest struct {
	Left   float32 `json:"left"`
	Top    float32 `json:"top"`
	Right  float32 `json:"right"`
	Bottom float32 `json:"bottom"`
}

type DragStartRequest struct {
	TaskID uint64  `json:"task_id" binding:"required"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

type DialogRequest struct {
	Mode   string `json:"mode" binding:"required"`
	TaskID uint64 `json:"task_id"`
}

type DragDeltaRequest struct {
	DX float32 `json:"dx"`
	DY float32 `json:"dy"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToSessionDTO converts a SessionState to SessionDTO
func ToSessionDTO(state controllers.SessionState) SessionDTO {
	dto := SessionDTO{
		Phase: state.Phase.String(),
		Error: state.Error,
	}
	if state.User != nil {
		user := ToUserDTO(*state.User)
		dto.User = &user
	}
	return dto
}

// ToDialogDTO converts a dialog mode and edited task to DialogDTO
func ToDialogDTO(mode board.Mode, editing *models.Task) DialogDTO {
	dto := DialogDTO{Mode: mode.String()}
	if editing != nil {
		dto.TaskID = editing.ID
	}
	return dto
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:        task.ID,
		Title:     task.Title,
		Subject:   task.Subject,
		Status:    task.Status,
		Priority:  task.Priority,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
	if task.DueDate != nil {
		dto.DueDate = task.DueDate.Format(models.DueDateLayout)
	}
	return dto
}

// ToBoardDTO converts a board Snapshot to BoardDTO
func ToBoardDTO(snap board.Snapshot) BoardDTO {
	return BoardDTO{
		Pending:    toTaskDTOs(snap.Pending),
		InProgress: toTaskDTOs(snap.InProgress),
		Completed:  toTaskDTOs(snap.Completed),
		Total:      snap.Total(),
		Progress:   snap.Progress(),
	}
}

func toTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}
