package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/models"
	"github.com/yukikurage/task-board/internal/store"
)

// OwnerSource reports the user whose tasks are being edited.
type OwnerSource interface {
	CurrentUserID() (uint64, bool)
}

// TaskController validates task intents and forwards them to the store. It
// returns no task data: results reach the UI through the board subscription.
type TaskController struct {
	store store.TaskStore
	owner OwnerSource
}

// NewTaskController creates a new TaskController
func NewTaskController(taskStore store.TaskStore, owner OwnerSource) *TaskController {
	return &TaskController{
		store: taskStore,
		owner: owner,
	}
}

// AddTaskInput represents input for creating a task
type AddTaskInput struct {
	Title    string
	Subject  string
	DueDate  string
	Priority models.TaskPriority
}

// TaskPatch represents a partial task update. A nil field is left as is; an
// empty DueDate clears the due date.
type TaskPatch struct {
	Title    *string
	Subject  *string
	DueDate  *string
	Priority *models.TaskPriority
	Status   *models.TaskStatus
}

// Add creates a pending task for the current owner.
func (c *TaskController) Add(ctx context.Context, input AddTaskInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ErrTitleRequired
	}

	ownerID, ok := c.owner.CurrentUserID()
	if !ok {
		return ErrNotLoggedIn
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.IsValid() {
		return ErrInvalidPriority
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return err
	}

	task := &models.Task{
		OwnerID:  ownerID,
		Title:    title,
		Subject:  strings.TrimSpace(input.Subject),
		DueDate:  dueDate,
		Status:   models.TaskStatusPending,
		Priority: priority,
	}

	if err := c.store.InsertTask(ctx, task); err != nil {
		return apierrors.Store("add task", err)
	}
	return nil
}

// Edit applies patch to task. Fields absent from the patch, and the task's
// id and owner, are never written.
func (c *TaskController) Edit(ctx context.Context, task models.Task, patch TaskPatch) error {
	ownerID, err := c.ownerOf(task)
	if err != nil {
		return err
	}

	var fields store.TaskFields
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return ErrTitleRequired
		}
		fields.Title = &title
	}
	if patch.Subject != nil {
		subject := strings.TrimSpace(*patch.Subject)
		fields.Subject = &subject
	}
	if patch.DueDate != nil {
		dueDate, err := parseDueDate(*patch.DueDate)
		if err != nil {
			return err
		}
		fields.DueDate = dueDate
		fields.ClearDueDate = dueDate == nil
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			return ErrInvalidPriority
		}
		fields.Priority = patch.Priority
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return ErrInvalidStatus
		}
		fields.Status = patch.Status
	}

	if fields.IsEmpty() {
		return nil
	}
	return c.update(ctx, "edit task", task.ID, ownerID, fields)
}

// Move changes only the task's status. Moving to the current status is a no-op.
func (c *TaskController) Move(ctx context.Context, task models.Task, status models.TaskStatus) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	ownerID, err := c.ownerOf(task)
	if err != nil {
		return err
	}

	if task.Status == status {
		return nil
	}
	return c.update(ctx, "move task", task.ID, ownerID, store.TaskFields{Status: &status})
}

// Delete removes the task with task.ID.
func (c *TaskController) Delete(ctx context.Context, task models.Task) error {
	ownerID, err := c.ownerOf(task)
	if err != nil {
		return err
	}

	if err := c.store.DeleteTask(ctx, task.ID, ownerID); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return apierrors.Store("delete task", err)
	}
	return nil
}

func (c *TaskController) update(ctx context.Context, op string, id, ownerID uint64, fields store.TaskFields) error {
	if err := c.store.UpdateTask(ctx, id, ownerID, fields); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return apierrors.Store(op, err)
	}
	return nil
}

// ownerOf returns the current owner, or ErrTaskNotFound when task belongs to
// someone else so that other users' tasks stay invisible.
func (c *TaskController) ownerOf(task models.Task) (uint64, error) {
	ownerID, ok := c.owner.CurrentUserID()
	if !ok {
		return 0, ErrNotLoggedIn
	}
	if task.OwnerID != ownerID {
		return 0, ErrTaskNotFound
	}
	return ownerID, nil
}

func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	due, err := time.Parse(models.DueDateLayout, raw)
	if err != nil {
		return nil, ErrInvalidDueDate
	}
	return &due, nil
}
