// Package store is the durable task and user store behind the board. Besides
// plain reads and writes it offers a live query per owner: every successful
// write re-emits that owner's full task list to its subscribers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/task-board/internal/models"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
)

// TaskStore is the store contract consumed by the board controllers.
type TaskStore interface {
	SubscribeByOwner(ctx context.Context, ownerID uint64) (Subscription, error)

	InsertTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, id, ownerID uint64, fields TaskFields) error
	DeleteTask(ctx context.Context, id, ownerID uint64) error

	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindLastUser(ctx context.Context) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uint64) error
}

// Subscription is a live sequence of an owner's task lists. Updates is
// closed once the subscription is cancelled.
type Subscription interface {
	Updates() <-chan []models.Task
	Cancel()
}

// TaskFields selects the task columns an update writes. Nil fields are left
// untouched.
type TaskFields struct {
	Title        *string
	Subject      *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
}

// IsEmpty reports whether the update would write nothing.
func (f TaskFields) IsEmpty() bool {
	return len(f.columns()) == 0
}

func (f TaskFields) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if f.Title != nil {
		cols["title"] = *f.Title
	}
	if f.Subject != nil {
		cols["subject"] = *f.Subject
	}
	if f.ClearDueDate {
		cols["due_date"] = nil
	} else if f.DueDate != nil {
		cols["due_date"] = *f.DueDate
	}
	if f.Status != nil {
		cols["status"] = *f.Status
	}
	if f.Priority != nil {
		cols["priority"] = *f.Priority
	}
	return cols
}
