package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/task-board/internal/models"
)

// ErrNoRowsAffected is returned by owner-scoped writes that matched no task.
var ErrNoRowsAffected = errors.New("repository: no rows affected")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// ListByOwner returns all of an owner's tasks in board order
	ListByOwner(ctx context.Context, ownerID uint64) ([]models.Task, error)

	// UpdateFields writes only the given columns of an owner's task
	UpdateFields(ctx context.Context, id, ownerID uint64, fields map[string]interface{}) error

	// Delete removes an owner's task
	Delete(ctx context.Context, id, ownerID uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindLast finds the most recently created user
	FindLast(ctx context.Context) (*models.User, error)

	// Delete removes a user and all of their tasks
	Delete(ctx context.Context, id uint64) error
}
