package repository

import (
	"context"

	"github.com/yukikurage/task-board/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// ListByOwner returns an owner's tasks ordered by due date, undated tasks last
func (r *GormTaskRepository) ListByOwner(ctx context.Context, ownerID uint64) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateFields writes only the given columns, so a status move and a title
// edit never overwrite each other.
func (r *GormTaskRepository) UpdateFields(ctx context.Context, id, ownerID uint64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Delete removes an owner's task
func (r *GormTaskRepository) Delete(ctx context.Context, id, ownerID uint64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
