package models

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Statuses lists the board columns in declaration order.
var Statuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

// IsValid reports whether s is one of the board columns.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// ParseStatus accepts the canonical name in any case, with '-' or ' ' in place of '_'.
func ParseStatus(raw string) (TaskStatus, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	s := TaskStatus(normalized)
	return s, s.IsValid()
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// ParsePriority is case-insensitive. An empty string yields TaskPriorityMedium.
func ParsePriority(raw string) (TaskPriority, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TaskPriorityMedium, true
	}
	p := TaskPriority(strings.ToUpper(raw))
	return p, p.IsValid()
}

// DueDateLayout is the wire format for due dates.
const DueDateLayout = "2006-01-02"

type Task struct {
	ID        uint64       `gorm:"primarykey" json:"id"`
	OwnerID   uint64       `gorm:"not null;index" json:"owner_id"`
	Title     string       `gorm:"type:varchar(255);not null" json:"title"`
	Subject   string       `gorm:"type:varchar(255)" json:"subject"`
	DueDate   *time.Time   `gorm:"index" json:"due_date"`
	Status    TaskStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Priority  TaskPriority `gorm:"type:varchar(10);not null;default:'MEDIUM'" json:"priority"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
