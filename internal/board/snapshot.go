package board

import "github.com/yukikurage/task-board/internal/models"

// Snapshot is the board derived from one task list: the tasks partitioned
// into the three status columns.
type Snapshot struct {
	Pending    []models.Task `json:"pending"`
	InProgress []models.Task `json:"in_progress"`
	Completed  []models.Task `json:"completed"`
}

// Partition groups tasks by status, keeping their relative order. Tasks with
// an unknown status are dropped.
func Partition(tasks []models.Task) Snapshot {
	snap := Snapshot{
		Pending:    []models.Task{},
		InProgress: []models.Task{},
		Completed:  []models.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusPending:
			snap.Pending = append(snap.Pending, t)
		case models.TaskStatusInProgress:
			snap.InProgress = append(snap.InProgress, t)
		case models.TaskStatusCompleted:
			snap.Completed = append(snap.Completed, t)
		}
	}
	return snap
}

// Column returns the partition for status, or nil for an unknown status.
func (s Snapshot) Column(status models.TaskStatus) []models.Task {
	switch status {
	case models.TaskStatusPending:
		return s.Pending
	case models.TaskStatusInProgress:
		return s.InProgress
	case models.TaskStatusCompleted:
		return s.Completed
	}
	return nil
}

func (s Snapshot) Total() int {
	return len(s.Pending) + len(s.InProgress) + len(s.Completed)
}

// Progress is the completed fraction of the board, 0 for an empty board.
func (s Snapshot) Progress() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(len(s.Completed)) / float64(total)
}

// Find looks a task up by id across all columns.
func (s Snapshot) Find(id uint64) (models.Task, bool) {
	for _, status := range models.Statuses {
		for _, t := range s.Column(status) {
			if t.ID == id {
				return t, true
			}
		}
	}
	return models.Task{}, false
}
