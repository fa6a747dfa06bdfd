package database

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/task-board/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the composite index backing the board's live query.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		name    string
		columns string
	}{
		// Subscribe-by-owner filters on owner and orders by due date
		{"idx_tasks_owner_due_date", "owner_id, due_date, id"},
		// Column counts per owner
		{"idx_tasks_owner_status", "owner_id, status"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			log.Debugf("Index %s already exists, skipping", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Infof("Created index %s on tasks(%s)", idx.name, idx.columns)
	}

	return nil
}
