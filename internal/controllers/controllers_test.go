package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-board/internal/board"
	"github.com/yukikurage/task-board/internal/database"
	"github.com/yukikurage/task-board/internal/models"
	"github.com/yukikurage/task-board/internal/store"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var errStoreDown = errors.New("store is down")

// flakyStore fails task writes while failWrites is set.
type flakyStore struct {
	store.TaskStore
	failWrites bool
}

func (f *flakyStore) InsertTask(ctx context.Context, task *models.Task) error {
	if f.failWrites {
		return errStoreDown
	}
	return f.TaskStore.InsertTask(ctx, task)
}

func (f *flakyStore) UpdateTask(ctx context.Context, id, ownerID uint64, fields store.TaskFields) error {
	if f.failWrites {
		return errStoreDown
	}
	return f.TaskStore.UpdateTask(ctx, id, ownerID, fields)
}

type testEnv struct {
	ctx     context.Context
	db      *gorm.DB
	store   *flakyStore
	board   *board.State
	session *SessionController
	tasks   *TaskController
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), database.NewGormConfig("error"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	require.NoError(t, database.Migrate(db))

	fs := &flakyStore{TaskStore: store.NewGormStore(db)}
	b := board.New(fs)
	session := NewSessionController(fs, b, SessionOptions{
		AdminUsername: "admin",
		AdminPassword: "admin",
		HashCost:      bcrypt.MinCost,
	})
	t.Cleanup(b.Reset)

	return &testEnv{
		ctx:     context.Background(),
		db:      db,
		store:   fs,
		board:   b,
		session: session,
		tasks:   NewTaskController(fs, session),
	}
}

// waitForBoard waits until the board shows want tasks in total.
func (e *testEnv) waitForBoard(t *testing.T, want int) board.Snapshot {
	t.Helper()

	require.Eventually(t, func() bool {
		return e.board.Snapshot().Total() == want
	}, 2*time.Second, 5*time.Millisecond)
	return e.board.Snapshot()
}

func (e *testEnv) onlyTask(t *testing.T) models.Task {
	t.Helper()

	tasks := e.waitForBoard(t, 1)
	for _, status := range models.Statuses {
		if column := tasks.Column(status); len(column) == 1 {
			return column[0]
		}
	}
	t.Fatal("no task on board")
	return models.Task{}
}
