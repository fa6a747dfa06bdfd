// Package workspace wires one user's board session: the session controller
// points the board at the logged-in user, drag gestures become move intents,
// and intents are written to the store in the background.
package workspace

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/task-board/internal/board"
	"github.com/yukikurage/task-board/internal/controllers"
	"github.com/yukikurage/task-board/internal/drag"
	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/store"
)

// Options configures a Workspace.
type Options struct {
	Session    controllers.SessionOptions
	ProbeInset float32

	// AutoResume logs new workspaces in as the most recently created user.
	AutoResume bool
}

type Workspace struct {
	ID      string
	Session *controllers.SessionController
	Tasks   *controllers.TaskController
	Board   *board.State
	Drag    *drag.Controller
	Dialog  *board.Dialog

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastUsed time.Time
	closed   bool
}

func New(id string, taskStore store.TaskStore, opts Options) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		ID:       id,
		Board:    board.New(taskStore),
		Dialog:   &board.Dialog{},
		ctx:      ctx,
		cancel:   cancel,
		lastUsed: time.Now(),
	}
	w.Session = controllers.NewSessionController(taskStore, w.Board, opts.Session)
	w.Tasks = controllers.NewTaskController(taskStore, w.Session)

	dragOpts := []drag.Option{drag.WithSink(w.onMove)}
	if opts.ProbeInset != 0 {
		dragOpts = append(dragOpts, drag.WithProbeInset(opts.ProbeInset))
	}
	w.Drag = drag.NewController(dragOpts...)

	w.Session.OnChange(func(state controllers.SessionState) {
		if !state.LoggedIn() {
			w.Dialog.Dismiss()
		}
	})
	return w
}

// Dispatch runs intent in the background and returns immediately. Failures
// are logged; the outcome becomes visible through the board subscription.
func (w *Workspace) Dispatch(name string, intent func(ctx context.Context) error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		log.WithField("workspace", w.ID).Warnf("Dropping %s on closed workspace", name)
		return
	}
	w.lastUsed = time.Now()
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		if err := intent(w.ctx); err != nil {
			entry := log.WithField("workspace", w.ID).WithField("intent", name)
			if apierrors.IsStore(err) {
				entry.Errorf("Intent failed: %v", err)
			} else {
				entry.Warnf("Intent rejected: %v", err)
			}
		}
	}()
}

// Wait blocks until every dispatched intent has finished.
func (w *Workspace) Wait() {
	w.wg.Wait()
}

// Touch marks the workspace as used now.
func (w *Workspace) Touch() {
	w.mu.Lock()
	w.lastUsed = time.Now()
	w.mu.Unlock()
}

// IdleSince returns the last time the workspace was used.
func (w *Workspace) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// Close cancels in-flight intents and stops the board subscription.
func (w *Workspace) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	w.Board.Reset()
}

func (w *Workspace) onMove(intent drag.MoveIntent) {
	w.Dispatch("move task", func(ctx context.Context) error {
		return w.Tasks.Move(ctx, intent.Task, intent.Target)
	})
}
