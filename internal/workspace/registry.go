package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/task-board/internal/store"
)

// Registry keeps one Workspace per client session.
type Registry struct {
	store store.TaskStore
	opts  Options

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(taskStore store.TaskStore, opts Options) *Registry {
	return &Registry{
		store:      taskStore,
		opts:       opts,
		workspaces: make(map[string]*Workspace),
	}
}

// Create starts a workspace under a fresh id.
func (r *Registry) Create(ctx context.Context) *Workspace {
	w := New(uuid.NewString(), r.store, r.opts)
	if r.opts.AutoResume {
		if _, err := w.Session.Resume(ctx); err != nil {
			log.WithField("workspace", w.ID).Errorf("Failed to resume last user: %v", err)
		}
	}

	r.mu.Lock()
	r.workspaces[w.ID] = w
	r.mu.Unlock()
	return w
}

// Get returns the workspace with id and marks it used.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	w, ok := r.workspaces[id]
	r.mu.Unlock()

	if ok {
		w.Touch()
	}
	return w, ok
}

// Remove closes and forgets the workspace with id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	w, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()

	if ok {
		w.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep closes workspaces unused for longer than maxIdle, or longer than
// maxIdleLoggedOut when nobody is logged in, and returns how many were closed.
func (r *Registry) Sweep(maxIdle, maxIdleLoggedOut time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxIdle)
	loggedOutCutoff := now.Add(-maxIdleLoggedOut)

	r.mu.Lock()
	var idle []*Workspace
	for id, w := range r.workspaces {
		limit := cutoff
		if !w.Session.State().LoggedIn() {
			limit = loggedOutCutoff
		}
		if w.IdleSince().Before(limit) {
			idle = append(idle, w)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range idle {
		w.Close()
	}
	if len(idle) > 0 {
		log.Infof("Closed %d idle workspaces", len(idle))
	}
	return len(idle)
}

// Close closes every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
}
