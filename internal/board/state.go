// Package board holds the live, partitioned view of the current owner's
// tasks and the board's dialog mode.
package board

import (
	"context"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/task-board/internal/models"
	"github.com/yukikurage/task-board/internal/store"
)

// State mirrors one owner's task list from a store subscription. At most one
// subscription is active; emissions from a superseded one are discarded.
type State struct {
	store store.TaskStore
	less  func(a, b models.Task) bool

	mu       sync.RWMutex
	gen      uint64
	sub      store.Subscription
	ownerID  uint64
	tasks    []models.Task
	snapshot Snapshot
	watchers map[chan Snapshot]struct{}
}

// Option configures a State.
type Option func(*State)

// WithOrdering sorts every partition with less. Without it partitions keep
// the store's order.
func WithOrdering(less func(a, b models.Task) bool) Option {
	return func(s *State) {
		s.less = less
	}
}

// ByDueDate orders undated tasks last, then by id.
func ByDueDate(a, b models.Task) bool {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return a.ID < b.ID
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	case !a.DueDate.Equal(*b.DueDate):
		return a.DueDate.Before(*b.DueDate)
	}
	return a.ID < b.ID
}

func New(taskStore store.TaskStore, opts ...Option) *State {
	s := &State{
		store:    taskStore,
		snapshot: Partition(nil),
		watchers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe starts mirroring ownerID's tasks, replacing any prior
// subscription. On error the current state is left as it was. The
// subscription outlives ctx and ends on Reset or the next Subscribe.
func (s *State) Subscribe(ctx context.Context, ownerID uint64) error {
	sub, err := s.store.SubscribeByOwner(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	prev := s.sub
	s.sub = sub
	s.ownerID = ownerID
	s.setTasksLocked(nil)
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	s.broadcast()

	go s.consume(gen, sub)
	return nil
}

// Reset cancels the subscription and clears the task list.
func (s *State) Reset() {
	s.mu.Lock()
	s.gen++
	prev := s.sub
	s.sub = nil
	s.ownerID = 0
	s.setTasksLocked(nil)
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	s.broadcast()
}

// OwnerID returns the owner currently mirrored, if any.
func (s *State) OwnerID() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID, s.sub != nil
}

// Tasks returns a copy of the full task list.
func (s *State) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]models.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks
}

// Snapshot returns the current partitioned board. The slices must not be modified.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Progress returns the completed fraction of the current board.
func (s *State) Progress() float64 {
	return s.Snapshot().Progress()
}

// Watch returns a channel receiving the latest snapshot after every change.
// A slow reader only sees the most recent one. cancel closes the channel.
func (s *State) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	ch <- s.snapshot
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, ch)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *State) consume(gen uint64, sub store.Subscription) {
	for tasks := range sub.Updates() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.setTasksLocked(tasks)
		s.mu.Unlock()

		s.broadcast()
	}
	log.Debugf("Board subscription %d closed", gen)
}

func (s *State) setTasksLocked(tasks []models.Task) {
	s.tasks = tasks
	snap := Partition(tasks)
	if s.less != nil {
		for _, column := range [][]models.Task{snap.Pending, snap.InProgress, snap.Completed} {
			sort.SliceStable(column, func(i, j int) bool {
				return s.less(column[i], column[j])
			})
		}
	}
	s.snapshot = snap
}

func (s *State) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- s.snapshot
	}
}
