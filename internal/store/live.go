package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/task-board/internal/models"
	"github.com/yukikurage/task-board/internal/repository"
	"gorm.io/gorm"
)

// LiveStore implements TaskStore over the gorm repositories.
type LiveStore struct {
	tasks    repository.TaskRepository
	users    repository.UserRepository
	notifier Notifier

	// mu guards subs and is held while a refresh is queried and delivered,
	// so emissions for an owner go out in the order the writes completed.
	mu   sync.Mutex
	subs map[uint64]map[*subscription]struct{}
}

// Option configures a LiveStore.
type Option func(*LiveStore)

// WithNotifier replaces the in-process change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *LiveStore) {
		s.notifier = n
	}
}

// New creates a LiveStore and starts listening for change notifications.
func New(tasks repository.TaskRepository, users repository.UserRepository, opts ...Option) *LiveStore {
	s := &LiveStore{
		tasks: tasks,
		users: users,
		subs:  make(map[uint64]map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLocalNotifier()
	}
	s.notifier.Subscribe(s.refresh)
	return s
}

// NewGormStore wires a LiveStore directly onto a database handle.
func NewGormStore(db *gorm.DB, opts ...Option) *LiveStore {
	return New(repository.NewTaskRepository(db), repository.NewUserRepository(db), opts...)
}

// Close stops the change notifier.
func (s *LiveStore) Close() error {
	return s.notifier.Close()
}

// SubscribeByOwner registers a live query and emits the current list first.
func (s *LiveStore) SubscribeByOwner(ctx context.Context, ownerID uint64) (Subscription, error) {
	s.mu.Lock()
	tasks, err := s.tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	sub := &subscription{
		store:   s,
		ownerID: ownerID,
		ch:      make(chan []models.Task, 1),
	}
	if s.subs[ownerID] == nil {
		s.subs[ownerID] = make(map[*subscription]struct{})
	}
	s.subs[ownerID][sub] = struct{}{}
	sub.deliver(tasks)
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Cancel)
	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()

	return sub, nil
}

func (s *LiveStore) InsertTask(ctx context.Context, task *models.Task) error {
	if err := s.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	s.changed(ctx, task.OwnerID)
	return nil
}

func (s *LiveStore) UpdateTask(ctx context.Context, id, ownerID uint64, fields TaskFields) error {
	cols := fields.columns()
	if len(cols) == 0 {
		return nil
	}
	if err := s.tasks.UpdateFields(ctx, id, ownerID, cols); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	s.changed(ctx, ownerID)
	return nil
}

func (s *LiveStore) DeleteTask(ctx context.Context, id, ownerID uint64) error {
	if err := s.tasks.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.changed(ctx, ownerID)
	return nil
}

func (s *LiveStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *LiveStore) FindLastUser(ctx context.Context) (*models.User, error) {
	user, err := s.users.FindLast(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find last user: %w", err)
	}
	return user, nil
}

func (s *LiveStore) InsertUser(ctx context.Context, user *models.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *LiveStore) DeleteUser(ctx context.Context, id uint64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.changed(ctx, id)
	return nil
}

// changed announces a completed write. The write itself already succeeded,
// so a failed announcement is only logged.
func (s *LiveStore) changed(ctx context.Context, ownerID uint64) {
	if err := s.notifier.Publish(ctx, ownerID); err != nil {
		log.Warnf("Failed to publish change for owner %d: %v", ownerID, err)
	}
}

// refresh re-queries an owner's tasks and emits them to every subscriber.
func (s *LiveStore) refresh(ctx context.Context, ownerID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subs[ownerID]
	if len(subs) == 0 {
		return
	}

	tasks, err := s.tasks.ListByOwner(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		log.Errorf("Failed to refresh tasks for owner %d: %v", ownerID, err)
		return
	}
	for sub := range subs {
		sub.deliver(tasks)
	}
}

func (s *LiveStore) remove(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subs[sub.ownerID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(s.subs, sub.ownerID)
	}
	close(sub.ch)
}

type subscription struct {
	store   *LiveStore
	ownerID uint64
	ch      chan []models.Task
	once    sync.Once

	mu   sync.Mutex
	stop func() bool
}

func (s *subscription) Updates() <-chan []models.Task {
	return s.ch
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.store.remove(s)
	})
}

// deliver replaces any undelivered list with tasks. Callers hold store.mu,
// which makes this the only sender.
func (s *subscription) deliver(tasks []models.Task) {
	snapshot := make([]models.Task, len(tasks))
	copy(snapshot, tasks)

	select {
	case <-s.ch:
	default:
	}
	s.ch <- snapshot
}
