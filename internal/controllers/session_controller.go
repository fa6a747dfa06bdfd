package controllers

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/models"
	"github.com/yukikurage/task-board/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Phase is the session's position in the LoggedOut/LoggedIn state machine.
type Phase int

const (
	PhaseLoggedOut Phase = iota
	PhaseLoggedIn
)

func (p Phase) String() string {
	if p == PhaseLoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// SessionState is the read-only session view handed to the UI. Error holds
// the message of the last rejected login or registration.
type SessionState struct {
	Phase Phase
	User  *models.User
	Error string
}

func (s SessionState) LoggedIn() bool {
	return s.Phase == PhaseLoggedIn
}

// BoardSubscriber is the board the session points at the logged-in user.
type BoardSubscriber interface {
	Subscribe(ctx context.Context, ownerID uint64) error
	Reset()
}

// SessionOptions configures a SessionController.
type SessionOptions struct {
	// AdminUsername and AdminPassword log in even before the account
	// exists; the first such login creates it. Empty disables this.
	AdminUsername string
	AdminPassword string

	// HashCost is the bcrypt cost for new passwords; 0 means bcrypt.DefaultCost.
	HashCost int
}

// SessionController owns login, registration and logout, and keeps the board
// subscribed to the logged-in user's tasks.
type SessionController struct {
	store store.TaskStore
	board BoardSubscriber
	opts  SessionOptions

	// transition serializes login, registration and logout so the board
	// always mirrors the user the session names.
	transition sync.Mutex

	mu        sync.RWMutex
	state     SessionState
	listeners []func(SessionState)
}

// NewSessionController creates a new SessionController
func NewSessionController(taskStore store.TaskStore, board BoardSubscriber, opts SessionOptions) *SessionController {
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &SessionController{
		store: taskStore,
		board: board,
		opts:  opts,
	}
}

// OnChange registers fn to run after every state change, outside any lock.
func (c *SessionController) OnChange(fn func(SessionState)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *SessionController) State() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentUserID implements OwnerSource.
func (c *SessionController) CurrentUserID() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.Phase != PhaseLoggedIn || c.state.User == nil {
		return 0, false
	}
	return c.state.User.ID, true
}

// Login verifies credentials and switches the session and board to the user.
func (c *SessionController) Login(ctx context.Context, username, password string) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return c.reject(err)
	}

	user, err := c.store.FindUserByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		if !c.isAdmin(username, password) {
			return c.reject(ErrInvalidCredentials)
		}
		log.Infof("Creating admin user %q on first login", username)
		user, err = c.createUser(ctx, username, password)
		if err != nil {
			return c.reject(err)
		}
		return c.enterNew(ctx, user)
	case err != nil:
		return apierrors.Store("find user", err)
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return c.reject(ErrInvalidCredentials)
		}
	}

	return c.enter(ctx, user)
}

// Register creates a user and logs them in.
func (c *SessionController) Register(ctx context.Context, username, password string) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return c.reject(err)
	}

	if _, err := c.store.FindUserByUsername(ctx, username); err == nil {
		return c.reject(ErrUsernameTaken)
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return apierrors.Store("check username", err)
	}

	user, err := c.createUser(ctx, username, password)
	if err != nil {
		return c.reject(err)
	}
	return c.enterNew(ctx, user)
}

// Logout ends the session and clears the board. The user record is kept.
func (c *SessionController) Logout() {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.logout()
}

func (c *SessionController) logout() {
	c.board.Reset()
	c.update(func(state *SessionState) {
		*state = SessionState{Phase: PhaseLoggedOut}
	})
}

// DeleteAccount deletes the logged-in user with all of their tasks, then
// logs out.
func (c *SessionController) DeleteAccount(ctx context.Context) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	userID, ok := c.CurrentUserID()
	if !ok {
		return ErrNotLoggedIn
	}

	if err := c.store.DeleteUser(ctx, userID); err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return apierrors.Store("delete account", err)
	}
	c.logout()
	return nil
}

// Resume logs the most recently created user back in without credentials.
// It reports false when there is no user to resume.
func (c *SessionController) Resume(ctx context.Context) (bool, error) {
	c.transition.Lock()
	defer c.transition.Unlock()

	user, err := c.store.FindLastUser(ctx)
	if errors.Is(err, store.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apierrors.Store("find last user", err)
	}

	if err := c.enter(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

func (c *SessionController) isAdmin(username, password string) bool {
	return c.opts.AdminUsername != "" &&
		username == c.opts.AdminUsername &&
		password == c.opts.AdminPassword
}

// createUser returns ErrUsernameTaken when the username exists, or a store error.
func (c *SessionController) createUser(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.opts.HashCost)
	if err != nil {
		return nil, apierrors.Store("hash password", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := c.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, apierrors.Store("create user", err)
	}
	return user, nil
}

// enter subscribes the board before switching the session, so a failed
// subscription leaves both unchanged.
func (c *SessionController) enter(ctx context.Context, user *models.User) error {
	if err := c.board.Subscribe(ctx, user.ID); err != nil {
		return apierrors.Store("load tasks", err)
	}

	c.update(func(state *SessionState) {
		*state = SessionState{Phase: PhaseLoggedIn, User: user}
	})
	log.Infof("User %q logged in", user.Username)
	return nil
}

// enterNew enters a user created by this call. If the board cannot be
// subscribed the user is deleted again, so a failed call leaves no record.
func (c *SessionController) enterNew(ctx context.Context, user *models.User) error {
	err := c.enter(ctx, user)
	if err == nil {
		return nil
	}

	if delErr := c.store.DeleteUser(context.WithoutCancel(ctx), user.ID); delErr != nil {
		log.Errorf("Failed to remove user %q after failed login: %v", user.Username, delErr)
	}
	return err
}

// reject records validation and authentication failures as the session's
// message. Store errors pass through without touching the state.
func (c *SessionController) reject(err error) error {
	if !apierrors.IsValidation(err) && !apierrors.IsAuth(err) {
		return err
	}

	c.update(func(state *SessionState) {
		state.Error = err.Error()
	})
	return err
}

func (c *SessionController) update(mutate func(*SessionState)) {
	c.mu.Lock()
	mutate(&c.state)
	state := c.state
	listeners := make([]func(SessionState), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func validateCredentials(username, password string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if strings.TrimSpace(password) == "" {
		return ErrPasswordRequired
	}
	return nil
}
