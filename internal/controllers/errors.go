package controllers

import apierrors "github.com/yukikurage/task-board/internal/errors"

// Validation errors leave all state unchanged.
var (
	ErrTitleRequired    = apierrors.Validation("title", "title is required")
	ErrInvalidPriority  = apierrors.Validation("priority", "priority must be LOW, MEDIUM or HIGH")
	ErrInvalidStatus    = apierrors.Validation("status", "status must be PENDING, IN_PROGRESS or COMPLETED")
	ErrInvalidDueDate   = apierrors.Validation("due_date", "due date must use the YYYY-MM-DD format")
	ErrUsernameRequired = apierrors.Validation("username", "username is required")
	ErrPasswordRequired = apierrors.Validation("password", "password is required")
)

// Authentication errors are surfaced on the session and leave its phase unchanged.
var (
	ErrInvalidCredentials = apierrors.Auth("invalid username or password")
	ErrUsernameTaken      = apierrors.Auth("username already exists")
	ErrNotLoggedIn        = apierrors.Auth("no user is logged in")
)

var ErrTaskNotFound = apierrors.NewAPIError(apierrors.ErrCodeNotFound, "task not found")
