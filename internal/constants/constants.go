package constants

import "time"

const (
	// SessionCookieName names the cookie holding the web session.
	SessionCookieName = "task_session"

	// SessionKeyWorkspaceID is the session value pointing at the client's workspace.
	SessionKeyWorkspaceID = "workspace_id"

	// Context keys set by middleware
	ContextKeyWorkspace = "workspace"
	ContextKeyTask      = "task"

	// SessionMaxAge is the cookie lifetime in seconds (7 days).
	SessionMaxAge = 86400 * 7

	// WorkspaceIdleTimeout closes workspaces no request has touched for this long.
	WorkspaceIdleTimeout = 2 * time.Hour

	// LoggedOutWorkspaceIdleTimeout applies to workspaces nobody logged in to.
	LoggedOutWorkspaceIdleTimeout = 10 * time.Minute

	// WorkspaceSweepInterval is how often idle workspaces are looked for.
	WorkspaceSweepInterval = 5 * time.Minute
)
