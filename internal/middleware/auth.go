package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/yukikurage/task-board/internal/constants"
	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/workspace"
)

// AttachWorkspace resolves the client's workspace from the session, if it
// still exists. It never creates one.
func AttachWorkspace(registry *workspace.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if id, ok := session.Get(constants.SessionKeyWorkspaceID).(string); ok {
			if ws, found := registry.Get(id); found {
				c.Set(constants.ContextKeyWorkspace, ws)
			}
		}
		c.Next()
	}
}

// EnsureWorkspace creates a workspace for clients that have none and stores
// its id in the session. It runs only on the routes that start a session.
func EnsureWorkspace(registry *workspace.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetWorkspace(c); ok {
			c.Next()
			return
		}

		ws := registry.Create(c.Request.Context())
		session := sessions.Default(c)
		session.Set(constants.SessionKeyWorkspaceID, ws.ID)
		if err := session.Save(); err != nil {
			registry.Remove(ws.ID)
			log.Errorf("Failed to save session: %v", err)
			apierrors.InternalError(c, "Failed to save session")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyWorkspace, ws)
		c.Next()
	}
}

// RequireAuth rejects requests whose workspace has no logged-in user
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, ok := GetWorkspace(c)
		if !ok || !ws.Session.State().LoggedIn() {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetWorkspace retrieves the client's workspace from context
func GetWorkspace(c *gin.Context) (*workspace.Workspace, bool) {
	value, exists := c.Get(constants.ContextKeyWorkspace)
	if !exists {
		return nil, false
	}
	ws, ok := value.(*workspace.Workspace)
	return ws, ok
}
