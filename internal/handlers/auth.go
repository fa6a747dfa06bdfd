package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-board/internal/controllers"
	"github.com/yukikurage/task-board/internal/dto"
	apierrors "github.com/yukikurage/task-board/internal/errors"
	"github.com/yukikurage/task-board/internal/middleware"
	"github.com/yukikurage/task-board/internal/workspace"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	registry *workspace.Registry
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(registry *workspace.Registry) *AuthHandler {
	return &AuthHandler{
		registry: registry,
	}
}

// Register creates a user and logs them in.
func (h *AuthHandler) Register(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not found in context")
		return
	}

	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := ws.Session.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSessionDTO(ws.Session.State()))
}

// Login authenticates a user and points the workspace at their board.
func (h *AuthHandler) Login(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "Workspace not found in context")
		return
	}

	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := ws.Session.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionDTO(ws.Session.State()))
}

// Logout ends the session and discards the workspace.
func (h *AuthHandler) Logout(c *gin.Context) {
	if ws, ok := middleware.GetWorkspace(c); ok {
		ws.Session.Logout()
		h.registry.Remove(ws.ID)
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the session state, logged in or not.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionDTO(ws.Session.State()))
}

// DeleteAccount removes the current user together with all of their tasks.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := ws.Session.DeleteAccount(c.Request.Context()); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, controllers.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.Respond(c, err)
	}
}
