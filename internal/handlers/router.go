package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-board/internal/constants"
	"github.com/yukikurage/task-board/internal/middleware"
	"github.com/yukikurage/task-board/internal/workspace"
)

// NewRouter builds the HTTP API over registry. Every /api request is bound
// to a workspace through the session stored in sessionStore.
func NewRouter(registry *workspace.Registry, sessionStore sessions.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	authHandler := NewAuthHandler(registry)
	taskHandler := NewTaskHandler()
	boardHandler := NewBoardHandler()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"message":    "Task board is running",
			"workspaces": registry.Len(),
		})
	})

	api := r.Group("/api")
	api.Use(middleware.AttachWorkspace(registry))
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", middleware.EnsureWorkspace(registry), authHandler.Register)
			auth.POST("/login", middleware.EnsureWorkspace(registry), authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.EnsureWorkspace(registry), authHandler.GetCurrentUser)
			auth.DELETE("/me", middleware.RequireAuth(), authHandler.DeleteAccount)
		}

		b := api.Group("/board")
		b.Use(middleware.RequireAuth())
		{
			b.GET("", boardHandler.GetBoard)
			b.GET("/stream", boardHandler.StreamBoard)
			b.PUT("/columns/:status", boardHandler.SetColumnLayout)
			b.GET("/dialog", boardHandler.GetDialog)
			b.PUT("/dialog", boardHandler.SetDialog)
		}

		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.POST("/:id/move", middleware.RequireTaskAccess(), taskHandler.MoveTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
		}

		d := api.Group("/drag")
		d.Use(middleware.RequireAuth())
		{
			d.POST("/start", boardHandler.DragStart)
			d.POST("/delta", boardHandler.DragDelta)
			d.POST("/end", boardHandler.DragEnd)
		}
	}

	return r
}
