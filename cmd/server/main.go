package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yukikurage/task-board/internal/config"
	"github.com/yukikurage/task-board/internal/constants"
	"github.com/yukikurage/task-board/internal/controllers"
	"github.com/yukikurage/task-board/internal/database"
	"github.com/yukikurage/task-board/internal/handlers"
	"github.com/yukikurage/task-board/internal/store"
	"github.com/yukikurage/task-board/internal/workspace"
)

var rootCmd = &cobra.Command{
	Use:           "task-board",
	Short:         "Personal Kanban task board",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Errorf("Error: %v", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg)

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	return database.Migrate(db)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	var storeOpts []store.Option
	var sessionStore sessions.Store
	if addr := cfg.RedisAddr(); addr != "" {
		rc := redis.NewClient(&redis.Options{Addr: addr})
		defer rc.Close()

		notifier, err := store.NewRedisNotifier(ctx, rc, store.DefaultChangesChannel)
		if err != nil {
			return err
		}
		storeOpts = append(storeOpts, store.WithNotifier(notifier))

		rs, err := redisStore.NewStore(10, "tcp", addr, "", "", []byte(cfg.SessionSecret))
		if err != nil {
			return err
		}
		sessionStore = rs
		log.Infof("Using redis at %s for sessions and change notification", addr)
	} else {
		sessionStore = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})

	taskStore := store.NewGormStore(db, storeOpts...)
	defer taskStore.Close()

	registry := workspace.NewRegistry(taskStore, workspace.Options{
		Session: controllers.SessionOptions{
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
		},
		ProbeInset: cfg.DragProbeInset,
		AutoResume: cfg.AutoResume,
	})
	defer registry.Close()

	go sweepIdle(ctx, registry)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handlers.NewRouter(registry, sessionStore),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sweepIdle(ctx context.Context, registry *workspace.Registry) {
	ticker := time.NewTicker(constants.WorkspaceSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.Sweep(constants.WorkspaceIdleTimeout, constants.LoggedOutWorkspaceIdleTimeout)
		}
	}
}
