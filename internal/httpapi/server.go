// Package httpapi serves the task list as a JSON API. Reads are answered
// from a live cache that follows the database the same way the shell does.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"livetask/internal/service"
	"livetask/internal/view"
)

const shutdownTimeout = 5 * time.Second

// Server holds the live cache and the gin engine.
type Server struct {
	view   *view.View
	log    *zap.Logger
	locale language.Tag

	// editMu serializes PATCH requests over the view's single edit modal.
	editMu sync.Mutex
	synced atomic.Bool

	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithLocale sets the collation locale for name sorting.
func WithLocale(tag language.Tag) Option {
	return func(s *Server) { s.locale = tag }
}

// New creates a server over a task store. Call Attach to start the cache.
func New(ts view.TaskStore, opts ...Option) *Server {
	s := &Server{locale: language.Und}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.L()
	}
	s.log = s.log.Named("http")
	s.view = view.New(ts, apiSurface{s}, view.WithLogger(s.log), view.WithLocale(s.locale))

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))
	s.registerRoutes(r)
	s.router = r
	return s
}

func (s *Server) registerRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/tasks", s.listTasks)
		api.POST("/tasks", s.createTask)
		api.GET("/tasks/:id", s.getTask)
		api.PATCH("/tasks/:id", s.editTask)
		api.POST("/tasks/:id/toggle", s.toggleTask)
		api.DELETE("/tasks/:id", s.deleteTask)
	}
}

// Attach starts following the database until ctx is cancelled.
func (s *Server) Attach(ctx context.Context) {
	s.view.Attach(ctx)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe attaches the cache and serves on addr until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.Attach(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// apiSurface lets the view drive the server. Deletes over the API are
// already confirmed by the request itself.
type apiSurface struct {
	s *Server
}

func (a apiSurface) Render(tasks []service.Task) {
	a.s.synced.Store(true)
}

func (a apiSurface) Alert(msg string) {
	a.s.log.Debug("action failed", zap.String("msg", msg))
}

func (apiSurface) Confirm(string) bool { return true }

func (apiSurface) ClearInput() {}
