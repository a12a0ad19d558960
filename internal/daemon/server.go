package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/personal21/internal/app"
	"github.com/felixgeelhaar/personal21/internal/config"
)

// Version is reported by the status endpoint
const Version = "0.3.0"

// Server is the local HTTP API used by the web client
type Server struct {
	cfg    *config.LocalConfig
	app    *app.App
	server *http.Server
	router *http.ServeMux

	tickInterval time.Duration
	logger       *slog.Logger
	baseCtx      context.Context
	stop         context.CancelFunc

	mu      sync.Mutex
	workout *activeWorkout
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	App *app.App
	// TickInterval overrides workout.tick_millis
	TickInterval time.Duration
	Logger       *slog.Logger
}

// NewServer creates a new daemon server
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("create server: app is required")
	}

	s := &Server{
		cfg:          cfg.App.Config,
		app:          cfg.App,
		router:       http.NewServeMux(),
		tickInterval: cfg.TickInterval,
		logger:       cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tickInterval <= 0 {
		s.tickInterval = time.Duration(s.cfg.Workout.TickMillis) * time.Millisecond
	}
	s.baseCtx, s.stop = context.WithCancel(context.WithoutCancel(ctx))

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.cfg.Daemon.Bind, s.cfg.Daemon.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return chain(s.router,
		withCORS(s.cfg.Daemon.AllowedOrigins),
		withRequestID,
		withRecover(s.logger),
		withAccessLog(s.logger),
	)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)
	s.router.HandleFunc("GET /v1/config", s.handleGetConfig)

	// Progress
	s.router.HandleFunc("GET /v1/progress", s.handleGetProgress)
	s.router.HandleFunc("DELETE /v1/progress", s.handleResetProgress)
	s.router.HandleFunc("GET /v1/progress/summary", s.handleSummary)
	s.router.HandleFunc("POST /v1/progress/chapters", s.handleCompleteChapter)
	s.router.HandleFunc("POST /v1/progress/recipes", s.handleRecordRecipe)
	s.router.HandleFunc("GET /v1/progress/recipes/today", s.handleRecipeToday)
	s.router.HandleFunc("POST /v1/progress/workouts", s.handleCompleteWorkoutDay)
	s.router.HandleFunc("POST /v1/progress/hydration", s.handleAddHydration)
	s.router.HandleFunc("PUT /v1/progress/sleep", s.handleSetSleep)
	s.router.HandleFunc("POST /v1/progress/onboarding", s.handleAdvanceOnboarding)

	// Sync
	s.router.HandleFunc("POST /v1/sync", s.handleSync)
	s.router.HandleFunc("GET /v1/sync/status", s.handleSyncStatus)
	s.router.HandleFunc("POST /v1/sync/apply", s.handleSyncApply)

	// Workouts
	s.router.HandleFunc("GET /v1/workouts", s.handleListWorkouts)
	s.router.HandleFunc("GET /v1/workouts/{day}", s.handleGetWorkout)
	s.router.HandleFunc("POST /v1/workout/session", s.handleStartWorkout)
	s.router.HandleFunc("GET /v1/workout/session", s.handleGetWorkoutSession)
	s.router.HandleFunc("POST /v1/workout/session/{action}", s.handleWorkoutAction)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting personal21 daemon",
		"addr", s.server.Addr,
		"backend", s.cfg.Storage.Backend,
		"remote", s.cfg.Remote.Kind,
	)
	return s.server.ListenAndServe()
}

// Shutdown stops the running workout and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	s.stop()
	s.mu.Lock()
	w := s.workout
	s.mu.Unlock()
	if w != nil {
		select {
		case <-w.done:
		case <-ctx.Done():
		}
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "running",
		"version": Version,
		"backend": s.cfg.Storage.Backend,
		"remote":  s.cfg.Remote.Kind,
		"sync":    s.app.Engine != nil,
		"queue":   s.app.Producer != nil,
		"locale":  s.cfg.Locale,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	// the remote URL and credentials are left out
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"daemon":  s.cfg.Daemon,
		"storage": s.cfg.Storage,
		"remote": map[string]any{
			"kind":            s.cfg.Remote.Kind,
			"timeout_seconds": s.cfg.Remote.TimeoutSeconds,
		},
		"sync":    s.cfg.Sync,
		"workout": s.cfg.Workout,
		"locale":  s.cfg.Locale,
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
