package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/personal21/internal/workout"
)

// activeWorkout is the timer currently driven by the daemon
type activeWorkout struct {
	session *workout.Session
	cancel  context.CancelFunc
	done    chan struct{}
}

func (a *activeWorkout) running() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"workouts": s.app.Catalog.All(),
	})
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid day", err)
		return
	}
	def, err := s.app.Catalog.Day(day)
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "workout not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, def)
}

// StartWorkoutRequest starts the timer for a program day
type StartWorkoutRequest struct {
	Day int `json:"day"`
}

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	var req StartWorkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workout != nil && s.workout.running() {
		s.jsonError(w, http.StatusConflict, "a workout is already running", nil)
		return
	}

	session, err := s.app.NewWorkoutSession(req.Day)
	if errors.Is(err, workout.ErrUnknownDay) {
		s.jsonError(w, http.StatusNotFound, "workout not found", err)
		return
	}
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to create workout", err)
		return
	}
	if err := session.Start(); err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to start workout", err)
		return
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	active := &activeWorkout{session: session, cancel: cancel, done: make(chan struct{})}
	s.workout = active

	go func() {
		defer close(active.done)
		defer cancel()
		err := workout.NewDriver(session, s.tickInterval).Run(ctx)
		switch {
		case err == nil:
			s.logger.Info("workout completed", "day", req.Day)
		case errors.Is(err, workout.ErrCanceled), errors.Is(err, context.Canceled):
			s.logger.Info("workout stopped", "day", req.Day)
		default:
			s.logger.Warn("workout driver failed", "day", req.Day, "error", err)
		}
	}()

	s.jsonResponse(w, http.StatusCreated, workoutView(session))
}

func (s *Server) handleGetWorkoutSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	active := s.workout
	s.mu.Unlock()

	if active == nil {
		s.jsonError(w, http.StatusNotFound, "no workout session", nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, workoutView(active.session))
}

func (s *Server) handleWorkoutAction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	active := s.workout
	s.mu.Unlock()

	if active == nil {
		s.jsonError(w, http.StatusNotFound, "no workout session", nil)
		return
	}

	switch r.PathValue("action") {
	case "pause":
		active.session.Pause()
	case "resume":
		active.session.Resume()
	case "skip":
		if err := active.session.Skip(); err != nil {
			s.jsonError(w, http.StatusConflict, "cannot skip now", err)
			return
		}
	case "cancel":
		active.session.Cancel()
		active.cancel()
	default:
		s.jsonError(w, http.StatusNotFound, "unknown action", nil)
		return
	}

	s.jsonResponse(w, http.StatusOK, workoutView(active.session))
}

func workoutView(session *workout.Session) map[string]any {
	def := session.Definition()
	st := session.State()
	view := map[string]any{
		"day":   def.Day,
		"name":  def.Name,
		"state": st,
	}
	if st.Phase != workout.PhaseIdle && st.Phase != workout.PhaseCompleted && st.ExerciseIndex < len(def.Exercises) {
		view["exercise"] = def.Exercises[st.ExerciseIndex]
	}
	return view
}
