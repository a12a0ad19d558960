package workout

import (
	"log/slog"
	"sync"
)

// Session drives one workout definition. It is safe for concurrent use;
// the completion callback runs outside the session lock.
type Session struct {
	mu          sync.Mutex
	def         Definition
	state       State
	reported    bool
	onCompleted func(Result)
	logger      *slog.Logger
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithOnCompleted registers the callback fired once per completed run
func WithOnCompleted(fn func(Result)) SessionOption {
	return func(s *Session) { s.onCompleted = fn }
}

// WithSessionLogger sets the logger
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an idle session for def
func NewSession(def Definition, opts ...SessionOption) (*Session, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		def:    def,
		state:  IdleState(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Definition returns the workout being run
func (s *Session) Definition() Definition {
	return s.def
}

// State returns a copy of the observable state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.CompletedInRound = st.CompletedInRound.Clone()
	return st
}

// Start begins the session
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Start(s.state)
	if err != nil {
		return err
	}
	s.state = next
	s.reported = false
	s.logger.Info("workout started", "day", s.def.Day, "name", s.def.Name)
	return nil
}

// Pause freezes the session
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Pause(s.state)
}

// Resume continues a paused session
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Resume(s.state)
}

// Cancel discards the session without reporting a result
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseIdle {
		s.logger.Info("workout canceled", "day", s.def.Day, "elapsed", s.state.TotalElapsed)
	}
	s.state = Cancel(s.state)
	s.reported = false
}

// Skip ends the current exercise early
func (s *Session) Skip() error {
	return s.transition(func(st State) (State, error) {
		return Skip(s.def, st)
	})
}

// Tick advances the session by one time unit
func (s *Session) Tick() State {
	var st State
	_ = s.transition(func(cur State) (State, error) {
		st = Step(s.def, cur)
		return st, nil
	})
	return st
}

func (s *Session) transition(fn func(State) (State, error)) error {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next

	var result *Result
	if next.Phase == PhaseCompleted && !s.reported {
		s.reported = true
		result = &Result{
			Day:            s.def.Day,
			CaloriesBurned: s.def.CaloriesFor(next.TotalElapsed),
			TotalElapsed:   next.TotalElapsed,
		}
	}
	callback := s.onCompleted
	s.mu.Unlock()

	if result != nil {
		s.logger.Info("workout completed", "day", result.Day, "elapsed", result.TotalElapsed, "calories", result.CaloriesBurned)
		if callback != nil {
			callback(*result)
		}
	}
	return nil
}
