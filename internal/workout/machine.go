package workout

import "github.com/felixgeelhaar/personal21/internal/domain"

// Start begins a session from PhaseIdle
func Start(s State) (State, error) {
	if s.Phase != PhaseIdle {
		return s, ErrInvalidPhase
	}
	return State{
		Phase:               PhaseTransition,
		Round:               1,
		TransitionCountdown: TransitionLeadTime,
		CompletedInRound:    domain.IntSet{},
	}, nil
}

// Step advances the session by one tick. Elapsed time and the active
// countdown are updated first; the time cap and countdown exhaustion are
// then checked against those same post-update values, with the cap taking
// precedence. Paused, idle and completed sessions are returned unchanged.
func Step(def Definition, s State) State {
	if s.Paused || !running(s.Phase) {
		return s
	}

	s.TotalElapsed++
	var remaining int
	switch s.Phase {
	case PhaseTransition:
		s.TransitionCountdown = countdown(s.TransitionCountdown)
		remaining = s.TransitionCountdown
	case PhaseExercise:
		s.ExerciseCountdown = countdown(s.ExerciseCountdown)
		remaining = s.ExerciseCountdown
	case PhaseRest:
		s.RestCountdown = countdown(s.RestCountdown)
		remaining = s.RestCountdown
	}

	if def.TimeCap > 0 && s.TotalElapsed >= def.TimeCap {
		return complete(s)
	}
	if remaining > 0 {
		return s
	}

	switch s.Phase {
	case PhaseTransition:
		s.Phase = PhaseExercise
		s.ExerciseCountdown = def.Exercises[s.ExerciseIndex].Duration
		return s
	case PhaseExercise:
		return finishExercise(def, s)
	default: // PhaseRest
		return nextRound(s)
	}
}

// Skip ends the current exercise as if its countdown had run out
func Skip(def Definition, s State) (State, error) {
	if s.Phase != PhaseExercise {
		return s, ErrInvalidPhase
	}
	s.ExerciseCountdown = 0
	return finishExercise(def, s), nil
}

// Pause freezes countdowns and elapsed time
func Pause(s State) State {
	if running(s.Phase) {
		s.Paused = true
	}
	return s
}

// Resume continues from the exact remaining countdowns
func Resume(s State) State {
	if running(s.Phase) {
		s.Paused = false
	}
	return s
}

// Cancel discards the session
func Cancel(State) State {
	return IdleState()
}

func running(p Phase) bool {
	return p == PhaseTransition || p == PhaseExercise || p == PhaseRest
}

func countdown(v int) int {
	if v > 0 {
		return v - 1
	}
	return 0
}

func finishExercise(def Definition, s State) State {
	s.CompletedInRound = s.CompletedInRound.With(s.ExerciseIndex)

	switch {
	case s.ExerciseIndex+1 < len(def.Exercises):
		s.ExerciseIndex++
		s.Phase = PhaseTransition
		s.TransitionCountdown = TransitionLeadTime
		return s
	case s.Round < def.Rounds:
		if def.RestBetweenRounds > 0 {
			s.Phase = PhaseRest
			s.RestCountdown = def.RestBetweenRounds
			return s
		}
		return nextRound(s)
	default:
		return complete(s)
	}
}

func nextRound(s State) State {
	s.Round++
	s.ExerciseIndex = 0
	s.CompletedInRound = domain.IntSet{}
	s.Phase = PhaseTransition
	s.TransitionCountdown = TransitionLeadTime
	s.RestCountdown = 0
	return s
}

func complete(s State) State {
	s.Phase = PhaseCompleted
	s.Paused = false
	s.ExerciseCountdown = 0
	s.TransitionCountdown = 0
	s.RestCountdown = 0
	return s
}
