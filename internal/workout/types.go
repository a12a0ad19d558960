package workout

import (
	"fmt"
	"math"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// Phase is one state of a workout session
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseTransition Phase = "transition"
	PhaseExercise   Phase = "exercise"
	PhaseRest       Phase = "rest"
	PhaseCompleted  Phase = "completed"
)

// TransitionLeadTime is the countdown, in ticks, before every exercise
const TransitionLeadTime = 5

// Exercise is one timed movement of a circuit
type Exercise struct {
	Name     string `yaml:"name" json:"name"`
	Duration int    `yaml:"duration" json:"duration"` // ticks
}

// Definition describes one circuit workout. All durations are in ticks
// (one tick is one second when driven in real time).
type Definition struct {
	Day               int        `yaml:"day" json:"day"`
	Name              string     `yaml:"name" json:"name"`
	Exercises         []Exercise `yaml:"exercises" json:"exercises"`
	Rounds            int        `yaml:"rounds" json:"rounds"`
	RestBetweenRounds int        `yaml:"rest_between_rounds" json:"rest_between_rounds"`
	TimeCap           int        `yaml:"time_cap" json:"time_cap"`
	CaloriesPerMinute float64    `yaml:"calories_per_minute" json:"calories_per_minute"`
}

// Validate checks the definition can be run
func (d Definition) Validate() error {
	if d.Day < 1 || d.Day > domain.WorkoutDayCount {
		return fmt.Errorf("%w: day %d out of range", ErrInvalidDefinition, d.Day)
	}
	if len(d.Exercises) == 0 {
		return fmt.Errorf("%w: day %d has no exercises", ErrInvalidDefinition, d.Day)
	}
	if d.Rounds < 1 {
		return fmt.Errorf("%w: day %d needs at least one round", ErrInvalidDefinition, d.Day)
	}
	for _, ex := range d.Exercises {
		if ex.Duration < 0 {
			return fmt.Errorf("%w: exercise %q has negative duration", ErrInvalidDefinition, ex.Name)
		}
	}
	if d.RestBetweenRounds < 0 || d.TimeCap < 0 || d.CaloriesPerMinute < 0 {
		return fmt.Errorf("%w: day %d has negative timing", ErrInvalidDefinition, d.Day)
	}
	return nil
}

// CaloriesFor estimates the calories burned over elapsed ticks
func (d Definition) CaloriesFor(elapsed int) int {
	return int(math.Round(d.CaloriesPerMinute * float64(elapsed) / 60))
}

// State is the observable state of a session
type State struct {
	Phase               Phase         `json:"phase"`
	ExerciseIndex       int           `json:"current_exercise_index"`
	Round               int           `json:"current_round"`
	ExerciseCountdown   int           `json:"exercise_countdown"`
	TransitionCountdown int           `json:"transition_countdown"`
	RestCountdown       int           `json:"rest_countdown"`
	TotalElapsed        int           `json:"total_elapsed"`
	Paused              bool          `json:"paused"`
	CompletedInRound    domain.IntSet `json:"completed_in_round"`
}

// IdleState returns the state of a session that has not started
func IdleState() State {
	return State{Phase: PhaseIdle, CompletedInRound: domain.IntSet{}}
}

// Result is emitted once when a session reaches PhaseCompleted
type Result struct {
	Day            int `json:"day"`
	CaloriesBurned int `json:"calories_burned"`
	TotalElapsed   int `json:"total_elapsed"`
}
