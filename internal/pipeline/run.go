package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
	"github.com/sqlscribe/sqlscribe/internal/query"
	"github.com/sqlscribe/sqlscribe/internal/validate"
)

type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateGenerated  State = "generated"
	StateValidating State = "validating"
	StateValidated  State = "validated"
	StateRejected   State = "rejected"
	StateExecuting  State = "executing"
	StateExecuted   State = "executed"
	StateFailed     State = "failed"
)

var ErrInvalidTransition = errors.New("invalid pipeline transition")

var allowedTransitions = map[State][]State{
	StateIdle:       {StateGenerating},
	StateGenerating: {StateGenerated, StateFailed},
	StateGenerated:  {StateValidating, StateExecuting},
	StateValidating: {StateValidated, StateRejected},
	StateValidated:  {StateExecuting},
	StateExecuting:  {StateExecuted, StateFailed},
}

type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Run tracks one question through generation, validation and execution. It
// is owned by a single caller and is not safe for concurrent use.
type Run struct {
	ID          string
	Question    string
	State       State
	Query       nl2sql.GeneratedQuery
	Validation  *validate.Result
	Result      *query.Result
	Err         error
	Transitions []Transition
}

func NewRun(question string) *Run {
	return &Run{ID: uuid.NewString(), Question: question, State: StateIdle}
}

// Terminal reports whether the run is waiting for no further automatic step.
func (r *Run) Terminal() bool {
	switch r.State {
	case StateGenerated, StateValidated, StateRejected, StateExecuted, StateFailed:
		return true
	}
	return false
}

func (r *Run) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func (r *Run) transition(to State, at time.Time) error {
	for _, allowed := range allowedTransitions[r.State] {
		if allowed == to {
			r.Transitions = append(r.Transitions, Transition{From: r.State, To: to, At: at})
			r.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
}

func CanTransition(from, to State) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
