// Package sequence runs ordered device operations as one compound action.
//
// A failed step stops the run. Steps already applied are not undone; the
// returned StepError lists them so the caller can decide what to do.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Step is one named operation.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Sequence is an ordered list of steps.
type Sequence struct {
	name  string
	steps []Step
}

// New creates a sequence.
func New(name string, steps ...Step) *Sequence {
	return &Sequence{name: name, steps: steps}
}

// Name returns the sequence name.
func (s *Sequence) Name() string { return s.name }

// Steps returns the step names in execution order.
func (s *Sequence) Steps() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.Name
	}
	return names
}

// Run executes each step in order and stops at the first failure or when
// ctx is done between steps.
func (s *Sequence) Run(ctx context.Context) error {
	start := time.Now()
	l := log.With().Str("sequence", s.name).Logger()

	completed := make([]string, 0, len(s.steps))
	for i, st := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.fail(i, st, completed, err)
		}
		if err := st.Run(ctx); err != nil {
			l.Warn().Err(err).Str("step", st.Name).Int("index", i).Msg("Sequence step failed")
			return s.fail(i, st, completed, err)
		}
		completed = append(completed, st.Name)
	}

	l.Info().Int("steps", len(s.steps)).Dur("duration", time.Since(start)).Msg("Sequence complete")
	return nil
}

func (s *Sequence) fail(i int, st Step, completed []string, err error) error {
	return &StepError{
		Sequence:  s.name,
		Step:      st.Name,
		Index:     i,
		Completed: completed,
		Err:       err,
	}
}

// StepError reports the step that stopped a sequence.
type StepError struct {
	Sequence  string
	Step      string
	Index     int
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sequence %s: step %d (%s): %v", e.Sequence, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
