package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(log *[]string, name string, err error) Step {
	return Step{Name: name, Run: func(context.Context) error {
		*log = append(*log, name)
		return err
	}}
}

func TestRun_InOrder(t *testing.T) {
	var ran []string
	s := New("warmup",
		recorder(&ran, "a", nil),
		recorder(&ran, "b", nil),
		recorder(&ran, "c", nil),
	)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, []string{"a", "b", "c"}, s.Steps())
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	s := New("reset",
		recorder(&ran, "a", nil),
		recorder(&ran, "b", boom),
		recorder(&ran, "c", nil),
	)

	err := s.Run(context.Background())

	require.ErrorIs(t, err, boom)
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "reset", se.Sequence)
	assert.Equal(t, "b", se.Step)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, []string{"a"}, se.Completed)
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestRun_CanceledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran []string
	s := New("reset",
		recorder(&ran, "a", nil),
		Step{Name: "cancel", Run: func(context.Context) error {
			cancel()
			return nil
		}},
		recorder(&ran, "c", nil),
	)

	err := s.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "c", se.Step)
	assert.Equal(t, []string{"a", "cancel"}, se.Completed)
	assert.Equal(t, []string{"a"}, ran)
}

func TestRun_Empty(t *testing.T) {
	assert.NoError(t, New("noop").Run(context.Background()))
}
