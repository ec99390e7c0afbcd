package device

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyMoving indicates another move holds the device's guard
	ErrAlreadyMoving = errors.New("device already moving")

	// ErrDeviceFault indicates the device reported its fault state
	ErrDeviceFault = errors.New("device in fault state")

	// ErrMoveTimeout indicates the terminal state was not reached before the deadline
	ErrMoveTimeout = errors.New("move timed out")

	// ErrUnexpectedTerminalState indicates a terminal state other than the target was reached
	ErrUnexpectedTerminalState = errors.New("unexpected terminal state")

	// ErrTargetMismatch indicates a completed move measured outside tolerance
	ErrTargetMismatch = errors.New("target mismatch")

	// ErrChannel indicates a transport-level read or write failure
	ErrChannel = errors.New("channel error")

	// ErrNotFound indicates a device was not found
	ErrNotFound = errors.New("device not found")

	// ErrUnsupported indicates an operation is not supported by the device flavor
	ErrUnsupported = errors.New("operation not supported")

	// ErrClosed indicates the coordinator has been closed
	ErrClosed = errors.New("device closed")
)

// MoveTimeoutError carries the last observed state of a timed-out move.
type MoveTimeoutError struct {
	Device    string
	Request   RequestKind
	LastState State
}

func (e *MoveTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s move timed out (last state %s)", e.Device, e.Request, e.LastState)
}

func (e *MoveTimeoutError) Is(target error) bool { return target == ErrMoveTimeout }

// UnexpectedStateError reports a terminal state that does not match the target.
type UnexpectedStateError struct {
	Device   string
	Target   State
	Observed State
}

func (e *UnexpectedStateError) Error() string {
	return fmt.Sprintf("%s: unexpected terminal state %s (wanted %s)", e.Device, e.Observed, e.Target)
}

func (e *UnexpectedStateError) Is(target error) bool { return target == ErrUnexpectedTerminalState }

// ChannelError wraps a transport failure. It matches ErrChannel and unwraps
// to the underlying cause.
type ChannelError struct {
	Device string
	Op     string
	Err    error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Device, e.Op, e.Err)
}

func (e *ChannelError) Is(target error) bool { return target == ErrChannel }

func (e *ChannelError) Unwrap() error { return e.Err }
