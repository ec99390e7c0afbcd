package device

import "context"

// StatusChannel is the readback side of a process variable.
type StatusChannel interface {
	// Read returns the current state as a point-in-time read
	Read(ctx context.Context) (State, error)

	// Subscribe delivers the initial value and every subsequent change.
	// Notifications for one channel arrive in order, from a single goroutine.
	Subscribe(fn func(State)) (Subscription, error)
}

// CommandChannel accepts control writes. A nil error means the transport
// accepted the write, never that the device finished acting on it.
type CommandChannel interface {
	Write(ctx context.Context, value float64) error
}

// ValueChannel reads a continuous value, such as a pump pressure.
type ValueChannel interface {
	Read(ctx context.Context) (float64, error)
}

// Subscription is a live status subscription.
type Subscription interface {
	Close() error
}

// EventSubscriber defines the interface for subscribing to device events
type EventSubscriber interface {
	// Subscribe returns a channel that receives device events
	Subscribe() chan Event

	// Unsubscribe removes a subscription
	Unsubscribe(ch chan Event)
}
