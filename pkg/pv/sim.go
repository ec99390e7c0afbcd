package pv

import (
	"context"
	"sync"

	"github.com/urmzd/beamline/pkg/device"
)

// SimStatus is an in-memory status channel. Every Set is delivered to each
// subscriber, in order, from that subscriber's own goroutine.
type SimStatus struct {
	mu      sync.Mutex
	state   device.State
	readErr error
	subs    map[*simSubscriber]struct{}
}

// NewSimStatus creates a simulated status channel holding initial.
func NewSimStatus(initial device.State) *SimStatus {
	return &SimStatus{
		state: initial,
		subs:  make(map[*simSubscriber]struct{}),
	}
}

// Set changes the state and notifies subscribers.
func (s *SimStatus) Set(state device.State) {
	s.mu.Lock()
	s.state = state
	subs := make([]*simSubscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.push(state)
	}
}

// SetReadError makes subsequent reads fail with err; nil clears it.
func (s *SimStatus) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// Current returns the simulated state without going through Read.
func (s *SimStatus) Current() device.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SimStatus) Read(_ context.Context) (device.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return device.Unknown, s.readErr
	}
	return s.state, nil
}

func (s *SimStatus) Subscribe(fn func(device.State)) (device.Subscription, error) {
	sub := &simSubscriber{
		fn:     fn,
		parent: s,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	// The initial value is queued before any Set can reach the subscriber.
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	sub.push(s.state)
	s.mu.Unlock()

	go sub.loop()
	return sub, nil
}

type simSubscriber struct {
	fn     func(device.State)
	parent *SimStatus

	mu    sync.Mutex
	queue []device.State

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *simSubscriber) push(state device.State) {
	s.mu.Lock()
	s.queue = append(s.queue, state)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *simSubscriber) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.fn(next)
		}
	}
}

func (s *simSubscriber) Close() error {
	s.once.Do(func() {
		s.parent.mu.Lock()
		delete(s.parent.subs, s)
		s.parent.mu.Unlock()
		close(s.stop)
	})
	<-s.done
	return nil
}

// SimCommand is an in-memory command channel that records writes.
type SimCommand struct {
	mu      sync.Mutex
	writes  []float64
	err     error
	onWrite func(float64)
}

// NewSimCommand creates a simulated command channel.
func NewSimCommand() *SimCommand {
	return &SimCommand{}
}

// OnWrite registers a hook run after every accepted write. Hooks drive the
// simulated device and must not block.
func (c *SimCommand) OnWrite(fn func(value float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrite = fn
}

// SetError makes subsequent writes fail with err; nil clears it.
func (c *SimCommand) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Writes returns a copy of all accepted writes.
func (c *SimCommand) Writes() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.writes...)
}

func (c *SimCommand) Write(ctx context.Context, value float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.writes = append(c.writes, value)
	hook := c.onWrite
	c.mu.Unlock()

	if hook != nil {
		hook(value)
	}
	return nil
}

// SimValue is an in-memory continuous value.
type SimValue struct {
	mu    sync.Mutex
	value float64
	err   error
}

// NewSimValue creates a simulated value channel.
func NewSimValue(initial float64) *SimValue {
	return &SimValue{value: initial}
}

// Set changes the value.
func (v *SimValue) Set(value float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = value
}

// SetError makes subsequent reads fail with err; nil clears it.
func (v *SimValue) SetError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
}

func (v *SimValue) Read(_ context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return 0, v.err
	}
	return v.value, nil
}
