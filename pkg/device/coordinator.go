package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/beamline/pkg/async"
)

// DefaultTimeout bounds a move when neither the request nor the coordinator
// sets one.
const DefaultTimeout = 5 * time.Second

// MoveRequest describes one transition attempt.
type MoveRequest struct {
	Kind   RequestKind
	Target State

	// Action performs the command write(s) that start the move.
	Action func(ctx context.Context) error

	// Timeout overrides the coordinator timeout when positive.
	Timeout time.Duration

	// AlwaysIssue disables the already-at-target short-circuit, for devices
	// whose resting state is also their terminal state.
	AlwaysIssue bool
}

type outcome struct {
	state State
	err   error
}

// pendingMove occupies the guard slot while a move is in flight. Its kind is
// the device's active request; clearing the slot clears both.
type pendingMove struct {
	id       string
	kind     RequestKind
	target   State
	deadline time.Time
	done     chan outcome // capacity 1, written once by finishLocked

	seenIntermediate bool
}

// Coordinator turns a write-and-forget command channel plus an asynchronous
// status subscription into request/response moves for one device. At most one
// move is in flight at a time; concurrent callers are rejected, not queued.
type Coordinator struct {
	name    string
	table   Table
	status  StatusChannel
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	cached  State
	changed chan struct{} // closed and replaced on every state change
	pending *pendingMove
	sub     Subscription
	closed  bool

	subscribers   []chan Event
	subscribersMu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the default move timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger replaces the coordinator's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// NewCoordinator creates a coordinator for one device. Call Start before
// issuing moves so that the cached state is populated.
func NewCoordinator(name string, table Table, status StatusChannel, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:    name,
		table:   table,
		status:  status,
		timeout: DefaultTimeout,
		changed: make(chan struct{}),
		logger: log.With().
			Str("device", name).
			Str("flavor", string(table.Flavor)).
			Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start seeds the cached state with a synchronous read and subscribes to
// status changes.
func (c *Coordinator) Start(ctx context.Context) error {
	s, err := c.status.Read(ctx)
	if err != nil {
		return &ChannelError{Device: c.name, Op: "read status", Err: err}
	}

	c.mu.Lock()
	if c.cached == Unknown {
		c.cached = s
	}
	c.mu.Unlock()

	sub, err := c.status.Subscribe(c.handle)
	if err != nil {
		return &ChannelError{Device: c.name, Op: "subscribe status", Err: err}
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	c.logger.Info().Str("state", s.String()).Msg("Device started")
	return nil
}

// Move issues req and blocks until the device reaches a terminal state, a
// fault is observed, the deadline elapses or ctx is done. The guard is free
// again when Move returns.
func (c *Coordinator) Move(ctx context.Context, req MoveRequest) (State, error) {
	p, s, err := c.begin(req)
	if p == nil {
		return s, err
	}
	return c.run(ctx, p, req)
}

// MoveAsync is Move without blocking. Short-circuit and guard acquisition
// happen before it returns, so a rejected move yields an already completed
// future. Cancelling the future abandons the move and frees the guard.
func (c *Coordinator) MoveAsync(ctx context.Context, req MoveRequest) *async.Future[State] {
	p, s, err := c.begin(req)
	if p == nil {
		return async.Resolved(s, err)
	}
	return async.Go(ctx, func(ctx context.Context) (State, error) {
		return c.run(ctx, p, req)
	})
}

// begin runs the short-circuit checks and installs a pending move. A nil
// pendingMove means the request was answered without issuing anything.
func (c *Coordinator) begin(req MoveRequest) (*pendingMove, State, error) {
	if !c.table.Supports(req.Kind) {
		return nil, Unknown, fmt.Errorf("%s: %w: %s", c.name, ErrUnsupported, req.Kind)
	}
	if req.Action == nil {
		return nil, Unknown, fmt.Errorf("%s: %w: %s has no action", c.name, ErrUnsupported, req.Kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, c.cached, fmt.Errorf("%s: %w", c.name, ErrClosed)
	}
	if c.table.IsFault(c.cached) {
		return nil, c.cached, fmt.Errorf("%s: %w", c.name, ErrDeviceFault)
	}
	if !req.AlwaysIssue && c.cached == req.Target {
		c.logger.Debug().
			Str("request", req.Kind.String()).
			Str("state", c.cached.String()).
			Msg("Already at target, no command issued")
		return nil, c.cached, nil
	}
	if c.pending != nil {
		return nil, c.cached, fmt.Errorf("%s: %w (%s in flight)", c.name, ErrAlreadyMoving, c.pending.kind)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	p := &pendingMove{
		id:       uuid.NewString(),
		kind:     req.Kind,
		target:   req.Target,
		deadline: time.Now().Add(timeout),
		done:     make(chan outcome, 1),
	}
	c.pending = p
	return p, Unknown, nil
}

// run issues the command and waits for the pending move to resolve.
func (c *Coordinator) run(ctx context.Context, p *pendingMove, req MoveRequest) (State, error) {
	l := c.logger.With().Str("move_id", p.id).Str("request", p.kind.String()).Logger()
	l.Debug().Str("target", p.target.String()).Time("deadline", p.deadline).Msg("Issuing move")

	c.publish(Event{
		Type:      EventMoveStarted,
		Device:    c.name,
		Flavor:    c.table.Flavor,
		State:     c.State(),
		Request:   p.kind,
		MoveID:    p.id,
		Timestamp: time.Now(),
	})

	if err := req.Action(ctx); err != nil {
		c.mu.Lock()
		c.finishLocked(p, outcome{
			state: c.cached,
			err:   &ChannelError{Device: c.name, Op: "write " + p.kind.String(), Err: err},
		})
		c.mu.Unlock()
	} else {
		timer := time.NewTimer(time.Until(p.deadline))
		defer timer.Stop()

		select {
		case out := <-p.done:
			return c.conclude(l, p, out)
		case <-timer.C:
			c.mu.Lock()
			c.finishLocked(p, outcome{
				state: c.cached,
				err:   &MoveTimeoutError{Device: c.name, Request: p.kind, LastState: c.cached},
			})
			c.mu.Unlock()
		case <-ctx.Done():
			c.mu.Lock()
			c.finishLocked(p, outcome{
				state: c.cached,
				err:   fmt.Errorf("%s: %s move abandoned: %w", c.name, p.kind, ctx.Err()),
			})
			c.mu.Unlock()
		}
	}

	// Whoever won the race to finishLocked has written the outcome.
	return c.conclude(l, p, <-p.done)
}

func (c *Coordinator) conclude(l zerolog.Logger, p *pendingMove, out outcome) (State, error) {
	if out.err == nil && out.state != p.target {
		out.err = &UnexpectedStateError{Device: c.name, Target: p.target, Observed: out.state}
	}

	evt := Event{
		Type:      EventMoveFinished,
		Device:    c.name,
		Flavor:    c.table.Flavor,
		State:     out.state,
		Request:   p.kind,
		MoveID:    p.id,
		Timestamp: time.Now(),
	}
	if out.err != nil {
		evt.Error = out.err.Error()
		l.Warn().Err(out.err).Str("state", out.state.String()).Msg("Move failed")
	} else {
		l.Info().Str("state", out.state.String()).Msg("Move complete")
	}
	c.publish(evt)

	return out.state, out.err
}

// finishLocked resolves p if it still occupies the guard slot. The first
// caller wins; later attempts are no-ops. c.mu must be held.
func (c *Coordinator) finishLocked(p *pendingMove, out outcome) bool {
	if c.pending != p {
		return false
	}
	c.pending = nil
	p.done <- out
	return true
}

// handle classifies one status notification. It runs on the subscription's
// goroutine and must never panic out of it.
func (c *Coordinator) handle(s State) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Str("state", s.String()).Msg("Status notification dropped")
		}
	}()

	c.mu.Lock()
	prev := c.cached
	c.cached = s
	if prev != s {
		close(c.changed)
		c.changed = make(chan struct{})
	}
	p := c.pending

	switch {
	case c.table.IsFault(s):
		if p != nil {
			c.finishLocked(p, outcome{
				state: s,
				err:   fmt.Errorf("%s: %w during %s", c.name, ErrDeviceFault, p.kind),
			})
		}
		c.logger.Warn().Str("previous", prev.String()).Msg("Device reported fault")

	case p == nil:
		if prev != s {
			c.logger.Debug().
				Str("previous", prev.String()).
				Str("state", s.String()).
				Msg("External state change")
		}

	default:
		switch c.table.classify(p.kind, s) {
		case verdictTerminal:
			if !p.seenIntermediate && c.table.requiresIntermediate(p.kind) {
				c.logger.Debug().
					Str("move_id", p.id).
					Str("state", s.String()).
					Msg("Terminal state before intermediate, ignored")
				break
			}
			c.finishLocked(p, outcome{state: s})
		case verdictIntermediate:
			p.seenIntermediate = true
		default:
			c.logger.Warn().
				Str("move_id", p.id).
				Str("request", p.kind.String()).
				Str("state", s.String()).
				Msg("Unexpected state during move")
		}
	}
	c.mu.Unlock()

	if prev != s {
		c.publish(Event{
			Type:      EventStateChanged,
			Device:    c.name,
			Flavor:    c.table.Flavor,
			State:     s,
			Previous:  prev,
			Timestamp: time.Now(),
		})
	}
}

// Command performs a plain write with no terminal-state wait and no guard.
func (c *Coordinator) Command(ctx context.Context, ch CommandChannel, op string, value float64) error {
	if err := ch.Write(ctx, value); err != nil {
		return &ChannelError{Device: c.name, Op: op, Err: err}
	}
	c.logger.Debug().Str("op", op).Float64("value", value).Msg("Command written")
	return nil
}

// Reset writes a reset command with no guard. If the device was faulted it
// then waits, bounded by the coordinator timeout, until the status leaves the
// fault state, so that a following move does not see the stale fault.
func (c *Coordinator) Reset(ctx context.Context, ch CommandChannel, value float64) error {
	faulted := c.table.IsFault(c.State())

	if err := c.Command(ctx, ch, "reset", value); err != nil {
		return err
	}
	if !faulted {
		return nil
	}
	return c.awaitClear(ctx)
}

func (c *Coordinator) awaitClear(ctx context.Context) error {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		s, changed := c.cached, c.changed
		c.mu.Unlock()

		if !c.table.IsFault(s) {
			c.logger.Info().Str("state", s.String()).Msg("Fault cleared")
			return nil
		}

		select {
		case <-changed:
		case <-timer.C:
			return &MoveTimeoutError{Device: c.name, Request: RequestReset, LastState: s}
		case <-ctx.Done():
			return fmt.Errorf("%s: reset abandoned: %w", c.name, ctx.Err())
		}
	}
}

// Name returns the device name.
func (c *Coordinator) Name() string { return c.name }

// Flavor returns the device flavor.
func (c *Coordinator) Flavor() Flavor { return c.table.Flavor }

// State returns the cached device state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached
}

// Pending returns the active request kind, if a move is in flight.
func (c *Coordinator) Pending() (RequestKind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return None, false
	}
	return c.pending.kind, true
}

// Busy reports whether a move is in flight.
func (c *Coordinator) Busy() bool {
	_, ok := c.Pending()
	return ok
}

// Close stops the status subscription, fails any pending move with ErrClosed
// and closes all event subscribers.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	if c.pending != nil {
		c.finishLocked(c.pending, outcome{state: c.cached, err: fmt.Errorf("%s: %w", c.name, ErrClosed)})
	}
	c.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}

	c.subscribersMu.Lock()
	for _, ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
	c.subscribersMu.Unlock()

	return err
}

// --- device.EventSubscriber interface ---

func (c *Coordinator) Subscribe() chan Event {
	ch := make(chan Event, 16)
	c.subscribersMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.subscribersMu.Unlock()
	return ch
}

func (c *Coordinator) Unsubscribe(ch chan Event) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	for i, sub := range c.subscribers {
		if sub == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// publish sends an event to all subscribers, dropping it for slow ones.
func (c *Coordinator) publish(evt Event) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	for _, ch := range c.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
