package device

import (
	"slices"
	"time"
)

// State is a discrete device state as reported by the status channel.
type State string

// Device states. Each flavor uses a subset; see the flavor tables.
const (
	Unknown     State = ""
	Opening     State = "OPENING"
	Closing     State = "CLOSING"
	Open        State = "OPEN"
	Closed      State = "CLOSED"
	OpenArmed   State = "OPEN_ARMED"
	ClosedArmed State = "CLOSED_ARMED"
	Fault       State = "FAULT"
	Idle        State = "IDLE"
	Busy        State = "BUSY"
)

func (s State) String() string {
	if s == Unknown {
		return "UNKNOWN"
	}
	return string(s)
}

// RequestKind is the action a pending move is attempting.
type RequestKind string

// Request kinds. None means no move is in flight.
const (
	None          RequestKind = ""
	RequestOpen   RequestKind = "OPEN"
	RequestClose  RequestKind = "CLOSE"
	RequestArm    RequestKind = "ARM"
	RequestDisarm RequestKind = "DISARM"
	RequestGo     RequestKind = "GO"

	// RequestReset labels the fault-clear wait after a reset command. It is
	// never a guarded move.
	RequestReset RequestKind = "RESET"
)

func (k RequestKind) String() string {
	if k == None {
		return "NONE"
	}
	return string(k)
}

// Flavor names a device family sharing one state table.
type Flavor string

// Device flavors
const (
	FlavorValve        Flavor = "valve"
	FlavorArmableValve Flavor = "armable_valve"
	FlavorPressureCell Flavor = "pressure_cell"
)

// Transition lists the states that complete a request kind and the states
// expected while it is in progress.
type Transition struct {
	Terminal     []State
	Intermediate []State

	// RequireIntermediate makes a terminal state count only after one of the
	// intermediate states has been observed during the move. Use it when the
	// resting state and the terminal state are the same.
	RequireIntermediate bool
}

// Table is the per-flavor classification data. The classification algorithm
// itself lives on Coordinator and is shared by all flavors.
type Table struct {
	Flavor      Flavor
	Fault       State // only meaningful when HasFault
	HasFault    bool
	Transitions map[RequestKind]Transition
}

// IsFault reports whether s is this flavor's fault state.
func (t Table) IsFault(s State) bool {
	return t.HasFault && s == t.Fault
}

// Supports reports whether the flavor defines kind.
func (t Table) Supports(kind RequestKind) bool {
	_, ok := t.Transitions[kind]
	return ok
}

type verdict int

const (
	verdictAnomaly verdict = iota
	verdictTerminal
	verdictIntermediate
)

func (t Table) classify(kind RequestKind, s State) verdict {
	tr, ok := t.Transitions[kind]
	if !ok {
		return verdictAnomaly
	}
	if slices.Contains(tr.Terminal, s) {
		return verdictTerminal
	}
	if slices.Contains(tr.Intermediate, s) {
		return verdictIntermediate
	}
	return verdictAnomaly
}

func (t Table) requiresIntermediate(kind RequestKind) bool {
	return t.Transitions[kind].RequireIntermediate
}

// EventType distinguishes entries on a coordinator's event stream.
type EventType string

// Event types
const (
	EventStateChanged EventType = "state_changed"
	EventMoveStarted  EventType = "move_started"
	EventMoveFinished EventType = "move_finished"
)

// Event is published to subscribers on every notification and on move start
// and resolution.
type Event struct {
	Type      EventType   `json:"type"`
	Device    string      `json:"device"`
	Flavor    Flavor      `json:"flavor"`
	State     State       `json:"state"`
	Previous  State       `json:"previous,omitempty"`
	Request   RequestKind `json:"request,omitempty"`
	MoveID    string      `json:"move_id,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
