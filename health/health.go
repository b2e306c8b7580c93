// Package health keeps the single status value shared by every stage of the
// sampling pipeline and reports it to interested sinks.
package health

import (
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("health")

// Status enumerates the states a client can report. The numeric order is the
// severity order.
type Status uint8

const (
	Initializing Status = iota
	SearchingForService
	Active
	Crashed
	ShuttingDown
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case SearchingForService:
		return "SearchingForService"
	case Active:
		return "Active"
	case Crashed:
		return "Crashed"
	case ShuttingDown:
		return "ShuttingDown"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a snapshot of the client status.
type State struct {
	Status    Status    `json:"status"`
	Detail    string    `json:"detail"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s State) String() string {
	return fmt.Sprintf("%s(%s)", s.Status, s.Detail)
}

// Sink receives every applied state change. Update is called outside the
// Tracker's lock and must not block for long.
type Sink interface {
	Update(State)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(State)

func (f SinkFunc) Update(s State) { f(s) }

// Tracker owns the client status. All mutations are serialized; readers
// always get a copy.
type Tracker struct {
	lk    sync.Mutex
	state State
	sinks []Sink

	now func() time.Time
}

// NewTracker creates a Tracker in the Initializing state.
func NewTracker(detail string) *Tracker {
	t := &Tracker{now: time.Now}
	t.state = State{Status: Initializing, Detail: detail, UpdatedAt: t.now()}
	return t
}

// Get returns the current state.
func (t *Tracker) Get() State {
	t.lk.Lock()
	defer t.lk.Unlock()
	return t.state
}

// AddSink registers a Sink. The sink is immediately fed the current state.
func (t *Tracker) AddSink(s Sink) {
	t.lk.Lock()
	t.sinks = append(t.sinks, s)
	cur := t.state
	t.lk.Unlock()

	s.Update(cur)
}

// Set moves the tracker into the given status. Transitions that lower the
// severity are refused, with the exception of Recover. ShuttingDown is
// terminal. Set reports whether the transition was applied.
func (t *Tracker) Set(status Status, detail string) bool {
	return t.apply(func(cur State) bool {
		switch {
		case cur.Status == ShuttingDown:
			return false
		case status < cur.Status:
			return false
		}
		return true
	}, status, detail)
}

// ActivateUnlessCrashed sets Active unless the tracker is Crashed or
// ShuttingDown. It reports whether Active was set.
func (t *Tracker) ActivateUnlessCrashed(detail string) bool {
	return t.apply(func(cur State) bool {
		return cur.Status <= Active
	}, Active, detail)
}

// Recover clears a Crashed state back to Active. It is a no-op in any other
// state.
func (t *Tracker) Recover(detail string) bool {
	return t.apply(func(cur State) bool {
		return cur.Status == Crashed
	}, Active, detail)
}

func (t *Tracker) apply(allowed func(State) bool, status Status, detail string) bool {
	t.lk.Lock()
	if !allowed(t.state) {
		t.lk.Unlock()
		return false
	}
	prev := t.state
	t.state = State{Status: status, Detail: detail, UpdatedAt: t.now()}
	next := t.state
	sinks := make([]Sink, len(t.sinks))
	copy(sinks, t.sinks)
	t.lk.Unlock()

	if prev.Status != next.Status {
		log.Infow("status changed", "from", prev.Status, "to", next.Status, "detail", detail)
	}
	for _, s := range sinks {
		s.Update(next)
	}
	return true
}
