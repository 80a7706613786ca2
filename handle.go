package xactor

import (
	"sync"
	"sync/atomic"
)

// ActorState tracks an actor through its lifecycle. Ordering matters: every
// state at or past StateStopping stops the bus from enqueuing new envelopes.
type ActorState uint32

const (
	StateRegistered ActorState = iota
	StateStarted
	StateRunning
	StatePaused
	StateStopping
	StateStopped
	StateFailed
)

func (s ActorState) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateStarted:
		return "started"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether the state can never be left again.
func (s ActorState) terminal() bool { return s == StateStopped || s == StateFailed }

// Subscription binds one message variant to an overload policy.
type Subscription struct {
	Kind   Kind
	Policy Policy
}

// Subscriptions is the ordered variant list an actor registers with.
type Subscriptions []Subscription

// registration carries per-actor knobs resolved at Register time.
type registration struct {
	capacity int
	drain    bool
}

// RegisterOption overrides bus defaults for a single actor.
type RegisterOption func(*registration)

// WithQueueCapacity bounds the actor's inbound queue.
func WithQueueCapacity(n int) RegisterOption {
	return func(r *registration) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithDrainOnShutdown selects whether queued envelopes are processed or
// discarded when the actor enters Stopping.
func WithDrainOnShutdown(drain bool) RegisterOption {
	return func(r *registration) { r.drain = drain }
}

// controlLaneCapacity bounds the per-actor priority lane. Control traffic is
// rare; the lane only needs to absorb short bursts.
const controlLaneCapacity = 16

// handle is the bus's opaque reference to a registered actor. The bus owns
// every handle for its lifetime; actors never see their own.
type handle struct {
	id    ActorID
	actor Actor
	ctx   Context

	inbox    *inbox
	controlC chan Envelope

	subs       Subscriptions
	subscribed [numKinds]bool
	policy     [numKinds]Policy
	drain      bool

	// handler is the interceptor chain around actor.OnMessage, composed once
	// before Run starts delivering.
	handler MessageFunc

	state atomic.Uint32

	stopOnce   sync.Once
	stopC      chan struct{}
	onStopOnce sync.Once
	doneOnce   sync.Once
	doneC      chan struct{}

	// busySince is the wall-clock nanosecond stamp of the in-flight handler
	// call, 0 when idle. Read by the watchdog.
	busySince atomic.Int64
}

func newHandle(a Actor, subs Subscriptions, reg registration) *handle {
	h := &handle{
		id:       a.ID(),
		actor:    a,
		inbox:    newInbox(reg.capacity),
		controlC: make(chan Envelope, controlLaneCapacity),
		subs:     subs,
		drain:    reg.drain,
		stopC:    make(chan struct{}),
		doneC:    make(chan struct{}),
	}
	for _, s := range subs {
		h.subscribed[s.Kind] = true
		h.policy[s.Kind] = s.Policy
	}
	return h
}

func (h *handle) currentState() ActorState {
	return ActorState(h.state.Load())
}

// transition moves from -> to atomically; returns false when the handle was
// not in the expected state.
func (h *handle) transition(from, to ActorState) bool {
	return h.state.CompareAndSwap(uint32(from), uint32(to))
}

func (h *handle) setState(s ActorState) {
	h.state.Store(uint32(s))
}

// accepting reports whether the bus may still enqueue to this actor.
func (h *handle) accepting() bool {
	return h.currentState() < StateStopping
}

// requestStop asks the loop to enter Stopping; idempotent.
func (h *handle) requestStop() {
	h.stopOnce.Do(func() { close(h.stopC) })
}

// complete marks the actor finished for Run's barrier; idempotent so the
// watchdog can release a hung actor without racing the loop's own exit.
func (h *handle) complete() {
	h.doneOnce.Do(func() { close(h.doneC) })
}
