package xactor

import "time"

// EventType enumerates internal lifecycle events for the Observer pattern.
type EventType string

const (
	// EventPublish fires for every message accepted by the bus.
	EventPublish EventType = "publish"
	// EventDeliver fires after a subscriber's OnMessage returns.
	EventDeliver EventType = "deliver"
	// EventDrop fires when DropNewest discards an envelope for a full queue,
	// or a blocked producer is released by shutdown before handoff.
	EventDrop EventType = "drop"
	// EventDiscard fires when a stopping actor's queue is thrown away.
	EventDiscard EventType = "discard"
	// EventOrphaned fires when a variant has registered subscribers but none
	// of them is still live; the message is silently dropped.
	EventOrphaned EventType = "orphaned"
	// EventActorState fires on every lifecycle transition.
	EventActorState EventType = "actor_state"
	// EventActorFailure fires when an actor is isolated as Failed.
	EventActorFailure EventType = "actor_failure"
)

// Event carries telemetry for observers. Emission is asynchronous and off the
// dispatch hot path; observers must tolerate drops under burst.
type Event struct {
	Type     EventType
	Kind     Kind
	Actor    ActorID
	Sender   ActorID
	Seq      uint64
	State    ActorState
	Count    uint64
	Duration time.Duration
	Err      error

	// Internal: attached for async dispatch
	observers []Observer
}
