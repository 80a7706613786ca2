package xactor

import "fmt"

// ActorID is the unique identity an actor registers under.
type ActorID string

// Actor is the capability set every bus component implements.
//
// The bus guarantees two happens-before rules: delivery of an envelope
// happens before the OnMessage call that observes it, and processing one
// envelope happens before processing the next one from the same producer.
//
// OnMessage runs on a shared scheduling resource; implementations must keep
// per-call processing time bounded (the bus watchdog marks actors that stall
// past the configured grace as Failed). OnStop is invoked exactly once, even
// when OnStart or message handling failed.
type Actor interface {
	// ID returns the actor's identity. It must be stable and unique.
	ID() ActorID

	// OnStart is called once before any message delivery. It may perform
	// setup and publish initial messages through ctx.
	OnStart(ctx Context) error

	// OnMessage is invoked for each delivered envelope matching the actor's
	// subscriptions.
	OnMessage(ctx Context, env Envelope) Outcome

	// OnStop releases resources. Guaranteed-cleanup contract: always invoked,
	// exactly once.
	OnStop(ctx Context)
}

// MessageFunc is the shape interceptors compose around; it mirrors
// Actor.OnMessage.
type MessageFunc func(ctx Context, env Envelope) Outcome

type outcomeCode uint8

const (
	outcomeContinue outcomeCode = iota
	outcomeError
	outcomeShutdown
)

// Outcome is an actor's verdict for a single OnMessage call. Construct with
// Continue, Fail or RequestShutdown.
type Outcome struct {
	code outcomeCode
	err  error
}

// Continue reports successful processing.
func Continue() Outcome { return Outcome{code: outcomeContinue} }

// Fail reports an unrecoverable condition; the bus transitions the actor to
// Failed and isolates it from the rest of the system.
func Fail(err error) Outcome {
	if err == nil {
		err = fmt.Errorf("actor reported failure")
	}
	return Outcome{code: outcomeError, err: err}
}

// RequestShutdown asks the bus to stop this actor gracefully. It is the only
// way an actor removes itself from the bus.
func RequestShutdown() Outcome { return Outcome{code: outcomeShutdown} }

// Err returns the failure carried by a Fail outcome, nil otherwise.
func (o Outcome) Err() error { return o.err }
