package xactor

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIdentity is returned by Register when the identity exists.
	ErrDuplicateIdentity = errors.New("xactor: actor identity already registered")
	// ErrAlreadyRunning is returned when registration or Run is attempted
	// after the bus has started. Registration is closed-world once running.
	ErrAlreadyRunning = errors.New("xactor: bus already running")
	// ErrNotRunning is returned by publish operations before Run has started.
	ErrNotRunning = errors.New("xactor: bus not running")
	// ErrBusClosed is returned by publish operations after Run has returned.
	ErrBusClosed = errors.New("xactor: bus closed")
	// ErrNoActors is returned by Run when nothing was registered.
	ErrNoActors = errors.New("xactor: no actors registered")
	// ErrEmptyIdentity is returned by Register for a blank actor ID.
	ErrEmptyIdentity = errors.New("xactor: actor identity must not be empty")
	// ErrDuplicateSubscription is returned by Register when the same variant
	// appears twice in the subscription list.
	ErrDuplicateSubscription = errors.New("xactor: duplicate subscription for variant")
	// ErrInvalidSubscription is returned by Register for a variant tag
	// outside the closed set.
	ErrInvalidSubscription = errors.New("xactor: invalid subscription")
	// ErrNilActor is returned by Register for a nil actor.
	ErrNilActor = errors.New("xactor: actor must not be nil")
	// ErrNilMessage is returned by publish operations for a nil message.
	ErrNilMessage = errors.New("xactor: message must not be nil")
	// ErrObserverPoolShutdownTimeout reports that pool workers did not drain
	// in time during close.
	ErrObserverPoolShutdownTimeout = errors.New("xactor: observer pool shutdown timeout")
)

// ActorFailure records an unrecoverable condition reported by (or observed
// on) a single actor. Failures are isolated: they are emitted as events and
// never unwind the dispatch loop.
type ActorFailure struct {
	ActorID ActorID
	// Stage is where the failure surfaced: "start", "message", "stop" or
	// "watchdog".
	Stage string
	Err   error
}

func (e *ActorFailure) Error() string {
	return fmt.Sprintf("actor %s failed during %s: %v", e.ActorID, e.Stage, e.Err)
}

func (e *ActorFailure) Unwrap() error { return e.Err }
