package xactor

import (
	"github.com/trickstertwo/xlog"
)

// Observer receives bus lifecycle events. Implementations should be
// non-blocking; dispatch happens on a shared worker pool.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver is an Adapter that emits bus events via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("actor", string(e.Actor)),
	)
	switch e.Type {
	case EventActorFailure:
		ev.Warn().Err(e.Err).Msg("xactor event")
	case EventDrop, EventDiscard, EventOrphaned:
		ev.With(xlog.Str("kind", e.Kind.String())).Warn().Msg("xactor event")
	case EventActorState:
		ev.With(xlog.Str("state", e.State.String())).Info().Msg("xactor event")
	default:
		ev = ev.With(xlog.Str("kind", e.Kind.String()))
		if e.Duration > 0 {
			ev = ev.With(xlog.Dur("duration", e.Duration))
		}
		ev.Debug().Msg("xactor event")
	}
}
