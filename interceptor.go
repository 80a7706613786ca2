package xactor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/trickstertwo/xlog"
)

// Interceptor composes processing concerns around an actor's OnMessage.
type Interceptor func(next MessageFunc) MessageFunc

// Chain composes interceptors around a handler in order.
func Chain(h MessageFunc, ics ...Interceptor) MessageFunc {
	if len(ics) == 0 {
		return h
	}
	wrapped := h
	// Apply in reverse so that first interceptor wraps last.
	for i := len(ics) - 1; i >= 0; i-- {
		if ics[i] == nil {
			continue
		}
		wrapped = ics[i](wrapped)
	}
	return wrapped
}

// RecoveryInterceptor prevents handler panics from crashing the actor loop
// and converts them into failure outcomes. The bus always installs it as the
// innermost layer.
func RecoveryInterceptor() Interceptor {
	return func(next MessageFunc) MessageFunc {
		return func(ctx Context, env Envelope) (out Outcome) {
			defer func() {
				if r := recover(); r != nil {
					out = Fail(fmt.Errorf("panic recovered: %v", r))
				}
			}()
			return next(ctx, env)
		}
	}
}

// LoggingInterceptor emits a debug line per delivery.
func LoggingInterceptor(l *xlog.Logger) Interceptor {
	if l == nil {
		return func(next MessageFunc) MessageFunc { return next }
	}
	return func(next MessageFunc) MessageFunc {
		return func(ctx Context, env Envelope) Outcome {
			start := time.Now()
			out := next(ctx, env)
			l.Debug().
				Str("actor", string(ctx.Self())).
				Str("kind", env.Kind().String()).
				Str("seq", strconv.FormatUint(env.Seq, 10)).
				Dur("dur", time.Since(start)).
				Err(out.Err()).
				Msg("handled")
			return out
		}
	}
}
