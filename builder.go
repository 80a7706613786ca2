package xactor

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

const (
	defaultQueueCapacity = 1024
	defaultPoolWorkers   = 4
	defaultPoolBuffer    = 1024
)

// BusBuilder constructs Bus instances (Builder pattern).
type BusBuilder struct {
	logger       *xlog.Logger
	clock        xclock.Clock
	observers    []Observer
	interceptors []Interceptor

	poolWorkers int
	poolBuffer  int

	defaultCapacity int
	defaultDrain    bool
	watchdogGrace   time.Duration
}

// NewBusBuilder returns a builder with sensible defaults: 1024-slot inboxes,
// discard-on-shutdown, watchdog disabled.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		poolWorkers:     defaultPoolWorkers,
		poolBuffer:      defaultPoolBuffer,
		defaultCapacity: defaultQueueCapacity,
	}
}

// WithLogger injects a custom xlog logger.
func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

// WithClock injects a custom xclock clock (deterministic tests).
func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithObserver attaches observers for lifecycle events.
func (bb *BusBuilder) WithObserver(obs ...Observer) *BusBuilder {
	for _, o := range obs {
		if o != nil {
			bb.observers = append(bb.observers, o)
		}
	}
	return bb
}

// WithInterceptor adds processing interceptors around every OnMessage.
func (bb *BusBuilder) WithInterceptor(ics ...Interceptor) *BusBuilder {
	if len(ics) == 0 {
		return bb
	}
	bb.interceptors = append(bb.interceptors, ics...)
	return bb
}

// WithObserverPool sizes the async observer dispatch pool.
func (bb *BusBuilder) WithObserverPool(workers, bufferSize int) *BusBuilder {
	if workers > 0 {
		bb.poolWorkers = workers
	}
	if bufferSize > 0 {
		bb.poolBuffer = bufferSize
	}
	return bb
}

// WithDefaultQueueCapacity sets the inbox bound actors get unless they
// override it at registration.
func (bb *BusBuilder) WithDefaultQueueCapacity(n int) *BusBuilder {
	if n > 0 {
		bb.defaultCapacity = n
	}
	return bb
}

// WithDefaultDrainOnShutdown selects drain (process remaining queue) vs
// discard as the stopping default.
func (bb *BusBuilder) WithDefaultDrainOnShutdown(drain bool) *BusBuilder {
	bb.defaultDrain = drain
	return bb
}

// WithWatchdog enables the liveness monitor: an actor whose handler stalls
// past grace is marked Failed. Its OnStop then runs from the watchdog
// goroutine while the stuck handler is abandoned; keep OnStop reentrant with
// respect to in-flight work. Zero disables the watchdog.
func (bb *BusBuilder) WithWatchdog(grace time.Duration) *BusBuilder {
	if grace > 0 {
		bb.watchdogGrace = grace
	}
	return bb
}

// Build assembles the Bus.
func (bb *BusBuilder) Build() (*Bus, error) {
	clk := bb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := bb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	b := &Bus{
		logger:        lg,
		clock:         clk,
		interceptors:  bb.interceptors,
		watchdogGrace: bb.watchdogGrace,
		defaultReg: registration{
			capacity: bb.defaultCapacity,
			drain:    bb.defaultDrain,
		},
		byID:         make(map[ActorID]*handle),
		shutdownC:    make(chan struct{}),
		metrics:      &busMetrics{},
		observerPool: NewObserverPool(context.Background(), bb.poolWorkers, bb.poolBuffer),
	}

	// Attach a logging observer unless one was supplied externally.
	hasLoggingObserver := false
	for _, o := range bb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver {
		b.AddObserver(LoggingObserver{Logger: lg})
	}
	for _, o := range bb.observers {
		b.AddObserver(o)
	}

	return b, nil
}
