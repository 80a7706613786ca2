package xactor

import "sync/atomic"

// busMetrics uses lock-free atomics so the dispatch hot path never takes a
// lock for telemetry.
type busMetrics struct {
	published [numKinds]atomic.Uint64
	delivered [numKinds]atomic.Uint64
	dropped   [numKinds]atomic.Uint64
	discarded [numKinds]atomic.Uint64
	orphaned  [numKinds]atomic.Uint64
	failures  atomic.Uint64
}

// KindCounts is the per-variant slice of a metrics snapshot.
type KindCounts struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
	Discarded uint64
	Orphaned  uint64
}

// Snapshot is a read-only view of bus telemetry: message counts per variant
// and the current state of every registered actor. Taking a snapshot never
// touches the dispatch path.
type Snapshot struct {
	Kinds                 map[Kind]KindCounts
	Actors                map[ActorID]ActorState
	Failures              uint64
	LastSeq               uint64
	ObserverEventsDropped uint64
}

// Metrics returns the current telemetry snapshot.
func (b *Bus) Metrics() Snapshot {
	s := Snapshot{
		Kinds:    make(map[Kind]KindCounts, numKinds),
		Actors:   make(map[ActorID]ActorState, len(b.handles)),
		Failures: b.metrics.failures.Load(),
		LastSeq:  b.seq.Load(),
	}
	for _, k := range Kinds() {
		s.Kinds[k] = KindCounts{
			Published: b.metrics.published[k].Load(),
			Delivered: b.metrics.delivered[k].Load(),
			Dropped:   b.metrics.dropped[k].Load(),
			Discarded: b.metrics.discarded[k].Load(),
			Orphaned:  b.metrics.orphaned[k].Load(),
		}
	}
	b.mu.Lock()
	handles := b.handles
	b.mu.Unlock()
	for _, h := range handles {
		s.Actors[h.id] = h.currentState()
	}
	if b.observerPool != nil {
		s.ObserverEventsDropped = b.observerPool.Stats().Dropped
	}
	return s
}
