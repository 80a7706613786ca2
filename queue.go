package xactor

// Policy selects the overload behavior for one subscription. The zero value
// is BlockProducer.
type Policy uint8

const (
	// PolicyBlockProducer suspends the publishing actor until space frees.
	// Used where loss is unacceptable (order flow, execution reports).
	PolicyBlockProducer Policy = iota
	// PolicyDropNewest discards the incoming envelope and reports a Drop
	// event. Used for high-frequency, loss-tolerant streams (price ticks).
	PolicyDropNewest
)

func (p Policy) String() string {
	if p == PolicyDropNewest {
		return "drop_newest"
	}
	return "block_producer"
}

// inbox is a bounded single-consumer queue. Enqueue is safe under concurrent
// publishers; the owning actor's loop is the only reader. The channel is
// never closed: consumers leave via their stop signal, so a racing producer
// can never panic on send.
type inbox struct {
	ch chan Envelope
}

func newInbox(capacity int) *inbox {
	if capacity < 1 {
		capacity = 1
	}
	return &inbox{ch: make(chan Envelope, capacity)}
}

// tryPut enqueues without blocking.
func (q *inbox) tryPut(env Envelope) bool {
	select {
	case q.ch <- env:
		return true
	default:
		return false
	}
}

// put blocks until the envelope is accepted or one of the abort channels
// fires (consumer stopping, bus shutting down). Returns false when aborted;
// the envelope is then discarded.
func (q *inbox) put(env Envelope, abort ...<-chan struct{}) bool {
	switch len(abort) {
	case 1:
		select {
		case q.ch <- env:
			return true
		case <-abort[0]:
			return false
		}
	case 2:
		select {
		case q.ch <- env:
			return true
		case <-abort[0]:
			return false
		case <-abort[1]:
			return false
		}
	default:
		q.ch <- env
		return true
	}
}

// tryGet dequeues without blocking.
func (q *inbox) tryGet() (Envelope, bool) {
	select {
	case env := <-q.ch:
		return env, true
	default:
		return Envelope{}, false
	}
}

func (q *inbox) len() int { return len(q.ch) }
