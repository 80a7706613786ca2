package xactor

// Context is the capability surface the bus hands to an actor. It exposes
// exactly two operations: fire-and-forget Publish and Self. Actors never
// receive references to other actors; all interaction is mediated by the
// bus, which keeps producers and consumers decoupled and lets an actor be
// tested by feeding it envelopes with a fake Context.
type Context interface {
	// Publish routes a message to every subscriber of its variant. It
	// returns immediately unless a BlockProducer subscriber's queue is full,
	// in which case the caller is suspended until space frees. Queue-full
	// under DropNewest is reported as a Drop event, not returned here.
	Publish(msg Message) error

	// Self returns the identity the actor registered under.
	Self() ActorID
}

// busContext is the bus-backed Context implementation.
type busContext struct {
	bus *Bus
	id  ActorID
}

var _ Context = (*busContext)(nil)

func (c *busContext) Publish(msg Message) error {
	return c.bus.publishFrom(c.id, msg)
}

func (c *busContext) Self() ActorID { return c.id }
