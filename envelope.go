package xactor

import "time"

// BusIdentity is the sender recorded on envelopes the bus itself injects
// (PublishExternal and control-plane traffic).
const BusIdentity ActorID = "_bus"

// Envelope is the unit moved through inboxes: a Message plus routing
// metadata. It is produced once at publish time and handed to each
// subscriber by value; ownership transfers to the receiving actor's
// processing context on delivery.
type Envelope struct {
	// Msg is the published payload. Immutable by contract.
	Msg Message
	// Sender is the identity of the publishing actor, or BusIdentity.
	Sender ActorID
	// Seq is the bus-wide sequence number, unique and strictly increasing
	// within a single bus instance.
	Seq uint64
	// TS is the logical timestamp: the producer's, or bus-assigned when the
	// producer left it zero.
	TS time.Time
}

// Kind is shorthand for the payload's variant tag.
func (e Envelope) Kind() Kind { return e.Msg.Kind() }
