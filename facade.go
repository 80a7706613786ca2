package xactor

// New constructs a Bus via Builder and returns it, for callers that prefer a
// single expression over builder chaining.
func New(init func(b *BusBuilder)) (*Bus, error) {
	bb := NewBusBuilder()
	if init != nil {
		init(bb)
	}
	return bb.Build()
}
