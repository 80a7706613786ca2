package xactor

import "context"

// API represents the complete xactor surface for extensibility.
type API interface {
	Register(a Actor, subs Subscriptions, opts ...RegisterOption) (ActorID, error)
	Run(ctx context.Context) error
	PublishExternal(msg Message) error
	Shutdown()
	Metrics() Snapshot
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

var _ API = (*Bus)(nil)
