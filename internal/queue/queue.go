// Package queue abstracts the inbound telemetry message channel.
package queue

import "context"

// Delivery is one opaque message taken from a queue. Exactly one of Ack or
// Reject must be called; Reject drops the message without redelivery.
type Delivery struct {
	Body   []byte
	Ack    func() error
	Reject func() error
}

// Source hands out a continuous sequence of deliveries per queue. The
// returned channel closes when the upstream channel closes or ctx is done.
type Source interface {
	Consume(ctx context.Context, queue string) (<-chan Delivery, error)
}
