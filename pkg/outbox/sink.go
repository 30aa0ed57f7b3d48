package outbox

import "context"

// Sink delivers resolved outbox messages to a broker. Publish returns only
// after the broker acknowledged the message.
type Sink interface {
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}
