package contract

import (
	"context"

	"dm-relay/domain"
)

// MessageSink is the outbound half of a connection. Implementations must
// preserve per-connection ordering and must not block the caller
// indefinitely: a slow peer is the sink's problem, not the sender's.
type MessageSink interface {
	Consume(ctx context.Context, m domain.Message) error
}

// ErrorSink is implemented by sinks that can surface a per-event failure
// to their own peer. Sinks without it get failures logged instead.
type ErrorSink interface {
	ConsumeError(ctx context.Context, detail string) error
}

// Receiver is the inbound half of a connection. Receive blocks until a
// payload arrives; it returns an error once the connection is closed.
type Receiver interface {
	Receive(ctx context.Context) ([]byte, error)
}

// IRegistry is the authoritative presence map: which identities currently
// have an open outbound channel.
type IRegistry interface {
	Register(username string, sink MessageSink)
	Unregister(username string, sink MessageSink)
	Lookup(username string) (MessageSink, bool)
}
