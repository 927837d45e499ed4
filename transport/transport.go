// Package transport defines the event-stream capability used by transactions.
//
// A Transport exchanges named events carrying opaque payloads with a single
// remote peer. Connection lifecycle (dial, reconnect, heartbeat) belongs to
// the implementation; transactions only emit and subscribe.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport closed")

// Handler processes one inbound payload for a subscribed event.
// Handlers run on a goroutine owned by the transport and may be invoked
// zero or more times. Implementations pass each handler its own copy of
// the payload.
type Handler func(payload []byte)

// Transport is the capability a transaction needs from the event channel.
type Transport interface {
	// Emit sends one event to the peer. Delivery is not acknowledged: a nil
	// error only means the event was handed to the underlying connection.
	Emit(ctx context.Context, event string, payload []byte) error

	// Subscribe installs h for event, replacing any prior handler for the
	// same name. At most one handler per event name is active.
	Subscribe(event string, h Handler) error

	// Unsubscribe removes the handler for event. Safe to call when nothing
	// is subscribed.
	Unsubscribe(event string) error

	// IsConnected reports whether the peer is currently reachable.
	// Advisory only: the answer can be stale by the time it is used.
	IsConnected() bool

	// Close releases transport resources. Further calls return ErrClosed.
	Close() error
}
