// Package transport provides the datagram channel the core consumes:
// a stream of decoded messages in, encoded messages out. Per spec.md
// §1, socket setup and the wire envelope are external collaborators;
// internal/raft depends only on the Transport interface below, never
// on net or internal/message's JSON shape directly.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/bbengfort/raftkv/internal/message"
)

// ErrTimeout is returned by Recv when the deadline elapses with no
// message available. The main loop treats this as "poll the timers
// and try again" rather than as a failure (spec.md §5, §9).
var ErrTimeout = errors.New("transport: receive deadline exceeded")

// Transport is the seam between the Raft core and the outside world.
// Implementations may be a real UDP socket or, in tests, an in-memory
// switchboard connecting multiple replicas in one process.
type Transport interface {
	// Send enqueues a message for delivery. It does not block on the
	// peer receiving it; the underlying datagram transport may drop
	// or reorder it arbitrarily (spec.md §5).
	Send(ctx context.Context, m message.Message) error

	// Recv blocks until a message arrives or the deadline passes,
	// whichever is first. It returns ErrTimeout on the latter.
	Recv(ctx context.Context, deadline time.Time) (message.Message, error)

	// LocalID returns this replica's own id, as known to the
	// transport layer.
	LocalID() string
}
