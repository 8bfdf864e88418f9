package raft

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/clock"
	"github.com/bbengfort/raftkv/internal/message"
	"github.com/bbengfort/raftkv/internal/transport"
)

// Run is the main loop of spec.md §5: while not cancelled, emit a
// heartbeat if due, block on the transport for the next message
// (bounded by the nearer of the election deadline and, for a Leader,
// the next heartbeat due time — the receive-with-deadline design
// spec.md §9 recommends over polling), dispatch by message type, then
// check the election timeout.
func (r *Replica) Run(ctx context.Context) error {
	r.send(ctx, message.Message{Dst: message.Broadcast, Type: message.TypeHello})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.checkHeartbeat(ctx)

		deadline := r.nextDeadline()
		m, err := r.tr.Recv(ctx, deadline)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				r.checkElectionTimeout(ctx)
				r.publishSnapshot()
				continue
			}
			return err
		}

		r.dispatch(ctx, m)
		r.checkElectionTimeout(ctx)
		r.publishSnapshot()
	}
}

// nextDeadline is the nearer of the election deadline and, for a
// Leader, the next heartbeat due time.
func (r *Replica) nextDeadline() time.Time {
	deadline := r.electionDeadline
	if r.role == Leader {
		nextHeartbeat := r.lastHeartbeat.Add(clock.HeartbeatInterval)
		if nextHeartbeat.Before(deadline) {
			deadline = nextHeartbeat
		}
	}
	return deadline
}

// dispatch routes one decoded message to its handler by type.
func (r *Replica) dispatch(ctx context.Context, m message.Message) {
	log.Trace().Str("from", m.Src).Str("type", string(m.Type)).Msg("dispatch")

	switch m.Type {
	case message.TypeGet:
		r.handleGet(ctx, m)
	case message.TypePut:
		r.handlePut(ctx, m)
	case message.TypeVote:
		r.handleVoteRequest(ctx, m)
	case message.TypeVoteResponse:
		r.handleVoteResponse(ctx, m)
	case message.TypeAppendEntries:
		r.handleAppendEntries(ctx, m)
	case message.TypeAppendTrue:
		r.handleAppendSuccess(ctx, m)
	case message.TypeAppendFalse:
		r.handleAppendFailure(ctx, m)
	case message.TypeHello:
		// Informational only; no state change.
	default:
		log.Warn().Str("type", string(m.Type)).Msg("dispatch: unhandled message type")
	}
}
