package raft

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/logstore"
	"github.com/bbengfort/raftkv/internal/message"
)

// handlePut implements spec.md §4.7 "Put." The client only sees a
// response once the appended entry is actually applied (§4.6); this
// handler appends, replicates, and then tries to advance the commit
// index, which in a one-node cluster commits and applies the entry at
// once.
func (r *Replica) handlePut(ctx context.Context, m message.Message) {
	switch {
	case r.role == Leader:
		log.Info().Str("key", m.Key).Str("client", m.Src).Msg("accepting put")
		r.log.Append(logstore.Entry{
			Term:         r.term,
			Key:          m.Key,
			Value:        m.Value,
			OriginClient: m.Src,
			RequestID:    m.MID,
		})
		r.broadcastAppendEntries(ctx)
		r.advanceCommit(ctx)
	case r.leaderHint == message.Broadcast:
		r.send(ctx, message.Message{Dst: m.Src, Type: message.TypeFail, MID: m.MID})
	default:
		r.send(ctx, message.Message{Dst: m.Src, Type: message.TypeRedirect, MID: m.MID})
	}
}

// handleGet implements spec.md §4.7 "Get": a leader-local read against
// the applied K/V map, with no read-quorum check (flagged as a known
// staleness risk in spec.md §9, preserved here).
func (r *Replica) handleGet(ctx context.Context, m message.Message) {
	switch {
	case r.role == Leader:
		value := r.kv.Get(m.Key)
		r.send(ctx, message.Message{Dst: m.Src, Type: message.TypeOK, MID: m.MID, Value: value})
	case r.leaderHint == message.Broadcast:
		r.send(ctx, message.Message{Dst: m.Src, Type: message.TypeFail, MID: m.MID})
	default:
		r.send(ctx, message.Message{Dst: m.Src, Type: message.TypeRedirect, MID: m.MID})
	}
}
