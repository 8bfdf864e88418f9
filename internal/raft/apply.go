package raft

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/message"
)

// applyCommitted implements spec.md §4.6: advance last_applied up to
// commit_index one entry at a time, writing each into the K/V map. If
// this replica is currently Leader and the entry carries a client's
// origin and request id, the client is notified once its entry has
// actually been applied, not merely committed elsewhere.
func (r *Replica) applyCommitted(ctx context.Context) {
	for r.lastApplied < r.commitIndex {
		r.lastApplied++
		entry := r.log.At(r.lastApplied)
		r.kv.Set(entry.Key, entry.Value)
		log.Trace().Int64("index", r.lastApplied).Str("key", entry.Key).Msg("applied")

		if r.role == Leader && entry.HasCommand() {
			r.send(ctx, message.Message{
				Dst:  entry.OriginClient,
				Type: message.TypeOK,
				MID:  entry.RequestID,
			})
		}
	}
}
