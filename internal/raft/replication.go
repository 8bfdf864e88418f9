package raft

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/clock"
	"github.com/bbengfort/raftkv/internal/logstore"
	"github.com/bbengfort/raftkv/internal/message"
)

// checkHeartbeat broadcasts an empty append-entries if the leader's
// heartbeat interval has elapsed since the last broadcast (spec.md
// §4.5, §5's main loop step (a)).
func (r *Replica) checkHeartbeat(ctx context.Context) {
	if r.role != Leader {
		return
	}
	if r.clock.Now().Sub(r.lastHeartbeat) < clock.HeartbeatInterval {
		return
	}
	r.broadcastHeartbeat(ctx)
	r.lastHeartbeat = r.clock.Now()
}

// toWireEntries converts log entries to their wire representation.
func toWireEntries(entries []logstore.Entry) []message.Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]message.Entry, len(entries))
	for i, e := range entries {
		out[i] = message.Entry{
			Term:         e.Term,
			Key:          e.Key,
			Value:        e.Value,
			OriginClient: e.OriginClient,
			RequestID:    e.RequestID,
		}
	}
	return out
}

func fromWireEntries(entries []message.Entry) []logstore.Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]logstore.Entry, len(entries))
	for i, e := range entries {
		out[i] = logstore.Entry{
			Term:         e.Term,
			Key:          e.Key,
			Value:        e.Value,
			OriginClient: e.OriginClient,
			RequestID:    e.RequestID,
		}
	}
	return out
}

// appendEntriesFor constructs the per-peer append-entries payload of
// spec.md §4.5: prevLogIndex/prevLogTerm from the peer's next_index
// cursor, entries from next_index onward (empty for a pure
// heartbeat).
func (r *Replica) appendEntriesFor(peer string, heartbeatOnly bool) message.Message {
	next := r.nextIndex[peer]
	prevLogIndex := next - 1
	var prevLogTerm int64
	if r.log.InRange(prevLogIndex) {
		prevLogTerm = r.log.At(prevLogIndex).Term
	}

	var entries []logstore.Entry
	if !heartbeatOnly {
		entries = r.log.Slice(next)
	}

	return message.Message{
		Dst:          peer,
		Type:         message.TypeAppendEntries,
		Term:         r.term,
		PrevLogIndex: prevLogIndex,
		PrevLogTerm:  prevLogTerm,
		Entries:      toWireEntries(entries),
		LeaderCommit: r.commitIndex,
	}
}

// broadcastHeartbeat sends an empty append-entries to every peer.
func (r *Replica) broadcastHeartbeat(ctx context.Context) {
	for _, p := range r.peers {
		r.send(ctx, r.appendEntriesFor(p, true))
	}
}

// broadcastAppendEntries sends each peer whatever entries it is
// missing (per that peer's next_index cursor), used after a new entry
// is appended to the leader's log.
func (r *Replica) broadcastAppendEntries(ctx context.Context) {
	for _, p := range r.peers {
		r.replicateTo(ctx, p)
	}
}

// replicateTo sends a non-heartbeat append-entries (carrying whatever
// entries the peer is missing) to one peer.
func (r *Replica) replicateTo(ctx context.Context, peer string) {
	r.send(ctx, r.appendEntriesFor(peer, false))
}

// handleAppendEntries implements the follower path of spec.md §4.5.
func (r *Replica) handleAppendEntries(ctx context.Context, m message.Message) {
	if m.Term < r.term {
		// Stale leader: ignore (spec.md §7).
		log.Debug().Str("leader", m.Src).Int64("term", m.Term).Msg("ignoring stale append-entries")
		return
	}

	// Adopt Follower role under this leader, even if we were already
	// a Follower, so the leader hint and election timer are refreshed.
	r.term = m.Term
	r.votedFor = ""
	r.role = Follower
	r.leaderHint = m.Src
	r.resetElectionDeadline()

	if m.PrevLogIndex > r.log.LastIndex() {
		r.send(ctx, message.Message{
			Dst:          m.Src,
			Type:         message.TypeAppendFalse,
			Term:         r.term,
			NextIndex:    r.log.Len(),
			HasNextIndex: true,
		})
		return
	}

	if r.log.At(m.PrevLogIndex).Term != m.PrevLogTerm {
		conflictIndex := r.log.FirstIndexOfTerm(m.PrevLogIndex)
		r.send(ctx, message.Message{
			Dst:          m.Src,
			Type:         message.TypeAppendFalse,
			Term:         r.term,
			NextIndex:    conflictIndex,
			HasNextIndex: true,
		})
		return
	}

	// Accept: truncate to prevLogIndex+1, then extend.
	r.log.TruncateExtend(m.PrevLogIndex+1, fromWireEntries(m.Entries))

	if m.LeaderCommit > r.commitIndex {
		newCommit := m.LeaderCommit
		if r.log.LastIndex() < newCommit {
			newCommit = r.log.LastIndex()
		}
		r.commitIndex = newCommit
		r.applyCommitted(ctx)
	}

	if len(m.Entries) > 0 {
		r.send(ctx, message.Message{
			Dst:       m.Src,
			Type:      message.TypeAppendTrue,
			Term:      r.term,
			NextIndex: r.log.Len(),
		})
	}
	// Empty heartbeats do not elicit a response (spec.md §4.5, §9).
}

// handleAppendSuccess implements the leader path of spec.md §4.5 for
// a "true" reply: advance next_index/match_index for the responding
// peer, then try to advance the commit index.
func (r *Replica) handleAppendSuccess(ctx context.Context, m message.Message) {
	if r.role != Leader {
		return
	}
	r.nextIndex[m.Src] = m.NextIndex
	r.matchIndex[m.Src] = m.NextIndex - 1
	r.advanceCommit(ctx)
}

// handleAppendFailure implements the leader path of spec.md §4.5 for
// a "false" reply: back up next_index for that peer and retry
// immediately with entries included.
func (r *Replica) handleAppendFailure(ctx context.Context, m message.Message) {
	if r.role != Leader {
		return
	}
	r.maybeStepDown(m.Term)
	if r.role != Leader {
		return
	}
	if m.HasNextIndex {
		r.nextIndex[m.Src] = m.NextIndex
	} else if r.nextIndex[m.Src] > 1 {
		r.nextIndex[m.Src]--
	}
	log.Debug().Str("peer", m.Src).Int64("nextIndex", r.nextIndex[m.Src]).Msg("retrying append after refusal")
	r.replicateTo(ctx, m.Src)
}

// advanceCommit implements spec.md §4.5's commit-index advancement:
// scan backward from the end of the log for the highest index whose
// term is this leader's CURRENT term and that a strict majority of
// replicas (self always counts as matched through the log's end) have
// replicated. A leader must never advance commit to an index from an
// earlier term (Leader Completeness / the safety note in §4.5).
func (r *Replica) advanceCommit(ctx context.Context) {
	for idx := r.log.LastIndex(); idx > r.commitIndex; idx-- {
		if r.log.At(idx).Term != r.term {
			continue
		}
		count := 1 // self
		for _, p := range r.peers {
			if r.matchIndex[p] >= idx {
				count++
			}
		}
		if count >= r.majority() {
			log.Info().Int64("commitIndex", idx).Msg("advanced commit index")
			r.commitIndex = idx
			r.applyCommitted(ctx)
			return
		}
	}
}
