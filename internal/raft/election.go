package raft

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/message"
)

// checkElectionTimeout starts an election if the deadline has
// elapsed and this replica is not already Leader (spec.md §5's main
// loop step (d)).
func (r *Replica) checkElectionTimeout(ctx context.Context) {
	if r.role == Leader {
		return
	}
	if r.clock.Now().Before(r.electionDeadline) {
		return
	}
	r.startElection(ctx)
}

// startElection performs the Follower/Candidate -> Candidate
// transition of spec.md §4.4: become candidate, clear leader hint,
// bump term, vote for self, broadcast a vote request, reset the
// timer.
func (r *Replica) startElection(ctx context.Context) {
	r.role = Candidate
	r.leaderHint = message.Broadcast
	r.term++
	r.votedFor = r.id
	r.votesReceived = map[string]bool{r.id: true}
	r.resetElectionDeadline()

	log.Info().Int64("term", r.term).Msg("starting election")

	if len(r.votesReceived) >= r.majority() {
		// Single-node cluster: self-vote alone is already a strict
		// majority (spec.md §8's boundary behavior).
		r.becomeLeader(ctx)
		return
	}

	r.send(ctx, message.Message{
		Dst:          message.Broadcast,
		Type:         message.TypeVote,
		Term:         r.term,
		LastLogIndex: r.log.LastIndex(),
		LastLogTerm:  r.log.LastTerm(),
	})
}

// handleVoteRequest implements spec.md §4.4 "Handling a vote request."
func (r *Replica) handleVoteRequest(ctx context.Context, m message.Message) {
	r.maybeStepDown(m.Term)

	upToDate := r.log.LastIndex() <= m.LastLogIndex && r.log.LastTerm() <= m.LastLogTerm
	grant := m.Term >= r.term &&
		(r.votedFor == "" || r.votedFor == m.Src) &&
		upToDate

	if grant {
		r.votedFor = m.Src
		r.resetElectionDeadline()
		log.Info().Str("candidate", m.Src).Int64("term", r.term).Msg("granting vote")
	} else {
		log.Debug().Str("candidate", m.Src).Int64("term", r.term).
			Bool("upToDate", upToDate).Msg("refusing vote")
	}

	r.send(ctx, message.Message{
		Dst:         m.Src,
		Type:        message.TypeVoteResponse,
		Term:        r.term,
		VoteGranted: grant,
	})
}

// handleVoteResponse implements spec.md §4.4 "Handling a vote
// response." It is only meaningful while Candidate.
func (r *Replica) handleVoteResponse(ctx context.Context, m message.Message) {
	if r.role != Candidate {
		return
	}
	if !m.VoteGranted {
		r.maybeStepDown(m.Term)
		return
	}
	if r.votesReceived == nil {
		r.votesReceived = make(map[string]bool)
	}
	r.votesReceived[m.Src] = true

	if len(r.votesReceived) >= r.majority() {
		r.becomeLeader(ctx)
	}
}

// becomeLeader implements the Candidate -> Leader transition of
// spec.md §4.4: reset per-peer replication cursors and immediately
// broadcast a heartbeat.
func (r *Replica) becomeLeader(ctx context.Context) {
	r.role = Leader
	r.leaderHint = r.id
	log.Info().Int64("term", r.term).Msg("became leader")

	for _, p := range r.peers {
		r.nextIndex[p] = r.log.Len()
		r.matchIndex[p] = 0
	}
	r.broadcastHeartbeat(ctx)
	r.lastHeartbeat = r.clock.Now()
}
