// Package raft implements the replicated state machine core: role
// state, election, replication, commit application, and the client
// handler described in spec.md §3-§5. It depends only on clock,
// logstore, store, message and transport — never on net or a concrete
// wire format.
package raft

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/clock"
	"github.com/bbengfort/raftkv/internal/logstore"
	"github.com/bbengfort/raftkv/internal/message"
	"github.com/bbengfort/raftkv/internal/store"
	"github.com/bbengfort/raftkv/internal/transport"
)

// Role is the replica's current position in the Raft state machine.
type Role string

const (
	Follower  Role = "follower"
	Candidate Role = "candidate"
	Leader    Role = "leader"
)

// Replica owns every piece of mutable state for one cluster member.
// It is single-threaded: the log, state machine, and role state are
// all touched only from the main loop goroutine (spec.md §5), so no
// locking is needed internally.
type Replica struct {
	id    string
	peers []string // other replica ids, not including self

	clock clock.Clock
	tr    transport.Transport

	term        int64
	votedFor    string // "" means none
	role        Role
	leaderHint  string // message.Broadcast means "unknown"
	log         *logstore.Log
	commitIndex int64
	lastApplied int64
	kv          *store.Store

	nextIndex  map[string]int64
	matchIndex map[string]int64

	votesReceived map[string]bool

	electionDeadline time.Time
	lastHeartbeat    time.Time

	pub snapshotPublisher
}

// New constructs a Replica. id is this replica's own identifier,
// peers lists every other member of the cluster.
func New(id string, peers []string, tr transport.Transport) *Replica {
	r := &Replica{
		id:         id,
		peers:      append([]string(nil), peers...),
		clock:      clock.Real{},
		tr:         tr,
		role:       Follower,
		leaderHint: message.Broadcast,
		log:        logstore.New(),
		kv:         store.New(),
		nextIndex:  make(map[string]int64),
		matchIndex: make(map[string]int64),
	}
	r.commitIndex = 0
	r.lastApplied = 0
	r.resetElectionDeadline()
	r.publishSnapshot()
	return r
}

// clusterSize is the total replica count including self.
func (r *Replica) clusterSize() int {
	return len(r.peers) + 1
}

// majority is the strict majority threshold floor(N/2)+1 over the
// whole cluster (spec.md §4.3), corrected from the source's
// (N_others+1)//2 variant per spec.md §9.
func (r *Replica) majority() int {
	return r.clusterSize()/2 + 1
}

// resetElectionDeadline draws a fresh timeout from the range
// appropriate to whether a leader is currently known (spec.md §4.4).
func (r *Replica) resetElectionDeadline() {
	r.electionDeadline = clock.ElectionDeadline(r.clock, r.leaderHint != message.Broadcast)
}

// becomeFollower performs the "Any -> Follower with term update"
// transition of spec.md §4.3: adopt the higher term, clear vote and
// votes-received, drop to Follower, reset the election timer.
func (r *Replica) becomeFollower(term int64) {
	r.term = term
	r.votedFor = ""
	r.votesReceived = nil
	r.role = Follower
	r.resetElectionDeadline()
}

// maybeStepDown applies the term-update transition whenever a peer
// message carries a term greater than our own, returning whether it
// fired. handleVoteRequest calls it first; handleVoteResponse (while
// Candidate, on a refused vote) and handleAppendFailure (while Leader)
// call it on those paths only. handleAppendEntries adopts the leader's
// term itself, and handleAppendSuccess does not check the term.
func (r *Replica) maybeStepDown(peerTerm int64) bool {
	if peerTerm > r.term {
		log.Info().Int64("oldTerm", r.term).Int64("newTerm", peerTerm).
			Str("role", string(r.role)).Msg("stepping down: higher term observed")
		r.becomeFollower(peerTerm)
		return true
	}
	return false
}

// send transmits one message, logging but not failing the loop on
// transport errors (spec.md §7: no fatal errors in the core).
func (r *Replica) send(ctx context.Context, m message.Message) {
	m.Src = r.id
	m.Leader = r.leaderHint
	if m.Term == 0 {
		m.Term = r.term
	}
	if err := r.tr.Send(ctx, m); err != nil {
		log.Warn().Err(err).Str("dst", m.Dst).Str("type", string(m.Type)).Msg("send failed")
	}
}
