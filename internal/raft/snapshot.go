package raft

import (
	"sync"

	"github.com/bbengfort/raftkv/internal/logstore"
)

// logWindowSize bounds how much log history the admin /log
// diagnostic keeps around.
const logWindowSize = 200

// Snapshot is a point-in-time, read-only copy of a replica's
// diagnostic state, safe to read from any goroutine. It exists only
// for the admin HTTP surface (internal/admin); the Raft core itself
// never reads through it.
type Snapshot struct {
	ID          string
	Role        Role
	Term        int64
	CommitIndex int64
	LastApplied int64
	LeaderHint  string
	LogLen      int64
	RecentLog   []logstore.Entry
	KV          map[string]string
}

// snapshotPublisher holds the latest Snapshot behind a mutex, updated
// once per main-loop iteration. The single event loop remains the
// only writer of Replica's real state (spec.md §5); this is a copy
// taken for outside observers, not a shared lock on the live state.
type snapshotPublisher struct {
	mu   sync.RWMutex
	snap Snapshot
}

// publishSnapshot refreshes the published snapshot from current
// state. Called once per main-loop iteration, from the loop's own
// goroutine, so it may read live fields directly.
func (r *Replica) publishSnapshot() {
	last := r.log.LastIndex()
	from := last - logWindowSize + 1
	if from < 1 {
		from = 1
	}
	var recent []logstore.Entry
	if last >= 1 {
		recent = r.log.Slice(from)
	}

	snap := Snapshot{
		ID:          r.id,
		Role:        r.role,
		Term:        r.term,
		CommitIndex: r.commitIndex,
		LastApplied: r.lastApplied,
		LeaderHint:  r.leaderHint,
		LogLen:      r.log.Len(),
		RecentLog:   recent,
		KV:          r.kv.Snapshot(),
	}
	r.pub.mu.Lock()
	r.pub.snap = snap
	r.pub.mu.Unlock()
}

// Snapshot returns the most recently published diagnostic state.
// Safe for concurrent use from any goroutine.
func (r *Replica) Snapshot() Snapshot {
	r.pub.mu.RLock()
	defer r.pub.mu.RUnlock()
	return r.pub.snap
}
