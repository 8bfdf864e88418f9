// Package logstore implements the replicated log: a 1-indexed sequence
// of entries with a permanent sentinel at position 0.
package logstore

// Entry is one record of the replicated log. The entry at index 0 is
// the sentinel (Term 0, no command); entries at index >= 1 carry a
// client command.
type Entry struct {
	Term         int64
	Key          string
	Value        string
	OriginClient string
	RequestID    string
}

// HasCommand reports whether the entry records both the originating
// client and its request id, i.e. whether a client is waiting for an
// ok once the entry is applied. An entry with a key/value but no
// origin reports false.
func (e Entry) HasCommand() bool {
	return e.OriginClient != "" && e.RequestID != ""
}

// Log is the ordered, append-mostly sequence of entries, sentinel
// first. Truncation is only ever driven by an authoritative leader's
// append-entries (§4.1).
type Log struct {
	entries []Entry
}

// New returns a Log containing only the sentinel.
func New() *Log {
	return &Log{entries: []Entry{{Term: 0}}}
}

// Len returns the number of entries including the sentinel.
func (l *Log) Len() int64 {
	return int64(len(l.entries))
}

// LastIndex is len(log)-1.
func (l *Log) LastIndex() int64 {
	return l.Len() - 1
}

// LastTerm is the term of the entry at LastIndex (0 on an empty log,
// i.e. a log holding only the sentinel).
func (l *Log) LastTerm() int64 {
	return l.entries[l.LastIndex()].Term
}

// At returns the entry at the given index. The caller must ensure
// 0 <= index <= LastIndex(); this mirrors the teacher's unchecked
// slice access and keeps the hot path allocation-free.
func (l *Log) At(index int64) Entry {
	return l.entries[index]
}

// InRange reports whether index names a valid position in the log.
func (l *Log) InRange(index int64) bool {
	return index >= 0 && index <= l.LastIndex()
}

// Slice returns entries from index to the end, inclusive. An index
// past the end yields an empty slice.
func (l *Log) Slice(from int64) []Entry {
	if from > l.LastIndex() {
		return nil
	}
	out := make([]Entry, l.Len()-from)
	copy(out, l.entries[from:])
	return out
}

// Append adds one entry and returns its index.
func (l *Log) Append(e Entry) int64 {
	l.entries = append(l.entries, e)
	return l.LastIndex()
}

// TruncateExtend cuts the log to its first keep entries (keep includes
// the sentinel, so keep >= 1), then appends the supplied entries in
// order. This is the only mutation a follower performs on append-
// entries, and is idempotent given identical content (§8).
func (l *Log) TruncateExtend(keep int64, extend []Entry) {
	if keep < 1 {
		keep = 1
	}
	if keep > l.Len() {
		keep = l.Len()
	}
	kept := make([]Entry, keep, keep+int64(len(extend)))
	copy(kept, l.entries[:keep])
	l.entries = append(kept, extend...)
}

// FirstIndexOfTerm returns the lowest index whose entry carries the
// same term as the entry at fromIndex, scanning backward from
// fromIndex over that contiguous run of the term. It
// is used by the standard Raft conflict-acceleration heuristic: a
// follower rejecting an append-entries on a mismatched prevLogTerm
// reports the first index of its own conflicting term so the leader
// can skip the whole term in one round trip (spec.md §9, §4.5 step 4).
func (l *Log) FirstIndexOfTerm(fromIndex int64) int64 {
	term := l.entries[fromIndex].Term
	i := fromIndex
	for i > 0 && l.entries[i-1].Term == term {
		i--
	}
	return i
}
