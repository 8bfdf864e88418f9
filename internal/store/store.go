// Package store implements the applied state machine: a pure mapping
// from string keys to string values, mutated only by committed log
// application (spec.md §4.2).
package store

import iradix "github.com/hashicorp/go-immutable-radix"

// Store is the K/V state machine. It is backed by an immutable radix
// tree rather than a bare map so that each applied write produces a
// new, independently-readable root (useful for the admin diagnostics
// dump) while keeping the read/write semantics spec.md requires: point
// lookup, last-write-wins on key collision.
type Store struct {
	tree *iradix.Tree
}

// New returns an empty state machine.
func New() *Store {
	return &Store{tree: iradix.New()}
}

// Set overwrites the value for key. Applied entries with a key/value
// pair overwrite any prior mapping for that key.
func (s *Store) Set(key, value string) {
	tree, _, _ := s.tree.Insert([]byte(key), value)
	s.tree = tree
}

// Get returns the value for key, or "" if absent. Reads are served
// only by the leader against this applied map, never against
// uncommitted log entries (spec.md §4.2).
func (s *Store) Get(key string) string {
	v, ok := s.tree.Get([]byte(key))
	if !ok {
		return ""
	}
	return v.(string)
}

// Snapshot returns every key/value pair currently applied as a map,
// for the admin diagnostics surface. The tree is walked in key order,
// but the returned map carries no order. It does not affect Raft
// semantics: gets are still served from Get, not from this dump.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string)
	s.tree.Root().Walk(func(k []byte, v interface{}) bool {
		out[string(k)] = v.(string)
		return false
	})
	return out
}

// Len returns the number of keys currently applied.
func (s *Store) Len() int {
	return s.tree.Len()
}
