package raft

import (
	"context"
	"sync"
	"time"

	"github.com/bbengfort/raftkv/internal/message"
)

// fakeClock is a controllable clock.Clock for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// recordingTransport captures every Send call; its Recv never yields
// a message and only returns once the context is cancelled. It is for
// tests that call handlers directly rather than driving Run's loop.
type recordingTransport struct {
	id   string
	mu   sync.Mutex
	sent []message.Message
}

func newRecordingTransport(id string) *recordingTransport {
	return &recordingTransport{id: id}
}

func (t *recordingTransport) LocalID() string { return t.id }

func (t *recordingTransport) Send(ctx context.Context, m message.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, m)
	return nil
}

func (t *recordingTransport) Recv(ctx context.Context, deadline time.Time) (message.Message, error) {
	<-ctx.Done()
	return message.Message{}, ctx.Err()
}

func (t *recordingTransport) Sent() []message.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]message.Message, len(t.sent))
	copy(out, t.sent)
	return out
}

func (t *recordingTransport) last() message.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent[len(t.sent)-1]
}

// newTestReplica builds a Replica wired to a recordingTransport and a
// fakeClock, for white-box tests within this package.
func newTestReplica(id string, peers []string) (*Replica, *recordingTransport, *fakeClock) {
	tr := newRecordingTransport(id)
	r := New(id, peers, tr)
	fc := newFakeClock()
	r.clock = fc
	r.resetElectionDeadline()
	return r, tr, fc
}
