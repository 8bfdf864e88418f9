package transport

import (
	"context"
	"sync"
	"time"

	"github.com/bbengfort/raftkv/internal/message"
)

// Switchboard is an in-memory fabric connecting several Memory
// transports in one process, for tests that drive the Raft core
// without real sockets. It can drop delivery per-link via SetDrop;
// it does not reorder, and each node receives in send order.
type Switchboard struct {
	mu    sync.Mutex
	nodes map[string]*Memory
	drop  map[string]bool // "src->dst" pairs to silently drop
}

// NewSwitchboard returns an empty fabric.
func NewSwitchboard() *Switchboard {
	return &Switchboard{
		nodes: make(map[string]*Memory),
		drop:  make(map[string]bool),
	}
}

// SetDrop toggles whether messages from src to dst are delivered.
func (s *Switchboard) SetDrop(src, dst string, drop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop[src+"->"+dst] = drop
}

func (s *Switchboard) dropped(src, dst string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drop[src+"->"+dst]
}

// Register creates and attaches a Memory transport for id.
func (s *Switchboard) Register(id string) *Memory {
	m := &Memory{
		id:    id,
		board: s,
		msgs:  make(chan message.Message, 256),
	}
	s.mu.Lock()
	s.nodes[id] = m
	s.mu.Unlock()
	return m
}

// Memory is a Transport backed by a Switchboard rather than a socket.
type Memory struct {
	id    string
	board *Switchboard
	msgs  chan message.Message
}

// LocalID returns this replica's own id.
func (m *Memory) LocalID() string { return m.id }

// Send delivers m to its destination(s) via the switchboard, honoring
// configured drops, or broadcasts to every registered node if dst is
// the broadcast sentinel.
func (m *Memory) Send(ctx context.Context, msg message.Message) error {
	m.board.mu.Lock()
	var targets []*Memory
	if msg.Dst == message.Broadcast {
		for id, n := range m.board.nodes {
			if id == m.id {
				continue
			}
			targets = append(targets, n)
		}
	} else if n, ok := m.board.nodes[msg.Dst]; ok {
		targets = append(targets, n)
	}
	m.board.mu.Unlock()

	for _, n := range targets {
		if m.board.dropped(msg.Src, n.id) {
			continue
		}
		select {
		case n.msgs <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Receive buffer full: treat like a dropped datagram
			// rather than blocking the sender.
		}
	}
	return nil
}

// Recv blocks until a message arrives or deadline passes.
func (m *Memory) Recv(ctx context.Context, deadline time.Time) (message.Message, error) {
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case msg := <-m.msgs:
		return msg, nil
	case <-timer.C:
		return message.Message{}, ErrTimeout
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}
