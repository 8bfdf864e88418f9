package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbengfort/raftkv/internal/message"
)

// UDP is the production Transport: one socket per replica, addressed
// by a static id-to-address table (spec.md §6's "fixed at startup"
// membership) for peers, plus a learned address table for clients,
// which never appear in the cluster manifest. It treats decode
// failures as droppable per spec.md §7 ("malformed message ... an
// implementation may drop") rather than surfacing them to the core.
type UDP struct {
	id     string
	conn   *net.UDPConn
	addrOf map[string]*net.UDPAddr

	mu       sync.Mutex
	clientOf map[string]*net.UDPAddr // src id -> last-seen address, learned from inbound datagrams

	msgs    chan message.Message
	closeCh chan struct{}
}

// NewUDP binds a UDP socket on listenAddr and starts a background
// reader that decodes inbound datagrams onto an internal channel.
func NewUDP(id, listenAddr string, peerAddrs map[string]string) (*UDP, error) {
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}

	addrOf := make(map[string]*net.UDPAddr, len(peerAddrs))
	for peerID, addr := range peerAddrs {
		ra, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			conn.Close()
			return nil, err
		}
		addrOf[peerID] = ra
	}

	u := &UDP{
		id:       id,
		conn:     conn,
		addrOf:   addrOf,
		clientOf: make(map[string]*net.UDPAddr),
		msgs:     make(chan message.Message, 256),
		closeCh:  make(chan struct{}),
	}
	go u.readLoop()
	return u, nil
}

func (u *UDP) readLoop() {
	buf := make([]byte, 64*1024)
	for {
		select {
		case <-u.closeCh:
			return
		default:
		}
		n, from, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-u.closeCh:
				return
			default:
				log.Warn().Err(err).Msg("transport: udp read error")
				continue
			}
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])
		m, err := message.Decode(raw)
		if err != nil {
			log.Warn().Err(err).Msg("transport: dropping malformed datagram")
			continue
		}

		// Clients are never in the cluster manifest, so the only way
		// to learn where to send a put/get's reply is to remember the
		// address each src last sent from.
		if _, isPeer := u.addrOf[m.Src]; !isPeer {
			u.mu.Lock()
			u.clientOf[m.Src] = from
			u.mu.Unlock()
		}

		select {
		case u.msgs <- m:
		case <-u.closeCh:
			return
		}
	}
}

// LocalID returns this replica's own id.
func (u *UDP) LocalID() string { return u.id }

// Send encodes and writes m to dst's address, or broadcasts to every
// known peer if dst is the broadcast sentinel.
func (u *UDP) Send(ctx context.Context, m message.Message) error {
	raw, err := message.Encode(m)
	if err != nil {
		return err
	}
	if m.Dst == message.Broadcast {
		for _, addr := range u.addrOf {
			if _, err := u.conn.WriteToUDP(raw, addr); err != nil {
				log.Warn().Err(err).Str("peer", addr.String()).Msg("transport: broadcast write failed")
			}
		}
		return nil
	}
	addr, ok := u.addrOf[m.Dst]
	if !ok {
		u.mu.Lock()
		addr, ok = u.clientOf[m.Dst]
		u.mu.Unlock()
	}
	if !ok {
		log.Warn().Str("dst", m.Dst).Msg("transport: unknown destination, dropping")
		return nil
	}
	_, err = u.conn.WriteToUDP(raw, addr)
	return err
}

// Recv blocks until a message arrives or deadline passes.
func (u *UDP) Recv(ctx context.Context, deadline time.Time) (message.Message, error) {
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m := <-u.msgs:
		return m, nil
	case <-timer.C:
		return message.Message{}, ErrTimeout
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}

// Close releases the socket.
func (u *UDP) Close() error {
	close(u.closeCh)
	return u.conn.Close()
}
