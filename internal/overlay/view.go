package overlay

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"pasteanywhere/internal/transport"
	"pasteanywhere/internal/wire"
)

// maxKnownAddrs bounds the pool of gossip-learned candidate addresses.
const maxKnownAddrs = 128

var (
	errSelfConnection = errors.New("connection to self")
	errDuplicatePeer  = errors.New("already connected to peer")
	errViewFull       = errors.New("overlay view at capacity")
	errShuttingDown   = errors.New("node shutting down")
)

// register enters a connection into the view. The degree never exceeds
// MaxPeers at any point: an inbound connection arriving at capacity evicts
// the least-recently-active peer before the new one is added, an outbound
// one is rejected.
func (n *Node) register(id string, conn *transport.Conn) (*peer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ctx.Err() != nil {
		// Stop closes every registered connection under this lock; a
		// handshake landing afterwards must not slip into the view.
		return nil, errShuttingDown
	}
	if id == n.id {
		return nil, errSelfConnection
	}
	if _, exists := n.peers[id]; exists {
		// Simultaneous dials in both directions; keep the established one.
		return nil, errDuplicatePeer
	}
	if len(n.peers) >= n.cfg.MaxPeers {
		if conn.Direction() != transport.Inbound {
			return nil, errViewFull
		}
		n.evictLocked()
	}

	p := &peer{id: id, conn: conn, lastActive: time.Now()}
	n.peers[id] = p
	delete(n.known, id)
	return p, nil
}

// evictLocked drops the least-recently-active peer to make room. Caller
// holds n.mu.
func (n *Node) evictLocked() {
	var victim *peer
	for _, p := range n.peers {
		if victim == nil || p.lastActive.Before(victim.lastActive) {
			victim = p
		}
	}
	if victim == nil {
		return
	}
	delete(n.peers, victim.id)
	n.rememberLocked(victim.id)
	victim.conn.Close()
	n.logger.Info("evicted least-recently-active peer", zap.String("peer", victim.id))
}

// dropPeer removes a dead connection from the view. A protocol error puts
// the peer's address under cooldown before reconnection is attempted.
func (n *Node) dropPeer(p *peer, reason error) {
	n.mu.Lock()
	if cur, ok := n.peers[p.id]; ok && cur == p {
		delete(n.peers, p.id)
		n.rememberLocked(p.id)
	}
	n.mu.Unlock()
	p.conn.Close()

	if wire.IsProtocolError(reason) {
		n.noteFailure(p.id)
		n.logger.Warn("peer sent malformed frame, connection dropped",
			zap.String("peer", p.id), zap.Error(reason))
		return
	}
	n.logger.Info("peer disconnected", zap.String("peer", p.id), zap.Error(reason))
}

// touch records activity on a peer, for liveness and eviction ordering.
func (n *Node) touch(p *peer) {
	n.mu.Lock()
	p.lastActive = time.Now()
	n.mu.Unlock()
}

// learn adds gossip-discovered addresses to the candidate pool.
func (n *Node) learn(peers []wire.PeerInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, pi := range peers {
		if pi.Addr == "" || pi.Addr == n.id {
			continue
		}
		if _, connected := n.peers[pi.Addr]; connected {
			continue
		}
		if len(n.known) >= maxKnownAddrs {
			break
		}
		n.known[pi.Addr] = struct{}{}
	}
}

// peerList snapshots connected and known peers for a PeerListResponse,
// excluding the requester.
func (n *Node) peerList(exclude string) []wire.PeerInfo {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]wire.PeerInfo, 0, len(n.peers)+len(n.known))
	for id := range n.peers {
		if id != exclude {
			out = append(out, wire.PeerInfo{ID: id, Addr: id})
		}
	}
	for addr := range n.known {
		if addr != exclude {
			out = append(out, wire.PeerInfo{ID: addr, Addr: addr})
		}
	}
	return out
}

// rememberLocked keeps a disconnected peer's address as a reconnect
// candidate. Caller holds n.mu.
func (n *Node) rememberLocked(addr string) {
	if len(n.known) < maxKnownAddrs {
		n.known[addr] = struct{}{}
	}
}

// dialRetry carries the exponential backoff state for one address.
type dialRetry struct {
	bo   *backoff.ExponentialBackOff
	next time.Time
}

// shouldDial reports whether addr is currently worth dialing: not
// ourselves, not already connected, the view not full and any cooldown
// elapsed.
func (n *Node) shouldDial(addr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if addr == n.id {
		return false
	}
	if _, connected := n.peers[addr]; connected {
		return false
	}
	if len(n.peers) >= n.cfg.MaxPeers {
		return false
	}
	if r, ok := n.retries[addr]; ok && time.Now().Before(r.next) {
		return false
	}
	return true
}

// noteFailure pushes the address' next dial attempt out exponentially.
func (n *Node) noteFailure(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	r, ok := n.retries[addr]
	if !ok {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		bo.MaxInterval = 30 * time.Second
		bo.MaxElapsedTime = 0 // never give up on a known address
		r = &dialRetry{bo: bo}
		n.retries[addr] = r
	}
	r.next = time.Now().Add(r.bo.NextBackOff())
}

// clearRetry resets the backoff state after a successful connection.
func (n *Node) clearRetry(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.retries, addr)
}
