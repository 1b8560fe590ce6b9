package overlay

import (
	"go.uber.org/zap"

	"pasteanywhere/internal/wire"
)

// readLoop services one peer connection until it ends. Messages on a
// single connection arrive in send order; no ordering holds across peers.
func (n *Node) readLoop(p *peer) {
	for {
		msg, err := p.conn.Receive()
		if err != nil {
			n.dropPeer(p, err)
			return
		}
		n.touch(p)

		switch m := msg.(type) {
		case *wire.Ping:
			p.conn.Send(&wire.Pong{})
		case *wire.Pong:
			// Liveness credit is the touch above.
		case *wire.PeerListRequest:
			p.conn.Send(&wire.PeerListResponse{Peers: n.peerList(p.id)})
		case *wire.PeerListResponse:
			n.learn(m.Peers)
		case *wire.ClipboardUpdate:
			n.handleUpdate(m, p.id)
		case *wire.Handshake:
			n.logger.Debug("unexpected handshake on established connection",
				zap.String("peer", p.id))
		}
	}
}

// handleUpdate runs the flooding rule for an inbound update: drop if
// already seen, otherwise deliver locally and forward to every neighbor
// except the sender.
func (n *Node) handleUpdate(u *wire.ClipboardUpdate, from string) {
	if u.Origin == "" || u.Clock == nil {
		n.logger.Debug("dropping update without origin or clock", zap.String("from", from))
		return
	}
	if n.dedup.Seen(u.Origin, u.Counter()) {
		return
	}

	if h := n.onUpdate; h != nil {
		h(u)
	}
	n.forward(u, from)
}

// Broadcast floods a locally originated update to every neighbor. The
// update is marked as seen first so a flood echo cannot re-deliver it.
func (n *Node) Broadcast(u *wire.ClipboardUpdate) {
	n.dedup.Seen(u.Origin, u.Counter())
	n.sendToPeers(u, "")
}

// forward re-floods a remote update with one hop spent. A zero hop budget
// stops forwarding; dedup remains the correctness mechanism, hops only
// bound cost.
func (n *Node) forward(u *wire.ClipboardUpdate, from string) {
	if u.Hops == 0 {
		n.logger.Debug("hop budget exhausted, not forwarding",
			zap.String("origin", u.Origin), zap.Uint64("counter", u.Counter()))
		return
	}
	fwd := *u
	fwd.Hops--
	if fwd.Hops > n.cfg.MaxHops {
		// Clamp absurd budgets from remote peers to our own.
		fwd.Hops = n.cfg.MaxHops
	}
	n.sendToPeers(&fwd, from)
}

// sendToPeers delivers a message to all connected peers except the one
// named (and the update's origin, which has it by definition). Sends go
// through each connection's bounded queue; no I/O happens under the view
// lock.
func (n *Node) sendToPeers(u *wire.ClipboardUpdate, except string) {
	n.mu.Lock()
	targets := make([]*peer, 0, len(n.peers))
	for id, p := range n.peers {
		if id == except || id == u.Origin {
			continue
		}
		targets = append(targets, p)
	}
	n.mu.Unlock()

	for _, p := range targets {
		if err := p.conn.Send(u); err != nil {
			n.logger.Debug("send failed", zap.String("peer", p.id), zap.Error(err))
		}
	}
}
