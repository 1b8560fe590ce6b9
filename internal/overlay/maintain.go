package overlay

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"pasteanywhere/internal/wire"
)

// maintainLoop drives liveness probing, degree restoration and peer-list
// gossip off a single ticker, the way the membership loops of a gossip
// cluster run.
func (n *Node) maintainLoop() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.cfg.PingInterval)
	defer ticker.Stop()

	lastGossip := time.Now()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.probePeers()
			n.fillView()
			if time.Since(lastGossip) >= n.cfg.GossipInterval {
				lastGossip = time.Now()
				n.requestPeerList()
			}
		}
	}
}

// probePeers pings every neighbor and closes those silent past the
// timeout. The closed connection's read loop removes it from the view.
func (n *Node) probePeers() {
	now := time.Now()

	n.mu.Lock()
	var stale, live []*peer
	for _, p := range n.peers {
		if now.Sub(p.lastActive) > n.cfg.PeerTimeout {
			stale = append(stale, p)
		} else {
			live = append(live, p)
		}
	}
	n.mu.Unlock()

	for _, p := range stale {
		n.logger.Info("peer timed out", zap.String("peer", p.id))
		p.conn.Close()
	}
	for _, p := range live {
		p.conn.Send(&wire.Ping{})
	}
}

// fillView opportunistically dials known candidates while the view is
// below target.
func (n *Node) fillView() {
	n.mu.Lock()
	missing := n.cfg.TargetPeers - len(n.peers)
	var candidates []string
	if missing > 0 {
		for addr := range n.known {
			if _, connected := n.peers[addr]; !connected {
				candidates = append(candidates, addr)
			}
		}
	}
	n.mu.Unlock()

	if missing <= 0 || len(candidates) == 0 {
		return
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > missing {
		candidates = candidates[:missing]
	}
	for _, addr := range candidates {
		n.wg.Add(1)
		go func(a string) {
			defer n.wg.Done()
			n.connect(a)
		}(addr)
	}
}

// requestPeerList asks one random neighbor for the peers it knows.
func (n *Node) requestPeerList() {
	n.mu.Lock()
	peers := make([]*peer, 0, len(n.peers))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	n.mu.Unlock()

	if len(peers) == 0 {
		return
	}
	target := peers[rand.Intn(len(peers))]
	target.conn.Send(&wire.PeerListRequest{})
}
