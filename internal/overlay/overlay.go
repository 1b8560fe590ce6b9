package overlay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"pasteanywhere/internal/dedup"
	"pasteanywhere/internal/transport"
	"pasteanywhere/internal/wire"
)

// Config holds the overlay tunables. Zero values fall back to defaults.
type Config struct {
	MaxPeers         int           // hard cap on the overlay degree
	TargetPeers      int           // refill threshold for opportunistic dials
	DialTimeout      time.Duration // TCP connect timeout
	HandshakeTimeout time.Duration // wait for the peer's Handshake
	PingInterval     time.Duration // liveness probe period
	PeerTimeout      time.Duration // drop a peer silent for this long
	GossipInterval   time.Duration // peer-list exchange period
	MaxHops          uint8         // hop budget on flooded updates
	DedupSize        int
	DedupTTL         time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxPeers <= 0 {
		c.MaxPeers = 8
	}
	if c.TargetPeers <= 0 || c.TargetPeers > c.MaxPeers {
		c.TargetPeers = (c.MaxPeers + 1) / 2
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 5 * time.Second
	}
	if c.PeerTimeout <= 0 {
		c.PeerTimeout = 3 * c.PingInterval
	}
	if c.GossipInterval <= 0 {
		c.GossipInterval = 20 * time.Second
	}
	if c.MaxHops == 0 {
		c.MaxHops = 8
	}
	return c
}

// peer is one established connection in the view.
type peer struct {
	id         string
	conn       *transport.Conn
	lastActive time.Time // guarded by Node.mu
}

// Node is an overlay participant. Its peer ID is its reachable listen
// address, fixed when New binds the listener.
type Node struct {
	cfg      Config
	logger   *zap.Logger
	seeds    []string
	dedup    *dedup.Cache
	onUpdate func(u *wire.ClipboardUpdate)

	id       string
	listener *transport.Listener

	mu      sync.Mutex
	peers   map[string]*peer
	known   map[string]struct{} // learned candidate addresses, not connected
	retries map[string]*dialRetry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New binds the listener on localIP:port (port 0 picks an ephemeral one)
// and prepares a node that will join the overlay through the given seed
// addresses once started. The node's peer ID is fixed here.
func New(localIP string, port int, seeds []string, cfg Config, logger *zap.Logger) (*Node, error) {
	cfg = cfg.withDefaults()

	l, err := transport.Listen(net.JoinHostPort(localIP, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	return &Node{
		cfg:      cfg,
		logger:   logger,
		seeds:    seeds,
		dedup:    dedup.New(cfg.DedupSize, cfg.DedupTTL),
		id:       net.JoinHostPort(localIP, strconv.Itoa(l.Addr().(*net.TCPAddr).Port)),
		listener: l,
		peers:    make(map[string]*peer),
		known:    make(map[string]struct{}),
		retries:  make(map[string]*dialRetry),
	}, nil
}

// SetUpdateHandler registers the delivery callback for clipboard updates
// that pass the dedup check. Must be called before Start.
func (n *Node) SetUpdateHandler(fn func(u *wire.ClipboardUpdate)) {
	n.onUpdate = fn
}

// Start begins accepting, dials the bootstrap seeds and launches the
// maintenance loop. Unreachable seeds are not fatal.
func (n *Node) Start() error {
	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.logger.Info("overlay node listening", zap.String("id", n.id))

	n.wg.Add(2)
	go n.acceptLoop()
	go n.maintainLoop()

	dialed := 0
	for _, seed := range n.seeds {
		if seed == n.id {
			continue
		}
		dialed++
		n.wg.Add(1)
		go func(addr string) {
			defer n.wg.Done()
			n.connect(addr)
		}(seed)
	}
	if dialed == 0 {
		n.logger.Info("no bootstrap peers, starting isolated")
	}
	return nil
}

// Stop closes the listener and every connection and waits for all loops to
// drain. No background work tied to any peer survives Stop.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.listener.Close()

	n.mu.Lock()
	for _, p := range n.peers {
		p.conn.Close()
	}
	n.mu.Unlock()

	n.wg.Wait()
}

// ID returns the node's peer ID, its reachable listen address.
func (n *Node) ID() string {
	return n.id
}

// Port returns the bound listen port.
func (n *Node) Port() int {
	return n.listener.Addr().(*net.TCPAddr).Port
}

// Peers returns the IDs of the currently connected peers.
func (n *Node) Peers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.peers))
	for id := range n.peers {
		ids = append(ids, id)
	}
	return ids
}

func (n *Node) acceptLoop() {
	defer n.wg.Done()
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			return // listener closed
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.handleInbound(conn)
		}()
	}
}

// handleInbound runs the accept-side handshake: wait for the peer to
// identify itself, answer with our identity, then enter the view.
func (n *Node) handleInbound(conn *transport.Conn) {
	hs, err := n.awaitHandshake(conn)
	if err != nil {
		n.logger.Debug("inbound handshake failed",
			zap.String("remote", conn.RemoteAddr()), zap.Error(err))
		conn.Close()
		return
	}
	if err := conn.Send(&wire.Handshake{PeerID: n.id, ListenAddr: n.id}); err != nil {
		conn.Close()
		return
	}
	n.runPeer(hs.PeerID, conn)
}

// connect runs the dial-side handshake against addr and enters the peer
// into the view. Failures feed the per-address backoff.
func (n *Node) connect(addr string) {
	if !n.shouldDial(addr) {
		return
	}

	conn, err := transport.Dial(n.ctx, addr, n.cfg.DialTimeout)
	if err != nil {
		n.logger.Debug("dial failed", zap.String("addr", addr), zap.Error(err))
		n.noteFailure(addr)
		return
	}
	if err := conn.Send(&wire.Handshake{PeerID: n.id, ListenAddr: n.id}); err != nil {
		conn.Close()
		n.noteFailure(addr)
		return
	}
	hs, err := n.awaitHandshake(conn)
	if err != nil {
		n.logger.Debug("outbound handshake failed", zap.String("addr", addr), zap.Error(err))
		conn.Close()
		n.noteFailure(addr)
		return
	}

	n.clearRetry(addr)
	n.runPeer(hs.PeerID, conn)
}

// awaitHandshake reads the first message off a fresh connection and
// requires it to be a valid Handshake.
func (n *Node) awaitHandshake(conn *transport.Conn) (*wire.Handshake, error) {
	type result struct {
		msg wire.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := conn.Receive()
		ch <- result{msg, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-time.After(n.cfg.HandshakeTimeout):
		conn.Close()
		return nil, errors.New("handshake timeout")
	case <-n.ctx.Done():
		conn.Close()
		return nil, n.ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	hs, ok := res.msg.(*wire.Handshake)
	if !ok {
		return nil, fmt.Errorf("expected HANDSHAKE, got %s", res.msg.Type())
	}
	if hs.PeerID == "" || hs.ListenAddr == "" {
		return nil, errors.New("handshake missing identity")
	}
	return hs, nil
}

// runPeer registers the connection under the peer's ID and services its
// receive loop until the connection dies.
func (n *Node) runPeer(id string, conn *transport.Conn) {
	p, err := n.register(id, conn)
	if err != nil {
		n.logger.Debug("connection rejected", zap.String("peer", id), zap.Error(err))
		conn.Close()
		return
	}

	n.logger.Info("peer connected",
		zap.String("peer", id), zap.String("direction", conn.Direction().String()))
	n.readLoop(p)
}
