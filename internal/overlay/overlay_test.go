package overlay

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"pasteanywhere/internal/clock"
	"pasteanywhere/internal/transport"
	"pasteanywhere/internal/wire"
)

func fastConfig() Config {
	return Config{
		MaxPeers:       8,
		TargetPeers:    4,
		DialTimeout:    time.Second,
		PingInterval:   50 * time.Millisecond,
		PeerTimeout:    time.Second,
		GossipInterval: 100 * time.Millisecond,
	}
}

func startNode(t *testing.T, cfg Config, seeds ...string) *Node {
	t.Helper()
	n, err := New("127.0.0.1", 0, seeds, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(n.Stop)
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// recorder counts update deliveries per node.
type recorder struct {
	mu      sync.Mutex
	updates []*wire.ClipboardUpdate
}

func (r *recorder) handle(u *wire.ClipboardUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func attachRecorder(n *Node) *recorder {
	r := &recorder{}
	n.SetUpdateHandler(r.handle)
	return r
}

func testUpdate(origin string, counter uint64, content string) *wire.ClipboardUpdate {
	vc := clock.New()
	vc.Set(origin, counter)
	return &wire.ClipboardUpdate{
		MsgID:   "test-msg",
		Origin:  origin,
		Clock:   vc,
		Content: []byte(content),
		Hops:    8,
	}
}

func TestNode_BootstrapJoin(t *testing.T) {
	a := startNode(t, fastConfig())
	b := startNode(t, fastConfig(), a.ID())

	waitFor(t, "a and b to connect", func() bool {
		return len(a.Peers()) == 1 && len(b.Peers()) == 1
	})
	if b.Peers()[0] != a.ID() {
		t.Errorf("b's peer = %s, want %s", b.Peers()[0], a.ID())
	}
}

func TestNode_IsolatedStartSurvivesDeadSeed(t *testing.T) {
	n := startNode(t, fastConfig(), "127.0.0.1:1") // nothing listens there

	time.Sleep(100 * time.Millisecond)
	if len(n.Peers()) != 0 {
		t.Errorf("Expected isolated node, got peers %v", n.Peers())
	}

	// Still accepting: a later node can join through it.
	late := startNode(t, fastConfig(), n.ID())
	waitFor(t, "late join", func() bool { return len(late.Peers()) == 1 })
}

func TestNode_FloodReachesAllExceptSender(t *testing.T) {
	cfg := fastConfig()
	a := startNode(t, cfg)
	b := startNode(t, cfg, a.ID())
	c := startNode(t, cfg, a.ID())

	ra, rc := attachRecorder(a), attachRecorder(c)
	waitFor(t, "star topology", func() bool {
		return len(a.Peers()) == 2 && len(b.Peers()) >= 1 && len(c.Peers()) >= 1
	})

	// b floods; a delivers and forwards to c.
	b.Broadcast(testUpdate(b.ID(), 1, "hello"))

	waitFor(t, "delivery at a", func() bool { return ra.count() == 1 })
	waitFor(t, "delivery at c", func() bool { return rc.count() == 1 })

	// Re-flooding the same (origin, counter) is absorbed by dedup.
	b.Broadcast(testUpdate(b.ID(), 1, "hello"))
	time.Sleep(200 * time.Millisecond)
	if ra.count() != 1 || rc.count() != 1 {
		t.Errorf("Duplicate flood delivered again: a=%d c=%d", ra.count(), rc.count())
	}
}

func TestNode_HopBudgetStopsForwarding(t *testing.T) {
	cfg := fastConfig()
	a := startNode(t, cfg)
	b := startNode(t, cfg, a.ID())
	c := startNode(t, cfg, a.ID())

	ra, rc := attachRecorder(a), attachRecorder(c)
	waitFor(t, "star topology", func() bool { return len(a.Peers()) == 2 })

	// Arrives at a with no hops left: delivered there, never forwarded to c.
	u := testUpdate(b.ID(), 1, "short-lived")
	u.Hops = 0
	b.Broadcast(u)

	waitFor(t, "delivery at a", func() bool { return ra.count() == 1 })
	time.Sleep(200 * time.Millisecond)
	if rc.count() != 0 {
		t.Errorf("Update crossed more hops than budgeted: c got %d", rc.count())
	}
}

func TestNode_GossipRestoresDegree(t *testing.T) {
	cfg := fastConfig()
	a := startNode(t, cfg)
	b := startNode(t, cfg, a.ID())
	waitFor(t, "a-b link", func() bool { return len(a.Peers()) == 1 })

	// c only knows b; it should learn a through gossip and dial it.
	c := startNode(t, cfg, b.ID())
	waitFor(t, "c to reach full mesh", func() bool { return len(c.Peers()) == 2 })
}

func TestNode_DegreeNeverExceedsMax(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPeers = 2
	cfg.TargetPeers = 2
	a := startNode(t, cfg)

	for i := 0; i < 4; i++ {
		startNode(t, fastConfig(), a.ID())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := len(a.Peers()); got > 2 {
			t.Fatalf("Degree %d exceeds maximum 2", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(a.Peers()) == 0 {
		t.Error("Expected the capped node to keep some peers")
	}
}

func TestNode_PeerRemovedOnDisconnect(t *testing.T) {
	a := startNode(t, fastConfig())
	b := startNode(t, fastConfig(), a.ID())
	waitFor(t, "a-b link", func() bool { return len(a.Peers()) == 1 })

	b.Stop()
	waitFor(t, "b to vanish from a's view", func() bool { return len(a.Peers()) == 0 })
}

func TestNode_RejectsConnectionWithoutHandshake(t *testing.T) {
	a := startNode(t, fastConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := transport.Dial(ctx, a.ID(), time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// First message must be a Handshake; anything else gets us dropped.
	if err := conn.Send(&wire.Ping{}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if _, err := conn.Receive(); err == nil {
		t.Error("Expected connection teardown after bad first message")
	}
	if len(a.Peers()) != 0 {
		t.Errorf("Bad connection entered the view: %v", a.Peers())
	}
}
