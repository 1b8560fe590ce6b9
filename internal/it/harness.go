// Package it provides an in-process multi-node harness and end-to-end
// scenario tests for the clipboard overlay.
package it

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"pasteanywhere/internal/clipboard"
	"pasteanywhere/internal/config"
	"pasteanywhere/internal/node"
)

// CountingClipboard is an in-memory clipboard that counts writes, so tests
// can assert that duplicate deliveries change content only once.
type CountingClipboard struct {
	mu     sync.Mutex
	inner  *clipboard.MemoryProvider
	writes int
}

// NewCountingClipboard returns an empty counting clipboard.
func NewCountingClipboard() *CountingClipboard {
	return &CountingClipboard{inner: clipboard.NewMemoryProvider()}
}

// Get returns the current content.
func (c *CountingClipboard) Get() ([]byte, error) {
	return c.inner.Get()
}

// Set replaces the content and counts the write.
func (c *CountingClipboard) Set(content []byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.inner.Set(content)
}

// Writes returns how many times Set has been called.
func (c *CountingClipboard) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// TestNode is one in-process paste-anywhere instance over a counting
// in-memory clipboard.
type TestNode struct {
	*node.Node
	Clipboard *CountingClipboard
}

// Copy simulates the user copying content on this machine: the next poll
// cycle detects it as a local change and floods it.
func (tn *TestNode) Copy(t *testing.T, content string) {
	t.Helper()
	if err := tn.Clipboard.Set([]byte(content)); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
}

// Content returns the node's current clipboard content.
func (tn *TestNode) Content(t *testing.T) string {
	t.Helper()
	b, err := tn.Clipboard.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return string(b)
}

// StartNode boots a node with fast poll and probe intervals, bootstrapping
// through the given seed addresses. The node is stopped with the test.
func StartNode(t *testing.T, seeds ...string) *TestNode {
	t.Helper()

	board := NewCountingClipboard()

	cfg := config.Default()
	cfg.Seeds = seeds
	cfg.PingInterval = 50 * time.Millisecond
	cfg.PollInterval = 20 * time.Millisecond

	n, err := node.New(cfg, board, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("node.New failed: %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("node.Start failed: %v", err)
	}
	t.Cleanup(n.Stop)

	return &TestNode{Node: n, Clipboard: board}
}

// WaitFor polls cond until it holds or the deadline passes.
func WaitFor(t *testing.T, what string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// WaitConverged waits until every node's clipboard holds content.
func WaitConverged(t *testing.T, content string, nodes ...*TestNode) {
	t.Helper()
	WaitFor(t, "clipboards to converge on "+content, 10*time.Second, func() bool {
		for _, tn := range nodes {
			if tn.Content(t) != content {
				return false
			}
		}
		return true
	})
}
