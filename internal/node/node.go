// Package node composes the overlay, the syncer and the clipboard watcher
// into one running paste-anywhere instance.
package node

import (
	"fmt"

	"go.uber.org/zap"

	"pasteanywhere/internal/clipboard"
	"pasteanywhere/internal/config"
	"pasteanywhere/internal/overlay"
	"pasteanywhere/internal/syncer"
)

// Node is a single paste-anywhere instance: an overlay participant whose
// clipboard follows, and feeds, the rest of the network.
type Node struct {
	logger  *zap.Logger
	overlay *overlay.Node
	watcher *clipboard.Watcher
	syncer  *syncer.Syncer
}

// New wires a node together over the given clipboard provider. The overlay
// listener is bound here, so ID and Port are valid immediately.
func New(cfg config.Config, provider clipboard.Provider, logger *zap.Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ov, err := overlay.New(cfg.LocalIP, cfg.Port, cfg.Seeds, overlay.Config{
		MaxPeers:     cfg.MaxPeers,
		PingInterval: cfg.PingInterval,
		MaxHops:      cfg.MaxHops,
	}, logger.Named("overlay"))
	if err != nil {
		return nil, err
	}

	watcher := clipboard.NewWatcher(provider, cfg.PollInterval, logger.Named("clipboard"))
	sync := syncer.New(ov.ID(), ov, watcher, cfg.MaxHops, logger.Named("syncer"))

	ov.SetUpdateHandler(sync.OnRemoteUpdate)
	watcher.SetOnChange(sync.OnLocalChange)

	return &Node{
		logger:  logger,
		overlay: ov,
		watcher: watcher,
		syncer:  sync,
	}, nil
}

// Start brings the overlay and the clipboard watcher up.
func (n *Node) Start() error {
	if err := n.overlay.Start(); err != nil {
		return err
	}
	n.watcher.Start()
	n.logger.Info("node started", zap.String("id", n.overlay.ID()))
	return nil
}

// Stop shuts the watcher and the overlay down and waits for both.
func (n *Node) Stop() {
	n.watcher.Stop()
	n.overlay.Stop()
	n.logger.Info("node stopped", zap.String("id", n.overlay.ID()))
}

// ID returns the node's peer ID, its reachable listen address.
func (n *Node) ID() string {
	return n.overlay.ID()
}

// Port returns the bound listen port.
func (n *Node) Port() int {
	return n.overlay.Port()
}

// Peers returns the IDs of the currently connected peers.
func (n *Node) Peers() []string {
	return n.overlay.Peers()
}

// Syncer exposes the causal state, mainly for integration tests.
func (n *Node) Syncer() *syncer.Syncer {
	return n.syncer
}
