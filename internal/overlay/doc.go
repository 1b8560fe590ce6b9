// Package overlay maintains a Gnutella-style peer-to-peer overlay: joining
// through bootstrap peers, a bounded view of direct neighbors, peer-list
// gossip to refill the view, ping/pong liveness probing and flooding of
// clipboard updates to all neighbors except the one a message arrived from.
// Flooding is loop-safe through the dedup cache; a hop budget on updates
// additionally bounds forwarding cost in large overlays.
//
// A node with no reachable bootstrap peer starts isolated, keeps accepting
// inbound connections and can rejoin the wider overlay through gossip from
// any peer that connects to it.
package overlay
