// Package syncer reconciles local clipboard changes with updates arriving
// from the overlay. Local changes are stamped with the node's incremented
// vector clock and flooded; inbound updates are merged, compared against
// the last applied state and applied, discarded as stale, or resolved
// through a deterministic concurrent-update tie-break so every node
// converges on the same content.
package syncer
