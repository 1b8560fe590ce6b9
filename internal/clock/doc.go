// Package clock provides a vector clock for tracking causality between
// clipboard updates originating at different peers. Per-peer counters
// capture happened-before relationships and expose whether two updates
// are ordered or concurrent.
package clock
