package clock

import (
	"fmt"
	"sort"
	"strings"
)

// VectorClock maps a peer ID to its event counter. Entries that are absent
// count as zero, so clocks over disjoint peer sets still compare cleanly.
// Callers are responsible for synchronization.
type VectorClock map[string]uint64

// New creates a new empty vector clock.
func New() VectorClock {
	return make(VectorClock)
}

// Get returns the counter for the given peer ID, or 0 if not present.
func (vc VectorClock) Get(peerID string) uint64 {
	return vc[peerID]
}

// Set sets the counter for the given peer ID.
func (vc VectorClock) Set(peerID string, value uint64) {
	vc[peerID] = value
}

// Increment bumps the counter for the given peer ID in place.
func (vc VectorClock) Increment(peerID string) {
	vc[peerID]++
}

// Next returns a copy of the clock with the given peer's counter bumped by
// one. The receiver is left untouched; this is the snapshot a peer stamps
// onto a locally originated update.
func (vc VectorClock) Next(peerID string) VectorClock {
	next := vc.Copy()
	next[peerID]++
	return next
}

// Merge folds another clock into this one, keeping the pointwise maximum.
// Merge is commutative, associative and idempotent.
func (vc VectorClock) Merge(other VectorClock) {
	for peerID, counter := range other {
		if vc[peerID] < counter {
			vc[peerID] = counter
		}
	}
}

// Copy returns a deep copy of the clock.
func (vc VectorClock) Copy() VectorClock {
	out := make(VectorClock, len(vc))
	for k, v := range vc {
		out[k] = v
	}
	return out
}

// Relation is the outcome of comparing two vector clocks.
type Relation int

const (
	// Before means this clock causally precedes the other.
	Before Relation = iota
	// After means this clock causally follows the other.
	After
	// Concurrent means neither clock dominates the other.
	Concurrent
	// Equal means every counter matches.
	Equal
)

// String returns the string representation of a Relation.
func (r Relation) String() string {
	switch r {
	case Before:
		return "before"
	case After:
		return "after"
	case Concurrent:
		return "concurrent"
	case Equal:
		return "equal"
	default:
		return "unknown"
	}
}

// Compare relates two clocks under the pointwise partial order:
//   - Equal: every counter matches (missing entries count as zero)
//   - Before: every counter <= the other's, at least one strictly <
//   - After: every counter >= the other's, at least one strictly >
//   - Concurrent: some counters are greater and some are less
func (vc VectorClock) Compare(other VectorClock) Relation {
	var less, greater bool

	for peerID, n := range vc {
		switch m := other[peerID]; {
		case n < m:
			less = true
		case n > m:
			greater = true
		}
	}
	for peerID, m := range other {
		if _, ok := vc[peerID]; ok {
			continue // already counted above
		}
		if m > 0 {
			less = true
		}
	}

	switch {
	case less && greater:
		return Concurrent
	case less:
		return Before
	case greater:
		return After
	default:
		return Equal
	}
}

// Equal reports whether both clocks hold the same counters, treating
// missing entries as zero.
func (vc VectorClock) Equal(other VectorClock) bool {
	return vc.Compare(other) == Equal
}

// Dominates reports whether this clock causally follows the other.
func (vc VectorClock) Dominates(other VectorClock) bool {
	return vc.Compare(other) == After
}

// String renders the clock with sorted keys for deterministic output.
func (vc VectorClock) String() string {
	if len(vc) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(vc))
	for k := range vc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, vc[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
