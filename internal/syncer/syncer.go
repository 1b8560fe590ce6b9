package syncer

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pasteanywhere/internal/clipboard"
	"pasteanywhere/internal/clock"
	"pasteanywhere/internal/wire"
)

// Broadcaster floods a locally originated update into the overlay.
type Broadcaster interface {
	Broadcast(u *wire.ClipboardUpdate)
}

// Syncer owns the node's causal state: the running vector clock and the
// identity of the last applied update. One mutex guards both; clipboard
// writes happen under it so deliveries racing in from several connections
// apply in a serial order. Overlay sends are queue pushes and never block
// on a peer.
type Syncer struct {
	selfID  string
	overlay Broadcaster
	board   *clipboard.Watcher
	logger  *zap.Logger
	hops    uint8

	mu         sync.Mutex
	vclock     clock.VectorClock
	lastClock  clock.VectorClock
	lastOrigin string
}

// New creates a syncer for the peer with the given ID. hops is the budget
// stamped onto outgoing updates.
func New(selfID string, overlay Broadcaster, board *clipboard.Watcher, hops uint8, logger *zap.Logger) *Syncer {
	return &Syncer{
		selfID:    selfID,
		overlay:   overlay,
		board:     board,
		logger:    logger,
		hops:      hops,
		vclock:    clock.New(),
		lastClock: clock.New(),
	}
}

// OnLocalChange handles a clipboard change made on this machine: bump our
// own counter by exactly one, snapshot the clock, record the snapshot as
// the applied state and flood the update. The overlay marks it as seen, so
// a flood echo cannot reprocess it here.
func (s *Syncer) OnLocalChange(content []byte) {
	s.mu.Lock()
	s.vclock.Increment(s.selfID)
	snapshot := s.vclock.Copy()
	s.lastClock = s.vclock.Copy()
	s.lastOrigin = s.selfID

	update := &wire.ClipboardUpdate{
		MsgID:   uuid.NewString(),
		Origin:  s.selfID,
		Clock:   snapshot,
		Content: append([]byte(nil), content...),
		Hops:    s.hops,
	}
	s.overlay.Broadcast(update)
	s.mu.Unlock()

	s.logger.Info("local clipboard change flooded",
		zap.String("clock", snapshot.String()), zap.Int("bytes", len(content)))
}

// OnRemoteUpdate handles an update delivered by the overlay, already past
// dedup. The update's clock is merged into ours unconditionally; whether
// its content is applied depends on how it compares against the last
// applied update:
//
//   - After: apply and record.
//   - Before or Equal: stale or duplicate, discard.
//   - Concurrent: the update whose origin orders lexicographically higher
//     wins, so every node resolves the race identically.
func (s *Syncer) OnRemoteUpdate(u *wire.ClipboardUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vclock.Merge(u.Clock)

	rel := u.Clock.Compare(s.lastClock)
	var apply bool
	switch rel {
	case clock.After:
		apply = true
	case clock.Before, clock.Equal:
		s.logger.Debug("discarding stale update",
			zap.String("origin", u.Origin), zap.String("relation", rel.String()))
	case clock.Concurrent:
		apply = u.Origin > s.lastOrigin
		s.logger.Info("concurrent update resolved",
			zap.String("origin", u.Origin),
			zap.String("last_origin", s.lastOrigin),
			zap.Bool("applied", apply))
	}
	if !apply {
		return
	}

	if err := s.board.Apply(u.Content); err != nil {
		// Not applied and not recorded; a causally newer update will still
		// win against the old state on the next delivery.
		s.logger.Warn("clipboard write failed, update not applied",
			zap.String("origin", u.Origin), zap.Error(err))
		return
	}
	s.lastClock = u.Clock.Copy()
	s.lastOrigin = u.Origin

	s.logger.Info("applied remote clipboard update",
		zap.String("origin", u.Origin),
		zap.String("clock", u.Clock.String()),
		zap.Int("bytes", len(u.Content)))
}

// Clock returns a copy of the node's current vector clock.
func (s *Syncer) Clock() clock.VectorClock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vclock.Copy()
}

// LastOrigin returns the origin of the last applied update, or the empty
// string before any update has been applied.
func (s *Syncer) LastOrigin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOrigin
}
