package clipboard

import (
	"bytes"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often the watcher samples the provider.
const DefaultPollInterval = 200 * time.Millisecond

// Watcher polls a Provider and reports content changes. Writes performed
// through Apply do not come back as change notifications, so remotely
// applied updates are not re-detected as local copies.
type Watcher struct {
	provider Provider
	interval time.Duration
	logger   *zap.Logger
	onChange func(content []byte)

	mu   sync.Mutex
	last []byte

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher over the given provider. A non-positive
// interval falls back to DefaultPollInterval.
func NewWatcher(provider Provider, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		provider: provider,
		interval: interval,
		logger:   logger,
	}
}

// SetOnChange registers the change callback. Must be called before Start.
func (w *Watcher) SetOnChange(fn func(content []byte)) {
	w.onChange = fn
}

// Start begins polling. The initial content is taken as the baseline and
// not reported as a change.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	if initial, err := w.provider.Get(); err == nil {
		w.mu.Lock()
		w.last = initial
		w.mu.Unlock()
	} else {
		w.logger.Debug("initial clipboard read failed", zap.Error(err))
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
}

// Stop halts polling and waits for the poll loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Apply writes content through to the provider and moves the baseline so
// the write is not reported back as a local change. Returns the provider's
// error unchanged; on error the baseline is untouched and the next poll
// cycle proceeds independently.
func (w *Watcher) Apply(content []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.provider.Set(content); err != nil {
		return err
	}
	w.last = append([]byte(nil), content...)
	return nil
}

func (w *Watcher) poll() {
	content, err := w.provider.Get()
	if err != nil {
		// Provider errors are transient by contract; retry next cycle.
		w.logger.Debug("clipboard read failed", zap.Error(err))
		return
	}

	w.mu.Lock()
	changed := !bytes.Equal(content, w.last) && len(content) > 0
	if changed {
		w.last = content
	}
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(append([]byte(nil), content...))
	}
}
