package clipboard

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func collectChanges(t *testing.T, w *Watcher) func() []string {
	t.Helper()

	var mu sync.Mutex
	var got []string
	w.SetOnChange(func(content []byte) {
		mu.Lock()
		got = append(got, string(content))
		mu.Unlock()
	})
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	p := NewMemoryProvider()
	p.Set([]byte("initial"))

	w := NewWatcher(p, 10*time.Millisecond, zap.NewNop())
	changes := collectChanges(t, w)
	w.Start()
	defer w.Stop()

	// The baseline content is not a change.
	time.Sleep(50 * time.Millisecond)
	if len(changes()) != 0 {
		t.Fatalf("Baseline reported as change: %v", changes())
	}

	p.Set([]byte("copied"))

	deadline := time.After(time.Second)
	for {
		if c := changes(); len(c) > 0 {
			if c[0] != "copied" {
				t.Errorf("Expected change 'copied', got %q", c[0])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("Change never reported")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcher_ApplyDoesNotEcho(t *testing.T) {
	p := NewMemoryProvider()
	w := NewWatcher(p, 10*time.Millisecond, zap.NewNop())
	changes := collectChanges(t, w)
	w.Start()
	defer w.Stop()

	if err := w.Apply([]byte("remote")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if c := changes(); len(c) != 0 {
		t.Errorf("Applied content echoed back as local change: %v", c)
	}

	got, _ := p.Get()
	if string(got) != "remote" {
		t.Errorf("Provider content = %q, want 'remote'", got)
	}
}
