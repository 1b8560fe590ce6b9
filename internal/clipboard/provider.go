package clipboard

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// Provider is the external clipboard collaborator: read the current
// content, replace it. Implementations must be safe for concurrent use.
type Provider interface {
	Get() ([]byte, error)
	Set(content []byte) error
}

// SystemProvider reads and writes the OS clipboard.
type SystemProvider struct{}

// NewSystemProvider returns a provider backed by the OS clipboard, or an
// error when no clipboard mechanism is available on this machine.
func NewSystemProvider() (*SystemProvider, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("no system clipboard available on this platform")
	}
	return &SystemProvider{}, nil
}

// Get returns the current clipboard content.
func (*SystemProvider) Get() ([]byte, error) {
	s, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read clipboard: %w", err)
	}
	return []byte(s), nil
}

// Set replaces the clipboard content.
func (*SystemProvider) Set(content []byte) error {
	if err := clipboard.WriteAll(string(content)); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// MemoryProvider is an in-process clipboard for tests and headless runs.
type MemoryProvider struct {
	mu      sync.Mutex
	content []byte
}

// NewMemoryProvider returns an empty in-memory clipboard.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Get returns a copy of the stored content.
func (m *MemoryProvider) Get() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.content...), nil
}

// Set replaces the stored content.
func (m *MemoryProvider) Set(content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = append([]byte(nil), content...)
	return nil
}
