package wallet

import (
	"os"
	"sync"
)

// FlagStore persists the session-scoped "was connected" flag. The flag
// survives restarts and is cleared on explicit disconnect or sign-out.
type FlagStore interface {
	WasConnected() bool
	SetConnected(connected bool)
}

// FileFlagStore keeps the flag as a marker file, the client-instance
// analogue of session storage. A write failure is silently ignored; the
// flag is a UX hint, never a source of truth.
type FileFlagStore struct {
	path string
}

// NewFileFlagStore creates a flag store backed by the given marker path.
func NewFileFlagStore(path string) *FileFlagStore {
	return &FileFlagStore{path: path}
}

func (f *FileFlagStore) WasConnected() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *FileFlagStore) SetConnected(connected bool) {
	if connected {
		_ = os.WriteFile(f.path, []byte("connected\n"), 0600)
	} else {
		_ = os.Remove(f.path)
	}
}

// MemoryFlagStore is an in-process flag store for tests.
type MemoryFlagStore struct {
	mu        sync.Mutex
	connected bool
}

func (m *MemoryFlagStore) WasConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MemoryFlagStore) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}
