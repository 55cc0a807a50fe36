// Package progress persists a device's game progress: the daily history, the
// in-progress snapshot, the set of completed puzzles and the aggregate stats.
//
// Storage goes through the KV port so the same logic runs on top of memory,
// redis, postgres or an on-device sqlite file.
package progress

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by KV.Get for a key that was never set or was deleted.
var ErrNotFound = errors.New("progress: key not found")

// KV stores opaque values of a single device.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Backend hands out the KV of a device.
type Backend interface {
	Device(id string) KV
}

// MemoryBackend keeps every device's values in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string][]byte)}
}

func (b *MemoryBackend) Device(id string) KV {
	return memoryKV{b: b, device: id}
}

type memoryKV struct {
	b      *MemoryBackend
	device string
}

func (m memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	v, ok := m.b.data[m.device][key]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]byte(nil), v...), nil
}

func (m memoryKV) Set(_ context.Context, key string, value []byte) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	if m.b.data[m.device] == nil {
		m.b.data[m.device] = make(map[string][]byte)
	}
	m.b.data[m.device][key] = append([]byte(nil), value...)
	return nil
}

func (m memoryKV) Delete(_ context.Context, key string) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	delete(m.b.data[m.device], key)
	return nil
}
