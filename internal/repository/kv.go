package repository

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrKeyNotFound is returned by a KVStore when the key has never been written.
var ErrKeyNotFound = errors.New("kv: key not found")

// KVStore is the string-keyed byte store every record collection persists to.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV constructs an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a copy of value.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Delete removes key if present.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// kvObserver receives backend timings.
type kvObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// InstrumentedKV times every call of the wrapped store.
type InstrumentedKV struct {
	next     KVStore
	backend  string
	observer kvObserver
}

// NewInstrumentedKV wraps next, labelling timings with the backend name.
func NewInstrumentedKV(next KVStore, backend string, observer kvObserver) *InstrumentedKV {
	return &InstrumentedKV{next: next, backend: backend, observer: observer}
}

func (i *InstrumentedKV) observe(op string, start time.Time) {
	if i.observer != nil {
		i.observer.ObserveDBQuery("kv_"+i.backend+"_"+op, time.Since(start))
	}
}

// Get implements KVStore.
func (i *InstrumentedKV) Get(ctx context.Context, key string) ([]byte, error) {
	defer i.observe("get", time.Now())
	return i.next.Get(ctx, key)
}

// Set implements KVStore.
func (i *InstrumentedKV) Set(ctx context.Context, key string, value []byte) error {
	defer i.observe("set", time.Now())
	return i.next.Set(ctx, key, value)
}

// Delete implements KVStore.
func (i *InstrumentedKV) Delete(ctx context.Context, key string) error {
	defer i.observe("delete", time.Now())
	return i.next.Delete(ctx, key)
}
