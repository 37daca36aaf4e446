// Package kv persists named JSON records such as the product catalog and the
// sales ledger. Records are rewritten in full inside Update, which holds a
// lock shared by every process using the same backend.
package kv

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Record names.
const (
	Products = "products"
	Sales    = "sales"
)

// KeyPrefix namespaces every record so several apps can share a backend.
const KeyPrefix = "novapos_"

var (
	ErrNotFound = errors.New("kv: record not found")
	ErrConflict = errors.New("kv: concurrent update, retries exhausted")
)

// Tx is the view of the records inside Update. Reads see the backend plus
// the writes already queued; writes are applied when the update returns nil.
type Tx interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(name string, value []byte)
}

type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	// Update runs fn with the named records locked against every other
	// writer. An error from fn discards the queued writes and is returned
	// unchanged.
	Update(ctx context.Context, names []string, fn func(Tx) error) error
	Close() error
}

type write struct {
	name  string
	value []byte
}

type bufferedTx struct {
	read   func(ctx context.Context, name string) ([]byte, error)
	writes []write
}

func (t *bufferedTx) Get(ctx context.Context, name string) ([]byte, error) {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if t.writes[i].name == name {
			return slices.Clone(t.writes[i].value), nil
		}
	}
	return t.read(ctx, name)
}

func (t *bufferedTx) Set(name string, value []byte) {
	t.writes = append(t.writes, write{name: name, value: slices.Clone(value)})
}

// MemStore keeps records in process memory.
type MemStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string][]byte)}
}

func (m *MemStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(name)
}

func (m *MemStore) get(name string) ([]byte, error) {
	val, ok := m.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(val), nil
}

func (m *MemStore) Set(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = slices.Clone(value)
	return nil
}

func (m *MemStore) Update(_ context.Context, _ []string, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &bufferedTx{read: func(_ context.Context, name string) ([]byte, error) {
		return m.get(name)
	}}
	if err := fn(tx); err != nil {
		return err
	}
	for _, w := range tx.writes {
		m.records[w.name] = w.value
	}
	return nil
}

func (m *MemStore) Close() error { return nil }
