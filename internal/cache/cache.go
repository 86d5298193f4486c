// Package cache stores locally verified clear values per account. It is the
// "locally decrypted" tier of the trade display; on-chain values always win.
package cache

import (
	"context"
	"strings"
	"sync"
)

type DecryptCache interface {
	Get(ctx context.Context, account, id string) (uint64, bool, error)
	Set(ctx context.Context, account, id string, value uint64) error
	Delete(ctx context.Context, account, id string) error
	// Clear drops every value for account.
	Clear(ctx context.Context, account string) error
}

// MemoryCache is the default in-process cache.
type MemoryCache struct {
	mu     sync.RWMutex
	values map[string]map[string]uint64
}

var _ DecryptCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]map[string]uint64)}
}

func (m *MemoryCache) Get(_ context.Context, account, id string) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[accountKey(account)][id]
	return v, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, account, id string, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := accountKey(account)
	if m.values[k] == nil {
		m.values[k] = make(map[string]uint64)
	}
	m.values[k][id] = value
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, account, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[accountKey(account)], id)
	return nil
}

func (m *MemoryCache) Clear(_ context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, accountKey(account))
	return nil
}

func accountKey(account string) string {
	return strings.ToLower(account)
}
