// Package cache provides the secondary.Cache backends used for tenant
// configuration: an in-process expiring LRU and a shared Redis cache.
package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// DefaultSize bounds the number of entries held by a Memory cache.
const DefaultSize = 1024

// Memory is an in-process cache whose entries expire after a fixed TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

var _ secondary.Cache = (*Memory)(nil)

// NewMemory creates an in-process cache. A non-positive size uses DefaultSize.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns a copy of the cached value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set stores a copy of value.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, slices.Clone(value))
	return nil
}

// Delete removes keys.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Nop caches nothing; every read misses.
type Nop struct{}

var _ secondary.Cache = Nop{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error { return nil }
func (Nop) Delete(context.Context, ...string) error { return nil }
