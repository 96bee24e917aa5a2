// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// memoryBackend keeps sessions in a map. Expired entries are dropped on
// read and swept whenever a session is written.
type memoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func newMemoryBackend(now func() time.Time) *memoryBackend {
	return &memoryBackend{entries: make(map[string]memoryEntry), now: now}
}

func (b *memoryBackend) put(_ context.Context, id string, payload []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for k, e := range b.entries {
		if !now.Before(e.expires) {
			delete(b.entries, k)
		}
	}
	b.entries[id] = memoryEntry{payload: append([]byte(nil), payload...), expires: now.Add(ttl)}
	return nil
}

func (b *memoryBackend) get(_ context.Context, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, nil
	}
	if !b.now().Before(e.expires) {
		delete(b.entries, id)
		return nil, nil
	}
	return e.payload, nil
}

func (b *memoryBackend) del(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, id)
	return nil
}
