// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package settings

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type globalSettings struct {
	GlobalScope
}

type organization struct {
	ID string
}

func (o *organization) ScopeID() string   { return o.ID }
func (o *organization) TableName() string { return "organizations" }

type user struct {
	ID           string
	Organization *organization
}

func (u *user) ScopeID() string   { return u.ID }
func (u *user) TableName() string { return "users" }

// countingBackend records how often each operation reaches storage.
type countingBackend struct {
	*MemoryBackend
	listCount atomic.Int32
	saveCount atomic.Int32
	saveErr   error
}

func (b *countingBackend) ListRecords(ctx context.Context, owner Owner) ([]Record, error) {
	b.listCount.Add(1)
	return b.MemoryBackend.ListRecords(ctx, owner)
}

func (b *countingBackend) SaveRecord(ctx context.Context, owner Owner, rec *Record) error {
	b.saveCount.Add(1)
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.MemoryBackend.SaveRecord(ctx, owner, rec)
}

// mockCache is a map-backed Cache that ignores TTLs.
type mockCache struct {
	mu          sync.Mutex
	entries     map[string]map[string]string
	loads       map[string]int
	deleteCount atomic.Int32
	lastTTL     time.Duration
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]map[string]string{}, loads: map[string]int{}}
}

func (c *mockCache) GetOrSet(ctx context.Context, key string, load func(context.Context) (map[string]string, error), ttl time.Duration) (map[string]string, error) {
	c.mu.Lock()
	c.lastTTL = ttl
	if m, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return maps.Clone(m), nil
	}
	c.loads[key]++
	c.mu.Unlock()

	m, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[key] = maps.Clone(m)
	c.mu.Unlock()
	return m, nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.deleteCount.Add(1)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *mockCache) loadCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads[key]
}

func (c *mockCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// memStorage is an in-memory FileStorage.
type memStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	deleted   []string
	deleteErr error
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (s *memStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, ErrFileNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStorage) URL(name string) string {
	return "https://files.example.com/" + name
}

func (s *memStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = b
	return name, nil
}

func (s *memStorage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, name)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.files, name)
	return nil
}

func (s *memStorage) exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[name]
	return ok
}

type testEnv struct {
	h       *Hierarchy
	backend *countingBackend
	cache   *mockCache
	storage *memStorage
	orgs    map[string]*organization
}

// newTestEnv registers global -> organization -> user.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		backend: &countingBackend{MemoryBackend: NewMemoryBackend()},
		cache:   newMockCache(),
		storage: newMemStorage(),
		orgs:    map[string]*organization{},
	}
	h, err := New("settings", env.backend, env.cache, WithFileStorage(env.storage))
	require.NoError(t, err)
	require.NoError(t, h.AddGlobal(&globalSettings{}, ""))
	require.NoError(t, h.Add(&organization{}, "", WithLoader(func(_ context.Context, id string) (Node, error) {
		if o, ok := env.orgs[id]; ok {
			return o, nil
		}
		return nil, fmt.Errorf("organization %s not found", id)
	})))
	require.NoError(t, h.Add(&user{}, "", WithParentField("Organization")))
	env.h = h
	return env
}

func (e *testEnv) proxy(t *testing.T, node Node) *Proxy {
	t.Helper()
	p, err := e.h.Proxy(node)
	require.NoError(t, err)
	return p
}
