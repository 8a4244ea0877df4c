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
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps records in process memory. It is meant for tests and
// for embedding a hierarchy without a database.
type MemoryBackend struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string][]Record
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{rows: map[string][]Record{}}
}

func (m *MemoryBackend) ListRecords(_ context.Context, owner Owner) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows[owner.String()]), nil
}

func (m *MemoryBackend) SaveRecord(_ context.Context, owner Owner, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := owner.String()
	if rec.ID == 0 {
		m.nextID++
		rec.ID = m.nextID
		m.rows[k] = append(m.rows[k], *rec)
		return nil
	}
	for i := range m.rows[k] {
		if m.rows[k][i].ID == rec.ID {
			m.rows[k][i].Value = rec.Value
			return nil
		}
	}
	m.rows[k] = append(m.rows[k], *rec)
	return nil
}

func (m *MemoryBackend) DeleteRecord(_ context.Context, owner Owner, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := owner.String()
	m.rows[k] = slices.DeleteFunc(m.rows[k], func(r Record) bool { return r.ID == rec.ID })
	return nil
}

func (m *MemoryBackend) CountReferences(_ context.Context, key, value string, exclude Owner) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	skip := exclude.String()
	var n int64
	for owner, recs := range m.rows {
		if owner == skip {
			continue
		}
		for _, r := range recs {
			if r.Key == key && r.Value == value {
				n++
			}
		}
	}
	return n, nil
}

// Insert appends a raw record for owner, bypassing the write path. Tests
// use it to seed duplicates.
func (m *MemoryBackend) Insert(owner Owner, key, value string) Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec := Record{ID: m.nextID, Key: key, Value: value}
	m.rows[owner.String()] = append(m.rows[owner.String()], rec)
	return rec
}
