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
	"fmt"
	"io"
	"time"
)

// DefaultCacheTTL bounds how stale a cached scope mapping can get if an
// invalidation is ever lost.
const DefaultCacheTTL = 1800 * time.Second

// Record is one persisted setting.
type Record struct {
	ID    int64
	Key   string
	Value string
}

// Owner identifies the records of one scope node inside a backing
// collection. ObjectID is nil for the global scope's collection.
type Owner struct {
	Collection string
	ObjectID   *string
}

func (o Owner) String() string {
	if o.ObjectID == nil {
		return o.Collection
	}
	return o.Collection + "/" + *o.ObjectID
}

// Backend is the relational storage behind a hierarchy.
type Backend interface {
	// ListRecords returns every record stored for owner. When duplicates
	// exist for a key, the one listed last wins.
	ListRecords(ctx context.Context, owner Owner) ([]Record, error)

	// SaveRecord inserts rec when rec.ID is zero and sets rec.ID,
	// otherwise it updates the stored value.
	SaveRecord(ctx context.Context, owner Owner, rec *Record) error

	// DeleteRecord removes rec.
	DeleteRecord(ctx context.Context, owner Owner, rec Record) error

	// CountReferences counts records in any collection holding value under
	// key, ignoring the records of exclude.
	CountReferences(ctx context.Context, key, value string, exclude Owner) (int64, error)
}

// Cache is the external cache holding one aggregate mapping per scope node.
// Implementations must not share map instances with callers.
type Cache interface {
	GetOrSet(ctx context.Context, key string, load func(context.Context) (map[string]string, error), ttl time.Duration) (map[string]string, error)
	Delete(ctx context.Context, key string) error
}

// FileStorage holds the binary objects referenced by file settings.
type FileStorage interface {
	// Open returns the stored object, or an error matching ErrFileNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// URL returns the externally reachable address of name.
	URL(name string) string

	// Save stores r under name and returns the name actually used, which
	// may differ when name is already taken.
	Save(ctx context.Context, name string, r io.Reader) (string, error)

	// Delete removes name. Missing objects are not an error.
	Delete(ctx context.Context, name string) error
}

func cacheKey(namespace, scopeID string) string {
	return fmt.Sprintf("hierarkey_%s_%s", namespace, scopeID)
}
