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

package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/hierarkey/settings"
)

// global carries the global settings.
type global struct{ settings.GlobalScope }

// scopeRow is a row scope node of any configured kind. The kind doubles as
// table name, so each kind gets its own collection.
type scopeRow struct {
	kind   string
	id     string
	parent *scopeRow
}

func (r *scopeRow) ScopeID() string   { return r.id }
func (r *scopeRow) TableName() string { return r.kind }
func (r *scopeRow) ScopeKind() string { return r.kind }

func scopeName(n settings.Node) string {
	if r, ok := n.(*scopeRow); ok {
		return r.kind
	}
	return "global"
}

func scopeRowParent(_ context.Context, n settings.Node) (settings.Node, error) {
	r, ok := n.(*scopeRow)
	if !ok || r.parent == nil {
		return nil, settings.ErrNoParent
	}
	return r.parent, nil
}

// parseScopePath turns --scope kind:id flags into a parent-linked chain and
// returns its leaf, or the global node when no flags are given. Kinds must
// be configured and appear in configured order.
func parseScopePath(configured []string, flags []string) (settings.Node, error) {
	known := mapset.NewThreadUnsafeSet(configured...)
	seen := mapset.NewThreadUnsafeSet[string]()

	var leaf *scopeRow
	last := -1
	for _, f := range flags {
		kind, id, ok := strings.Cut(f, ":")
		kind, id = strings.TrimSpace(kind), strings.TrimSpace(id)
		if !ok || kind == "" || id == "" {
			return nil, fmt.Errorf("invalid --scope %q, want kind:id", f)
		}
		if !known.Contains(kind) {
			return nil, fmt.Errorf("unknown scope kind %q, configured: %s", kind, strings.Join(configured, ", "))
		}
		if !seen.Add(kind) {
			return nil, fmt.Errorf("scope kind %q given twice", kind)
		}
		idx := slices.Index(configured, kind)
		if idx < last {
			return nil, fmt.Errorf("scope kind %q must come before %q", kind, configured[last])
		}
		last = idx
		leaf = &scopeRow{kind: kind, id: id, parent: leaf}
	}
	if leaf == nil {
		return &global{}, nil
	}
	return leaf, nil
}
