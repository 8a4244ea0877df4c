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

// Package settings provides a hierarchical, typed key-value settings store.
//
// # Scopes
//
// A Hierarchy links scope types (a global scope, organizations, users, ...)
// into a parent chain. Each scope node gets a Proxy that reads and writes
// its own settings and falls back to its parent, then to registered
// defaults, when a key is not set locally.
//
// # Storage Model
//
// Values are persisted as strings, one record per (owner, key), through a
// Backend (see package settingsdb for the Postgres implementation). The
// Types registry converts between Go values and their stored string form.
//
// # Caching
//
// Each proxy keeps the complete key/value mapping of its scope node in an
// external Cache under "hierarkey_{namespace}_{scopeID}", with a TTL of
// 1800 seconds by default. Any write or delete drops that entry.
//
// Proxies are not safe for concurrent use. Build one per request, usually
// through a Session.
package settings
