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

// Package settingscache provides settings.Cache implementations: an
// in-process TTL cache, Redis, a two-level cache with an in-process front
// over a shared back, and a disabled cache that always reloads.
//
// Every implementation hands out copies of the cached mapping, so proxies
// may modify what they receive.
package settingscache
