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

import "errors"

var (
	// ErrConfiguration is returned by registration calls that are given
	// the wrong kind of scope type or an invalid cache namespace.
	ErrConfiguration = errors.New("settings: improperly configured")

	// ErrSerialization is returned when a value has no serializer.
	ErrSerialization = errors.New("settings: unable to serialize value")

	// ErrNotRegistered is returned when a proxy is requested for a node
	// whose scope kind was never added to the hierarchy.
	ErrNotRegistered = errors.New("settings: scope not registered")

	// ErrNoParent may be returned by a parent accessor to signal that the
	// node has no parent. Resolution then continues with the global scope.
	ErrNoParent = errors.New("settings: no parent")

	// ErrFileNotFound is returned by FileStorage implementations when the
	// stored object does not exist.
	ErrFileNotFound = errors.New("settings: stored file not found")

	// ErrNoLoader is returned when a setting is requested as a row scope
	// type that was registered without a loader.
	ErrNoLoader = errors.New("settings: no loader registered for scope")
)
