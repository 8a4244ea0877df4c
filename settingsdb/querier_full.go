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

package settingsdb

import (
	"context"

	"github.com/cardinalhq/hierarkey/settings"
)

type DuplicateCleaner interface {
	CleanDuplicates(ctx context.Context, collection string) (int64, error)
}

type QuerierFull interface {
	Querier
	settings.Backend
	DuplicateCleaner
	Close()
}

var _ QuerierFull = (*Store)(nil)
