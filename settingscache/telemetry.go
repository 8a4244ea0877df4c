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


package settingscache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
)

func init() {
	initTelemetry()
}

func initTelemetry() {
	meter := otel.Meter("github.com/cardinalhq/hierarkey/settingscache")

	var err error
	cacheHits, err = meter.Int64Counter(
		"hierarkey.settingscache.hits",
		metric.WithDescription("Number of scope mappings served from the cache"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create settingscache.hits counter: %w", err))
	}

	cacheMisses, err = meter.Int64Counter(
		"hierarkey.settingscache.misses",
		metric.WithDescription("Number of scope mappings the cache had to load"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create settingscache.misses counter: %w", err))
	}
}

// recordLookup counts one GetOrSet call of the named cache level.
func recordLookup(ctx context.Context, level string, hit bool) {
	attrs := metric.WithAttributes(attribute.String("cache", level))
	if hit {
		cacheHits.Add(ctx, 1, attrs)
		return
	}
	cacheMisses.Add(ctx, 1, attrs)
}
