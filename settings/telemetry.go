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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	backendLoads        metric.Int64Counter
	backendLoadDuration metric.Float64Histogram
	settingWrites       metric.Int64Counter
	cacheInvalidations  metric.Int64Counter
)

func init() {
	initTelemetry()
}

// initTelemetry builds the instruments from the current global meter
// provider.
func initTelemetry() {
	meter := otel.Meter("github.com/cardinalhq/hierarkey/settings")

	var err error
	backendLoads, err = meter.Int64Counter(
		"hierarkey.settings.backend.loads",
		metric.WithDescription("Number of scope record lists read from the backend"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create settings.backend.loads counter: %w", err))
	}

	backendLoadDuration, err = meter.Float64Histogram(
		"hierarkey.settings.backend.load.duration",
		metric.WithUnit("s"),
		metric.WithDescription("The duration in seconds to read the records of one scope from the backend"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create settings.backend.load.duration histogram: %w", err))
	}

	settingWrites, err = meter.Int64Counter(
		"hierarkey.settings.writes",
		metric.WithDescription("Number of settings stored or deleted"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create settings.writes counter: %w", err))
	}

	cacheInvalidations, err = meter.Int64Counter(
		"hierarkey.settings.cache.invalidations",
		metric.WithDescription("Number of external cache entries dropped after a write"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create settings.cache.invalidations counter: %w", err))
	}
}

func recordBackendLoad(ctx context.Context, namespace string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.Bool("error", err != nil),
	)
	backendLoads.Add(ctx, 1, attrs)
	backendLoadDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func recordWrite(ctx context.Context, namespace, op string) {
	settingWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("op", op),
	))
}

func recordInvalidation(ctx context.Context, namespace string) {
	cacheInvalidations.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", namespace)))
}
